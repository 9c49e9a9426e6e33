package notify

import (
	"fmt"
	"log/slog"

	"github.com/mailforge/mailforge/internal/domain"
)

// Compile-time check: SlogNotifier implements domain.OperationNotifier.
var _ domain.OperationNotifier = (*SlogNotifier)(nil)

// SlogNotifier is the notification shell for headless deployments: operation
// start/complete/error events become structured log lines. It never returns
// errors to the orchestrator and never blocks.
type SlogNotifier struct {
	logger *slog.Logger
}

// New creates a notifier on the given logger. A nil logger uses slog's default.
func New(logger *slog.Logger) *SlogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) OnStart(label string) {
	n.logger.Info("bulk operation started", "operation", label)
}

func (n *SlogNotifier) OnComplete(label string, result domain.OperationResult) {
	n.logger.Info("bulk operation completed",
		"operation", label,
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"total", result.Total,
		"summary", fmt.Sprintf("Completed: %d succeeded, %d failed", result.Succeeded, result.Failed),
	)
}

func (n *SlogNotifier) OnError(label, message string) {
	n.logger.Error("bulk operation error", "operation", label, "message", message)
}
