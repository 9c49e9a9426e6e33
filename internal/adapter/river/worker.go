package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// EventWorker processes lifecycle event jobs from the River queue. This is
// where provisioning side effects attach: DNS record pushes, DKIM key
// publication and mailbox account creation all hang off their lifecycle
// event. For now it logs the event.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single lifecycle event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing lifecycle event",
		"event", job.Args.Event,
		"tenant_id", job.Args.TenantID,
		"tenant_slug", job.Args.Slug,
		"tenant_domain", job.Args.Domain,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
