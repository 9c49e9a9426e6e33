package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mailforge/mailforge/internal/domain"
)

// Compile-time check: ProvisionService implements domain.BulkRunner.
var _ domain.BulkRunner = (*ProvisionService)(nil)

// operationEvents maps each bulk operation kind to the lifecycle event it
// applies. The event, not the operation, decides per-tenant validity via
// the transition validator.
var operationEvents = map[domain.OperationKind]domain.Event{
	domain.OpVerifyDomains:      domain.EventVerifyDomain,
	domain.OpSetupDNS:           domain.EventConfigureDNS,
	domain.OpSetupDKIM:          domain.EventEnableDKIM,
	domain.OpCreateMailboxes:    domain.EventCreateMailboxes,
	domain.OpConfigureMailboxes: domain.EventConfigureMailboxes,
}

// ProvisionService executes bulk operations: one batch call advances every
// tenant in the id list through the operation's lifecycle event, counting
// per-tenant outcomes into an OperationResult. The external side effects of
// each step (DNS records, DKIM keys, mailbox accounts) are carried by the
// published lifecycle events; this service owns only the status bookkeeping.
type ProvisionService struct {
	repo      domain.TenantRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
}

// NewProvisionService creates a provision service with the given adapters.
func NewProvisionService(repo domain.TenantRepository, publisher domain.EventPublisher, validator domain.TransitionValidator) *ProvisionService {
	return &ProvisionService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
	}
}

// Run executes one batch. A tenant that cannot be loaded or whose status
// rejects the event counts as failed; the batch itself only errors on an
// empty id list, an unknown kind, or context cancellation.
func (s *ProvisionService) Run(ctx context.Context, kind domain.OperationKind, ids []string) (domain.OperationResult, error) {
	event, ok := operationEvents[kind]
	if !ok {
		return domain.OperationResult{}, fmt.Errorf("no lifecycle event for operation %q", kind)
	}
	if len(ids) == 0 {
		return domain.OperationResult{}, errors.New("empty tenant id batch")
	}

	result := domain.OperationResult{Total: len(ids)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return domain.OperationResult{}, fmt.Errorf("batch interrupted after %d of %d: %w", result.Processed, result.Total, err)
		}

		result.Processed++

		tenant, err := s.repo.GetByID(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "bulk operation: tenant unavailable",
				"operation", kind, "tenant_id", id, "error", err)
			result.Failed++
			continue
		}

		newStatus, err := s.validator.Apply(ctx, tenant.Status, event)
		if err != nil {
			slog.WarnContext(ctx, "bulk operation: transition rejected",
				"operation", kind, "tenant_id", id, "status", tenant.Status, "error", err)
			result.Failed++
			continue
		}

		tenant.Status = newStatus
		if err := s.repo.Update(ctx, tenant); err != nil {
			slog.WarnContext(ctx, "bulk operation: update failed",
				"operation", kind, "tenant_id", id, "error", err)
			result.Failed++
			continue
		}

		// The transition is committed; a publish failure must not undo it.
		if err := s.publisher.Publish(ctx, event, tenant); err != nil {
			slog.WarnContext(ctx, "bulk operation: event publish failed",
				"operation", kind, "tenant_id", id, "event", event, "error", err)
		}

		result.Succeeded++
	}

	return result, nil
}
