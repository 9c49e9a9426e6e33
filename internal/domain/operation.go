package domain

import "context"

// OperationKind identifies one of the bulk tenant operations. The set is
// closed: the registry is validated at startup to cover exactly these kinds.
type OperationKind string

const (
	OpVerifyDomains      OperationKind = "verify_domains"
	OpSetupDNS           OperationKind = "setup_dns"
	OpSetupDKIM          OperationKind = "setup_dkim"
	OpCreateMailboxes    OperationKind = "create_mailboxes"
	OpConfigureMailboxes OperationKind = "configure_mailboxes"
)

// OperationKinds lists all bulk operations in lifecycle order.
var OperationKinds = []OperationKind{
	OpVerifyDomains,
	OpSetupDNS,
	OpSetupDKIM,
	OpCreateMailboxes,
	OpConfigureMailboxes,
}

// BulkAction is the remote action behind an operation kind: exactly one call
// per dispatch, carrying the full eligible id list. The batch is atomic from
// the caller's point of view; per-tenant outcomes come back as counts.
type BulkAction func(ctx context.Context, ids []string) (OperationResult, error)

// OperationDescriptor is the immutable per-kind configuration: display
// metadata, the statuses that make a tenant eligible, and the remote action
// to invoke. Descriptors are read-only after registry construction.
type OperationDescriptor struct {
	Kind             OperationKind
	Label            string
	Icon             string
	Description      string
	ColorTag         string
	EligibleStatuses []Status
	Action           BulkAction
}

// Eligible reports whether a tenant's status permits this operation.
func (d OperationDescriptor) Eligible(s Status) bool {
	for _, st := range d.EligibleStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// OperationResult summarizes one settled batch call. Failed > 0 on a result
// is a normal completion (partial failure is data, not an exception).
type OperationResult struct {
	Processed int
	Succeeded int
	Failed    int
	Total     int
}

// OperationProgress is the display state of an in-flight operation. Current
// stays below Total during the cosmetic phase and is overwritten by the
// authoritative Processed count at settlement.
type OperationProgress struct {
	Current int
	Total   int
	Status  string
}

// OperationNotifier receives start/complete/error events from the
// orchestrator. Implementations are pure sinks: no return values, no effect
// on orchestration state, and they must not block.
type OperationNotifier interface {
	OnStart(label string)
	OnComplete(label string, result OperationResult)
	OnError(label string, message string)
}
