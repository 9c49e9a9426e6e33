package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mailforge/mailforge/internal/domain"
)

// Default timings for the cosmetic progress tick and the post-completion
// display hold. Both are configurable through Options.
const (
	DefaultTickInterval = 1500 * time.Millisecond
	DefaultHoldDelay    = 3 * time.Second
)

// Options tunes the orchestrator's display timings.
type Options struct {
	// TickInterval is the cadence of the cosmetic progress counter while
	// the batch call is in flight.
	TickInterval time.Duration
	// HoldDelay is how long a completed operation's final counts stay
	// visible before the guard is released.
	HoldDelay time.Duration
}

// Orchestrator serializes bulk tenant operations: at most one operation may
// be active at a time, each dispatch issues exactly one remote call with the
// full eligible id list, and the guard is released on every settlement path.
//
// Callers are expected to disable dispatch while an operation runs, but the
// orchestrator is safe under concurrent invocation: a second Invoke while
// the guard is engaged is dropped, never queued.
type Orchestrator struct {
	registry *Registry
	notifier domain.OperationNotifier
	tick     time.Duration
	hold     time.Duration

	mu        sync.Mutex
	active    domain.OperationKind // "" when idle
	progress  domain.OperationProgress
	est       *estimator // estimator of the current run, nil once settled
	holdTimer *time.Timer
}

// New creates an orchestrator over the given registry, reporting to the
// given notifier. Zero Options fields fall back to the defaults.
func New(registry *Registry, notifier domain.OperationNotifier, opts Options) *Orchestrator {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.HoldDelay <= 0 {
		opts.HoldDelay = DefaultHoldDelay
	}
	return &Orchestrator{
		registry: registry,
		notifier: notifier,
		tick:     opts.TickInterval,
		hold:     opts.HoldDelay,
	}
}

// Invoke filters the selection by eligibility and dispatches the operation's
// remote action once against the eligible subset.
//
// Outcomes:
//   - guard busy: the call is a no-op and ErrOperationInFlight is returned,
//     with no notification, regardless of the selection's eligibility;
//   - no eligible tenants: OnError is emitted, no remote call is made, the
//     guard is untouched, and a NoEligibleTenantsError is returned;
//   - remote failure: OnError is emitted and the guard is released
//     immediately;
//   - success: OnComplete is emitted with the authoritative result, which
//     stays displayed for the hold delay before the guard is released.
func (o *Orchestrator) Invoke(ctx context.Context, kind domain.OperationKind, tenants []domain.Tenant) (domain.OperationResult, error) {
	desc, ok := o.registry.Descriptor(kind)
	if !ok {
		return domain.OperationResult{}, fmt.Errorf("unknown operation kind %q", kind)
	}

	// The guard comes before eligibility: while an operation is active
	// (including the display hold), every dispatch is dropped silently.
	if o.busy() {
		return domain.OperationResult{}, domain.ErrOperationInFlight
	}

	eligible := Eligible(desc, tenants)
	if len(eligible) == 0 {
		err := &domain.NoEligibleTenantsError{Kind: kind, Required: desc.EligibleStatuses}
		o.notifier.OnError(desc.Label, err.Error())
		return domain.OperationResult{}, err
	}

	if !o.engage(kind, len(eligible)) {
		return domain.OperationResult{}, domain.ErrOperationInFlight
	}

	o.notifier.OnStart(desc.Label)

	est := o.startEstimator()

	ids := make([]string, len(eligible))
	for i, t := range eligible {
		ids[i] = t.ID
	}

	// The single batch call. No cancellation mid-flight: once dispatched it
	// runs to settlement.
	result, err := desc.Action(ctx, ids)

	o.retireEstimator(est)

	if err != nil {
		o.release()
		o.notifier.OnError(desc.Label, err.Error())
		return domain.OperationResult{}, &domain.RemoteActionError{Kind: kind, Err: err}
	}

	o.settle(result)
	o.notifier.OnComplete(desc.Label, result)
	return result, nil
}

// Active returns the kind of the operation currently holding the guard.
func (o *Orchestrator) Active() (domain.OperationKind, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active, o.active != ""
}

// Progress returns a copy of the current display progress. The second
// return is false while the orchestrator is idle.
func (o *Orchestrator) Progress() (domain.OperationProgress, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress, o.active != ""
}

// RequestMailboxWizard reports whether the generate-mailboxes wizard may
// open. The wizard shares the bulk-operation guard: it is denied while any
// operation is active, including the post-completion display window.
func (o *Orchestrator) RequestMailboxWizard() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active == ""
}

// busy reports whether an operation holds the guard.
func (o *Orchestrator) busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active != ""
}

// engage claims the guard for kind. It fails when another operation is
// active or still within its display hold.
func (o *Orchestrator) engage(kind domain.OperationKind, total int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != "" {
		return false
	}
	o.active = kind
	o.progress = domain.OperationProgress{Current: 0, Total: total, Status: "Starting..."}
	return true
}

// settle writes the authoritative counts and schedules the guard release
// after the display hold.
func (o *Orchestrator) settle(result domain.OperationResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = domain.OperationProgress{
		Current: result.Processed,
		Total:   result.Total,
		Status:  fmt.Sprintf("Completed: %d succeeded, %d failed", result.Succeeded, result.Failed),
	}
	o.holdTimer = time.AfterFunc(o.hold, o.release)
}

// release clears the guard and progress. Every path that engages the guard
// ends here: immediately on error, after the hold on success.
func (o *Orchestrator) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = ""
	o.progress = domain.OperationProgress{}
	if o.holdTimer != nil {
		o.holdTimer.Stop()
		o.holdTimer = nil
	}
}
