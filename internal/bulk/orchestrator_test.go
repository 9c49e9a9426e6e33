package bulk_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mailforge/mailforge/internal/bulk"
	"github.com/mailforge/mailforge/internal/domain"
)

// --- Mocks ---

type runnerCall struct {
	kind domain.OperationKind
	ids  []string
}

// stubRunner is a controllable domain.BulkRunner. If block is non-nil, Run
// waits until the channel is closed before settling; delay adds a fixed
// latency before settling.
type stubRunner struct {
	mu     sync.Mutex
	calls  []runnerCall
	result domain.OperationResult
	err    error
	block  chan struct{}
	delay  time.Duration
}

func (r *stubRunner) Run(_ context.Context, kind domain.OperationKind, ids []string) (domain.OperationResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, runnerCall{kind: kind, ids: append([]string(nil), ids...)})
	r.mu.Unlock()

	if r.block != nil {
		<-r.block
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.err != nil {
		return domain.OperationResult{}, r.err
	}
	if r.result.Total == 0 {
		return domain.OperationResult{Processed: len(ids), Succeeded: len(ids), Total: len(ids)}, nil
	}
	return r.result, nil
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *stubRunner) call(t *testing.T, i int) runnerCall {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if i >= len(r.calls) {
		t.Fatalf("runner call %d not recorded (have %d)", i, len(r.calls))
	}
	return r.calls[i]
}

// recordingNotifier captures reporter events in order.
type recordingNotifier struct {
	mu        sync.Mutex
	starts    []string
	completes []struct {
		label  string
		result domain.OperationResult
	}
	errors []struct {
		label   string
		message string
	}
}

func (n *recordingNotifier) OnStart(label string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.starts = append(n.starts, label)
}

func (n *recordingNotifier) OnComplete(label string, result domain.OperationResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completes = append(n.completes, struct {
		label  string
		result domain.OperationResult
	}{label, result})
}

func (n *recordingNotifier) OnError(label, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, struct {
		label   string
		message string
	}{label, message})
}

// --- Fixtures ---

func newOrchestrator(t *testing.T, runner *stubRunner, opts bulk.Options) (*bulk.Orchestrator, *recordingNotifier) {
	t.Helper()

	registry, err := bulk.DefaultRegistry(runner)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	notifier := &recordingNotifier{}
	return bulk.New(registry, notifier, opts), notifier
}

func fastOptions() bulk.Options {
	return bulk.Options{TickInterval: 5 * time.Millisecond, HoldDelay: 20 * time.Millisecond}
}

func tenant(id string, status domain.Status) domain.Tenant {
	return domain.Tenant{ID: id, Name: "Tenant " + id, Status: status}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- Tests ---

func TestInvoke_DispatchesOnlyEligibleTenants(t *testing.T) {
	runner := &stubRunner{}
	orch, _ := newOrchestrator(t, runner, fastOptions())

	tenants := []domain.Tenant{
		tenant("1", domain.StatusDomainVerified),
		tenant("2", domain.StatusNew),
	}

	result, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if runner.callCount() != 1 {
		t.Fatalf("runner called %d times, want 1", runner.callCount())
	}
	call := runner.call(t, 0)
	if call.kind != domain.OpSetupDNS {
		t.Errorf("kind = %q, want %q", call.kind, domain.OpSetupDNS)
	}
	if len(call.ids) != 1 || call.ids[0] != "1" {
		t.Errorf("ids = %v, want [1]", call.ids)
	}
	if result.Total != 1 {
		t.Errorf("Total = %d, want 1", result.Total)
	}
}

func TestInvoke_NoEligibleTenants(t *testing.T) {
	runner := &stubRunner{}
	orch, notifier := newOrchestrator(t, runner, fastOptions())

	tenants := []domain.Tenant{
		tenant("1", domain.StatusNew),
		tenant("2", domain.StatusNew),
	}

	_, err := orch.Invoke(context.Background(), domain.OpSetupDKIM, tenants)

	var noEligible *domain.NoEligibleTenantsError
	if !errors.As(err, &noEligible) {
		t.Fatalf("expected NoEligibleTenantsError, got %v", err)
	}
	if runner.callCount() != 0 {
		t.Errorf("runner called %d times, want 0", runner.callCount())
	}
	if _, active := orch.Active(); active {
		t.Error("guard should not be engaged after a no-eligible rejection")
	}

	if len(notifier.errors) != 1 {
		t.Fatalf("got %d error events, want 1", len(notifier.errors))
	}
	if notifier.errors[0].label != "Setup DKIM" {
		t.Errorf("error label = %q, want %q", notifier.errors[0].label, "Setup DKIM")
	}
	if !strings.Contains(notifier.errors[0].message, "no selected tenants are eligible") {
		t.Errorf("error message %q should mention eligibility", notifier.errors[0].message)
	}
	if !strings.Contains(notifier.errors[0].message, string(domain.StatusDNSConfiguring)) {
		t.Errorf("error message %q should name the required status", notifier.errors[0].message)
	}
}

func TestInvoke_GuardDropsConcurrentDispatch(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	orch, notifier := newOrchestrator(t, runner, fastOptions())

	tenants := []domain.Tenant{tenant("1", domain.StatusDomainVerified)}

	done := make(chan error, 1)
	go func() {
		_, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants)
		done <- err
	}()

	waitFor(t, func() bool {
		_, active := orch.Active()
		return active
	}, "first operation to engage the guard")

	// Same kind and a different kind: both must be dropped while active.
	if _, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants); !errors.Is(err, domain.ErrOperationInFlight) {
		t.Errorf("second Invoke error = %v, want ErrOperationInFlight", err)
	}
	other := []domain.Tenant{tenant("2", domain.StatusDomainLinked)}
	if _, err := orch.Invoke(context.Background(), domain.OpVerifyDomains, other); !errors.Is(err, domain.ErrOperationInFlight) {
		t.Errorf("cross-kind Invoke error = %v, want ErrOperationInFlight", err)
	}

	close(runner.block)
	if err := <-done; err != nil {
		t.Fatalf("first Invoke failed: %v", err)
	}

	if runner.callCount() != 1 {
		t.Errorf("runner called %d times, want 1", runner.callCount())
	}
	// Dropped dispatches are silent: only the first operation notified.
	if len(notifier.starts) != 1 {
		t.Errorf("got %d start events, want 1", len(notifier.starts))
	}
}

func TestInvoke_SuccessHoldsThenReleasesGuard(t *testing.T) {
	runner := &stubRunner{result: domain.OperationResult{Processed: 3, Succeeded: 2, Failed: 1, Total: 3}}
	orch, notifier := newOrchestrator(t, runner, fastOptions())

	tenants := []domain.Tenant{
		tenant("1", domain.StatusDomainVerified),
		tenant("2", domain.StatusDomainVerified),
		tenant("3", domain.StatusDomainVerified),
	}

	result, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	want := domain.OperationResult{Processed: 3, Succeeded: 2, Failed: 1, Total: 3}
	if result != want {
		t.Errorf("result = %+v, want %+v", result, want)
	}

	// Immediately after settlement the authoritative counts are displayed
	// and the guard is still held for the display window.
	progress, ok := orch.Progress()
	if !ok {
		t.Fatal("progress should be present during the display hold")
	}
	if progress.Current != 3 || progress.Total != 3 {
		t.Errorf("progress = %d/%d, want 3/3", progress.Current, progress.Total)
	}
	if progress.Status != "Completed: 2 succeeded, 1 failed" {
		t.Errorf("status = %q, want %q", progress.Status, "Completed: 2 succeeded, 1 failed")
	}
	if !orch.RequestMailboxWizard() {
		// Wizard gate shares the guard.
	} else {
		t.Error("mailbox wizard should be denied during the display hold")
	}

	waitFor(t, func() bool {
		_, active := orch.Active()
		return !active
	}, "guard release after hold")

	if _, ok := orch.Progress(); ok {
		t.Error("progress should be cleared after the hold")
	}

	// A second invocation now dispatches.
	if _, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants); err != nil {
		t.Fatalf("second Invoke after settlement failed: %v", err)
	}
	if runner.callCount() != 2 {
		t.Errorf("runner called %d times, want 2", runner.callCount())
	}

	// Partial failure is a completion, not an error.
	if len(notifier.completes) < 1 {
		t.Fatal("expected a completion event")
	}
	if notifier.completes[0].result != want {
		t.Errorf("OnComplete result = %+v, want %+v", notifier.completes[0].result, want)
	}
	if len(notifier.errors) != 0 {
		t.Errorf("got %d error events, want 0", len(notifier.errors))
	}
}

func TestInvoke_RemoteFailureReleasesImmediately(t *testing.T) {
	runner := &stubRunner{err: errors.New("network timeout")}
	orch, notifier := newOrchestrator(t, runner, bulk.Options{
		TickInterval: 5 * time.Millisecond,
		HoldDelay:    time.Hour, // immediate release must not wait on this
	})

	tenants := []domain.Tenant{tenant("1", domain.StatusDomainVerified)}

	_, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants)

	var remoteErr *domain.RemoteActionError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteActionError, got %v", err)
	}
	if remoteErr.Kind != domain.OpSetupDNS {
		t.Errorf("Kind = %q, want %q", remoteErr.Kind, domain.OpSetupDNS)
	}

	// No hold window on failure: the guard is clear as soon as Invoke returns.
	if _, active := orch.Active(); active {
		t.Error("guard should be released immediately on failure")
	}
	if _, ok := orch.Progress(); ok {
		t.Error("progress should be cleared on failure")
	}

	if len(notifier.errors) != 1 {
		t.Fatalf("got %d error events, want 1", len(notifier.errors))
	}
	if notifier.errors[0].label != "Setup DNS" {
		t.Errorf("error label = %q, want %q", notifier.errors[0].label, "Setup DNS")
	}
	if notifier.errors[0].message != "network timeout" {
		t.Errorf("error message = %q, want %q", notifier.errors[0].message, "network timeout")
	}
	if len(notifier.completes) != 0 {
		t.Errorf("got %d completion events, want 0", len(notifier.completes))
	}

	// The orchestrator is usable again without any delay.
	runner.err = nil
	if _, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants); err != nil {
		t.Fatalf("Invoke after failure: %v", err)
	}
}

func TestInvoke_UnknownKind(t *testing.T) {
	runner := &stubRunner{}
	orch, notifier := newOrchestrator(t, runner, fastOptions())

	_, err := orch.Invoke(context.Background(), domain.OperationKind("reboot_universe"), nil)
	if err == nil {
		t.Fatal("expected error for unknown operation kind")
	}
	if runner.callCount() != 0 {
		t.Errorf("runner called %d times, want 0", runner.callCount())
	}
	if len(notifier.errors) != 0 || len(notifier.starts) != 0 {
		t.Error("unknown kind should not notify")
	}
}

func TestProgress_CosmeticPhaseStaysBelowTotal(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	orch, _ := newOrchestrator(t, runner, bulk.Options{
		TickInterval: 2 * time.Millisecond,
		HoldDelay:    20 * time.Millisecond,
	})

	tenants := []domain.Tenant{
		tenant("1", domain.StatusDKIMEnabled),
		tenant("2", domain.StatusDKIMEnabled),
		tenant("3", domain.StatusDKIMEnabled),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Invoke(context.Background(), domain.OpCreateMailboxes, tenants)
	}()

	waitFor(t, func() bool {
		p, ok := orch.Progress()
		return ok && p.Current > 0
	}, "cosmetic progress to advance")

	// Let the estimator run well past total*tick: it must cap at Total-1.
	time.Sleep(20 * time.Millisecond)

	p, ok := orch.Progress()
	if !ok {
		t.Fatal("progress should be present while in flight")
	}
	if p.Current >= p.Total {
		t.Errorf("cosmetic Current = %d, must stay below Total = %d", p.Current, p.Total)
	}
	if p.Total != 3 {
		t.Errorf("Total = %d, want 3", p.Total)
	}

	close(runner.block)
	<-done

	// Authoritative counts overwrite the estimate.
	p, ok = orch.Progress()
	if !ok {
		t.Fatal("progress should be present during the display hold")
	}
	if p.Current != 3 || p.Total != 3 {
		t.Errorf("settled progress = %d/%d, want 3/3", p.Current, p.Total)
	}
}

func TestProgress_TrailingTickCannotOverwriteSettledCounts(t *testing.T) {
	tenants := []domain.Tenant{
		tenant("1", domain.StatusDomainVerified),
		tenant("2", domain.StatusDomainVerified),
		tenant("3", domain.StatusDomainVerified),
	}

	// An action latency in the same range as the tick interval makes a tick
	// likely to be in flight at the exact moment of settlement. Run many
	// rounds to hit that window.
	for i := 0; i < 200; i++ {
		runner := &stubRunner{
			result: domain.OperationResult{Processed: 1, Succeeded: 1, Total: 3},
			delay:  time.Duration(i%4) * 500 * time.Microsecond,
		}
		orch, _ := newOrchestrator(t, runner, bulk.Options{
			TickInterval: time.Millisecond,
			HoldDelay:    time.Hour, // keep the hold window open for inspection
		})

		result, err := orch.Invoke(context.Background(), domain.OpSetupDNS, tenants)
		if err != nil {
			t.Fatalf("round %d: Invoke failed: %v", i, err)
		}

		// Give a straggling tick time to fire inside the hold window.
		time.Sleep(3 * time.Millisecond)

		p, ok := orch.Progress()
		if !ok {
			t.Fatalf("round %d: progress should be present during the display hold", i)
		}
		if p.Current != result.Processed || p.Total != result.Total {
			t.Fatalf("round %d: progress = %d/%d, want %d/%d after settlement",
				i, p.Current, p.Total, result.Processed, result.Total)
		}
		if p.Status != "Completed: 1 succeeded, 0 failed" {
			t.Fatalf("round %d: status = %q, want the completion summary", i, p.Status)
		}
	}
}

func TestInvoke_GuardDropsIneligibleSelectionWhileActive(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	orch, notifier := newOrchestrator(t, runner, fastOptions())

	tenants := []domain.Tenant{tenant("1", domain.StatusDomainVerified)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Invoke(context.Background(), domain.OpSetupDNS, tenants)
	}()

	waitFor(t, func() bool {
		_, active := orch.Active()
		return active
	}, "operation to engage the guard")

	// A selection with no eligible tenants is still a silent drop while the
	// guard is held: in-flight wins over the eligibility rejection.
	ineligible := []domain.Tenant{tenant("2", domain.StatusNew)}
	if _, err := orch.Invoke(context.Background(), domain.OpSetupDKIM, ineligible); !errors.Is(err, domain.ErrOperationInFlight) {
		t.Errorf("Invoke error = %v, want ErrOperationInFlight", err)
	}

	close(runner.block)
	<-done

	if len(notifier.errors) != 0 {
		t.Errorf("got %d error events, want 0", len(notifier.errors))
	}
	if len(notifier.starts) != 1 {
		t.Errorf("got %d start events, want 1", len(notifier.starts))
	}
}

func TestRequestMailboxWizard_GatedByGuard(t *testing.T) {
	runner := &stubRunner{block: make(chan struct{})}
	orch, _ := newOrchestrator(t, runner, fastOptions())

	if !orch.RequestMailboxWizard() {
		t.Error("wizard should be allowed while idle")
	}

	tenants := []domain.Tenant{tenant("1", domain.StatusMailboxesCreating)}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = orch.Invoke(context.Background(), domain.OpConfigureMailboxes, tenants)
	}()

	waitFor(t, func() bool {
		_, active := orch.Active()
		return active
	}, "operation to engage the guard")

	if orch.RequestMailboxWizard() {
		t.Error("wizard should be denied while an operation is active")
	}

	close(runner.block)
	<-done

	waitFor(t, orch.RequestMailboxWizard, "wizard gate to reopen after settlement")
}
