package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrOperationInFlight is returned when a bulk dispatch is attempted
	// while another operation holds the guard. Concurrent attempts are
	// dropped, not queued.
	ErrOperationInFlight = errors.New("a bulk operation is already in flight")
)

// SlugConflictError is returned when a tenant slug is already in use.
type SlugConflictError struct {
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q is already in use", e.Slug)
}

// TransitionError is returned when a state transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// NoEligibleTenantsError is returned when none of the selected tenants are
// in a status the operation accepts. This is a normal, non-fatal outcome:
// no remote call is made.
type NoEligibleTenantsError struct {
	Kind     OperationKind
	Required []Status
}

func (e *NoEligibleTenantsError) Error() string {
	required := make([]string, len(e.Required))
	for i, s := range e.Required {
		required[i] = string(s)
	}
	return fmt.Sprintf("no selected tenants are eligible for %q; required status: %s",
		e.Kind, strings.Join(required, ", "))
}

// RemoteActionError wraps a failed batch call. Distinct from a completed
// result whose Failed count equals Total: that one is data, this one is the
// call itself rejecting.
type RemoteActionError struct {
	Kind OperationKind
	Err  error
}

func (e *RemoteActionError) Error() string {
	return fmt.Sprintf("operation %q failed: %v", e.Kind, e.Err)
}

func (e *RemoteActionError) Unwrap() error { return e.Err }
