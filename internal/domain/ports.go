package domain

import "context"

// TenantRepository defines the persistence contract for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetBySlug(ctx context.Context, slug string) (Tenant, error)
	List(ctx context.Context, filter ListFilter) ([]Tenant, error)
	ListByIDs(ctx context.Context, ids []string) ([]Tenant, error)
	Update(ctx context.Context, tenant Tenant) error
}

// ListFilter holds optional criteria for listing tenants.
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// EventPublisher defines the contract for emitting lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, tenant Tenant) error
}

// BulkRunner executes the remote action behind a bulk operation kind:
// one call per batch, returning per-tenant outcomes as counts.
type BulkRunner interface {
	Run(ctx context.Context, kind OperationKind, ids []string) (OperationResult, error)
}

// TransitionValidator checks lifecycle transitions against the state machine
// and returns the destination status for a valid event.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
