package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mailforge/mailforge/internal/app"
	"github.com/mailforge/mailforge/internal/bulk"
	"github.com/mailforge/mailforge/internal/domain"
)

// TenantResponse is the API representation of a tenant.
type TenantResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	Name      string `json:"name" doc:"Display name"`
	Slug      string `json:"slug" doc:"URL-friendly identifier"`
	Domain    string `json:"domain" doc:"Sending domain"`
	Status    string `json:"status" doc:"Lifecycle state"`
	Plan      string `json:"plan" doc:"Subscription plan"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toTenantResponse(t domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Domain:    t.Domain,
		Status:    string(t.Status),
		Plan:      t.Plan,
		CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: t.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// --- Create Tenant ---

type CreateTenantInput struct {
	Body struct {
		Name   string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Slug   string `json:"slug" minLength:"1" maxLength:"100" pattern:"^[a-z0-9]+(?:-[a-z0-9]+)*$" doc:"URL-friendly identifier (lowercase, hyphens)"`
		Domain string `json:"domain" minLength:"1" maxLength:"255" doc:"Sending domain for the tenant's cold email campaigns"`
		Plan   string `json:"plan,omitempty" default:"free" doc:"Subscription plan"`
	}
}

type CreateTenantOutput struct {
	Body TenantResponse
}

// --- Get Tenant ---

type GetTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body TenantResponse
}

// --- List Tenants ---

type ListTenantsInput struct {
	Status string `query:"status" required:"false" doc:"Filter by status"`
	Limit  int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListTenantsOutput struct {
	Body []TenantResponse
}

// --- Transition ---

type TransitionInput struct {
	ID   string `path:"id" doc:"Tenant ID"`
	Body struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"import,link_domain,verify_domain,configure_dns,enable_dkim,create_mailboxes,configure_mailboxes,activate"`
	}
}

type TransitionOutput struct {
	Body TenantResponse
}

// --- Operations catalog ---

// OperationResponse is the API representation of an operation descriptor.
// The bound action is deliberately absent; it is invoked, never exposed.
type OperationResponse struct {
	Kind             string   `json:"kind" doc:"Operation identifier"`
	Label            string   `json:"label" doc:"Display label"`
	Icon             string   `json:"icon" doc:"Icon name"`
	Description      string   `json:"description" doc:"Short description"`
	ColorTag         string   `json:"color_tag" doc:"Display color tag"`
	EligibleStatuses []string `json:"eligible_statuses" doc:"Statuses a tenant must be in to participate"`
}

func toOperationResponse(d domain.OperationDescriptor) OperationResponse {
	statuses := make([]string, len(d.EligibleStatuses))
	for i, s := range d.EligibleStatuses {
		statuses[i] = string(s)
	}
	return OperationResponse{
		Kind:             string(d.Kind),
		Label:            d.Label,
		Icon:             d.Icon,
		Description:      d.Description,
		ColorTag:         d.ColorTag,
		EligibleStatuses: statuses,
	}
}

type ListOperationsOutput struct {
	Body []OperationResponse
}

// --- Invoke operation ---

type InvokeOperationInput struct {
	Kind string `path:"kind" doc:"Operation kind to invoke"`
	Body struct {
		TenantIDs []string `json:"tenant_ids" minItems:"1" doc:"Selected tenant ids; ineligible ones are filtered out"`
	}
}

type InvokeOperationOutput struct {
	Body struct {
		Processed int `json:"processed" doc:"Tenants the batch attempted"`
		Succeeded int `json:"succeeded" doc:"Tenants that advanced"`
		Failed    int `json:"failed" doc:"Tenants that did not advance"`
		Total     int `json:"total" doc:"Eligible tenants dispatched"`
	}
}

// --- Active operation ---

type ActiveOperationOutput struct {
	Body struct {
		Active  bool   `json:"active" doc:"Whether an operation holds the guard"`
		Kind    string `json:"kind,omitempty" doc:"Kind of the active operation"`
		Current int    `json:"current" doc:"Display progress counter"`
		Total   int    `json:"total" doc:"Batch size"`
		Status  string `json:"status,omitempty" doc:"Display status line"`
	}
}

// --- Mailbox wizard ---

type OpenMailboxWizardOutput struct {
	Body struct {
		Granted bool `json:"granted" doc:"Whether the wizard may open"`
	}
}

// Register adds all tenant and operation API routes to the Huma API.
func Register(api huma.API, svc *app.TenantService, orch *bulk.Orchestrator, registry *bulk.Registry) {
	huma.Register(api, huma.Operation{
		OperationID: "create-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants",
		Summary:     "Create a new tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
		tenant, err := svc.Create(ctx, input.Body.Name, input.Body.Slug, input.Body.Domain, input.Body.Plan)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		tenant, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTenantOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants",
		Summary:     "List tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		filter := domain.ListFilter{
			Limit:  input.Limit,
			Offset: input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]TenantResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toTenantResponse(t)
		}
		return &ListTenantsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-tenant",
		Method:      http.MethodPost,
		Path:        "/api/v1/tenants/{id}/events",
		Summary:     "Trigger a lifecycle event",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TransitionInput) (*TransitionOutput, error) {
		tenant, err := svc.Transition(ctx, input.ID, domain.Event(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &TransitionOutput{Body: toTenantResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-operations",
		Method:      http.MethodGet,
		Path:        "/api/v1/operations",
		Summary:     "List the bulk operation catalog",
		Tags:        []string{"Operations"},
	}, func(ctx context.Context, _ *struct{}) (*ListOperationsOutput, error) {
		descriptors := registry.Descriptors()
		resp := make([]OperationResponse, len(descriptors))
		for i, d := range descriptors {
			resp[i] = toOperationResponse(d)
		}
		return &ListOperationsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "invoke-operation",
		Method:      http.MethodPost,
		Path:        "/api/v1/operations/{kind}/invoke",
		Summary:     "Invoke a bulk operation against a tenant selection",
		Tags:        []string{"Operations"},
	}, func(ctx context.Context, input *InvokeOperationInput) (*InvokeOperationOutput, error) {
		tenants, err := svc.ListByIDs(ctx, input.Body.TenantIDs)
		if err != nil {
			return nil, toHumaError(err)
		}

		result, err := orch.Invoke(ctx, domain.OperationKind(input.Kind), tenants)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &InvokeOperationOutput{}
		out.Body.Processed = result.Processed
		out.Body.Succeeded = result.Succeeded
		out.Body.Failed = result.Failed
		out.Body.Total = result.Total
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "active-operation",
		Method:      http.MethodGet,
		Path:        "/api/v1/operations/active",
		Summary:     "Get the currently active operation's progress",
		Tags:        []string{"Operations"},
	}, func(ctx context.Context, _ *struct{}) (*ActiveOperationOutput, error) {
		out := &ActiveOperationOutput{}
		kind, active := orch.Active()
		if !active {
			return out, nil
		}
		progress, _ := orch.Progress()
		out.Body.Active = true
		out.Body.Kind = string(kind)
		out.Body.Current = progress.Current
		out.Body.Total = progress.Total
		out.Body.Status = progress.Status
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "open-mailbox-wizard",
		Method:      http.MethodPost,
		Path:        "/api/v1/mailbox-wizard/open",
		Summary:     "Request the generate-mailboxes wizard",
		Tags:        []string{"Operations"},
	}, func(ctx context.Context, _ *struct{}) (*OpenMailboxWizardOutput, error) {
		if !orch.RequestMailboxWizard() {
			return nil, huma.Error409Conflict("a bulk operation is in progress")
		}
		out := &OpenMailboxWizardOutput{}
		out.Body.Granted = true
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrTenantNotFound) {
		return huma.Error404NotFound("tenant not found")
	}
	if errors.Is(err, domain.ErrOperationInFlight) {
		return huma.Error409Conflict("another bulk operation is in progress")
	}

	var slugErr *domain.SlugConflictError
	if errors.As(err, &slugErr) {
		return huma.Error409Conflict(slugErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var eligErr *domain.NoEligibleTenantsError
	if errors.As(err, &eligErr) {
		return huma.Error422UnprocessableEntity(eligErr.Error())
	}

	var remoteErr *domain.RemoteActionError
	if errors.As(err, &remoteErr) {
		return huma.Error502BadGateway(remoteErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
