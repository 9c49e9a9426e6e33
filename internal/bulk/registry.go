package bulk

import (
	"context"
	"fmt"

	"github.com/mailforge/mailforge/internal/domain"
)

// Registry is the static table of bulk operation descriptors. It is built
// once at startup, validated for completeness, and read-only afterwards.
type Registry struct {
	descriptors map[domain.OperationKind]domain.OperationDescriptor
}

// NewRegistry validates the given descriptors and builds a registry.
// Construction fails when a kind is missing, duplicated or unknown, when an
// eligible-status set is empty or references a status outside the lifecycle,
// or when a descriptor has no action bound.
func NewRegistry(descriptors []domain.OperationDescriptor) (*Registry, error) {
	known := make(map[domain.OperationKind]bool, len(domain.OperationKinds))
	for _, k := range domain.OperationKinds {
		known[k] = true
	}
	statuses := make(map[domain.Status]bool, len(domain.Lifecycle))
	for _, s := range domain.Lifecycle {
		statuses[s] = true
	}

	table := make(map[domain.OperationKind]domain.OperationDescriptor, len(descriptors))
	for _, d := range descriptors {
		if !known[d.Kind] {
			return nil, fmt.Errorf("unknown operation kind %q", d.Kind)
		}
		if _, dup := table[d.Kind]; dup {
			return nil, fmt.Errorf("duplicate descriptor for operation %q", d.Kind)
		}
		if d.Label == "" {
			return nil, fmt.Errorf("operation %q has no label", d.Kind)
		}
		if len(d.EligibleStatuses) == 0 {
			return nil, fmt.Errorf("operation %q has an empty eligible-status set", d.Kind)
		}
		for _, s := range d.EligibleStatuses {
			if !statuses[s] {
				return nil, fmt.Errorf("operation %q references unknown status %q", d.Kind, s)
			}
		}
		if d.Action == nil {
			return nil, fmt.Errorf("operation %q has no action bound", d.Kind)
		}
		table[d.Kind] = d
	}

	for _, k := range domain.OperationKinds {
		if _, ok := table[k]; !ok {
			return nil, fmt.Errorf("no descriptor for operation %q", k)
		}
	}

	return &Registry{descriptors: table}, nil
}

// Descriptor looks up the descriptor for a kind.
func (r *Registry) Descriptor(kind domain.OperationKind) (domain.OperationDescriptor, bool) {
	d, ok := r.descriptors[kind]
	return d, ok
}

// Descriptors returns all descriptors in lifecycle order.
func (r *Registry) Descriptors() []domain.OperationDescriptor {
	out := make([]domain.OperationDescriptor, 0, len(domain.OperationKinds))
	for _, k := range domain.OperationKinds {
		out = append(out, r.descriptors[k])
	}
	return out
}

// DefaultRegistry builds the production registry: the five bulk operations
// of the setup wizard, each bound to the runner's remote action for its kind.
func DefaultRegistry(runner domain.BulkRunner) (*Registry, error) {
	descriptors := []domain.OperationDescriptor{
		{
			Kind:             domain.OpVerifyDomains,
			Label:            "Verify Domains",
			Icon:             "globe",
			Description:      "Confirm DNS ownership of each tenant's sending domain",
			ColorTag:         "blue",
			EligibleStatuses: []domain.Status{domain.StatusDomainLinked},
		},
		{
			Kind:             domain.OpSetupDNS,
			Label:            "Setup DNS",
			Icon:             "server",
			Description:      "Create SPF, MX and tracking records for verified domains",
			ColorTag:         "indigo",
			EligibleStatuses: []domain.Status{domain.StatusDomainVerified},
		},
		{
			Kind:             domain.OpSetupDKIM,
			Label:            "Setup DKIM",
			Icon:             "key",
			Description:      "Publish DKIM signing keys for domains with DNS in place",
			ColorTag:         "violet",
			EligibleStatuses: []domain.Status{domain.StatusDNSConfiguring},
		},
		{
			Kind:             domain.OpCreateMailboxes,
			Label:            "Create Mailboxes",
			Icon:             "inbox",
			Description:      "Provision mailbox accounts for DKIM-enabled tenants",
			ColorTag:         "emerald",
			EligibleStatuses: []domain.Status{domain.StatusDKIMEnabled},
		},
		{
			Kind:             domain.OpConfigureMailboxes,
			Label:            "Configure Mailboxes",
			Icon:             "settings",
			Description:      "Apply warmup and signature settings to created mailboxes",
			ColorTag:         "amber",
			EligibleStatuses: []domain.Status{domain.StatusMailboxesCreating, domain.StatusMailboxesConfiguring},
		},
	}

	for i := range descriptors {
		kind := descriptors[i].Kind
		descriptors[i].Action = func(ctx context.Context, ids []string) (domain.OperationResult, error) {
			return runner.Run(ctx, kind, ids)
		}
	}

	return NewRegistry(descriptors)
}
