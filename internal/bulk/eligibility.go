package bulk

import "github.com/mailforge/mailforge/internal/domain"

// Eligible returns the tenants whose status the descriptor accepts.
// Selection order is preserved; the input is never mutated. An empty
// selection or a selection with no matches yields an empty result.
func Eligible(desc domain.OperationDescriptor, tenants []domain.Tenant) []domain.Tenant {
	eligible := make([]domain.Tenant, 0, len(tenants))
	for _, t := range tenants {
		if desc.Eligible(t.Status) {
			eligible = append(eligible, t)
		}
	}
	return eligible
}
