package domain

import "time"

// Status represents the lifecycle state of a tenant moving through
// email-infrastructure setup.
type Status string

const (
	StatusNew                  Status = "new"
	StatusImported             Status = "imported"
	StatusDomainLinked         Status = "domain_linked"
	StatusDomainVerified       Status = "domain_verified"
	StatusDNSConfiguring       Status = "dns_configuring"
	StatusDKIMEnabled          Status = "dkim_enabled"
	StatusMailboxesCreating    Status = "mailboxes_creating"
	StatusMailboxesConfiguring Status = "mailboxes_configuring"
	StatusReady                Status = "ready"
)

// Lifecycle lists all statuses in setup order. The position of a status in
// this slice is its stage; bulk operations advance tenants along it.
var Lifecycle = []Status{
	StatusNew,
	StatusImported,
	StatusDomainLinked,
	StatusDomainVerified,
	StatusDNSConfiguring,
	StatusDKIMEnabled,
	StatusMailboxesCreating,
	StatusMailboxesConfiguring,
	StatusReady,
}

// Event represents an action that triggers a state transition.
type Event string

const (
	EventImport             Event = "import"
	EventLinkDomain         Event = "link_domain"
	EventVerifyDomain       Event = "verify_domain"
	EventConfigureDNS       Event = "configure_dns"
	EventEnableDKIM         Event = "enable_dkim"
	EventCreateMailboxes    Event = "create_mailboxes"
	EventConfigureMailboxes Event = "configure_mailboxes"
	EventActivate           Event = "activate"
)

// Transition defines a valid state change: an event moves a tenant from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid state changes in the tenant lifecycle.
// This is domain knowledge consumed by the FSM adapter. The setup chain is
// strictly forward; there are no backward edges.
var Transitions = []Transition{
	{Event: EventImport, Src: StatusNew, Dst: StatusImported},
	{Event: EventLinkDomain, Src: StatusImported, Dst: StatusDomainLinked},
	{Event: EventVerifyDomain, Src: StatusDomainLinked, Dst: StatusDomainVerified},
	{Event: EventConfigureDNS, Src: StatusDomainVerified, Dst: StatusDNSConfiguring},
	{Event: EventEnableDKIM, Src: StatusDNSConfiguring, Dst: StatusDKIMEnabled},
	{Event: EventCreateMailboxes, Src: StatusDKIMEnabled, Dst: StatusMailboxesCreating},
	{Event: EventConfigureMailboxes, Src: StatusMailboxesCreating, Dst: StatusMailboxesConfiguring},
	{Event: EventConfigureMailboxes, Src: StatusMailboxesConfiguring, Dst: StatusReady},
	{Event: EventActivate, Src: StatusMailboxesConfiguring, Dst: StatusReady},
}

// Tenant is the core domain entity: one provisioned customer unit moving
// through the setup lifecycle. Status is owned by the backend; clients only
// read it and refetch after bulk operations complete.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Domain    string
	Status    Status
	Plan      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTenant creates a tenant in the initial "new" state.
func NewTenant(id, name, slug, domain, plan string) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:        id,
		Name:      name,
		Slug:      slug,
		Domain:    domain,
		Status:    StatusNew,
		Plan:      plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
