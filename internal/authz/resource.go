package authz

// Resource names a protected business domain.
type Resource string

// Protected resources.
const (
	ResourceUnknown       Resource = ""
	ResourceAppointments  Resource = "APPOINTMENTS"
	ResourceClients       Resource = "CLIENTS"
	ResourceInvoices      Resource = "INVOICES"
	ResourcePayments      Resource = "PAYMENTS"
	ResourceJobcards      Resource = "JOBCARDS"
	ResourceSuppliers     Resource = "SUPPLIERS"
	ResourcePurchases     Resource = "PURCHASES"
	ResourceGoodsReceived Resource = "GOODS_RECEIVED"
	ResourceExpenses      Resource = "EXPENSES"
	ResourceProducts      Resource = "PRODUCTS"
	ResourceAdjustments   Resource = "ADJUSTMENTS"
	ResourceTransfers     Resource = "TRANSFERS"
	ResourceBanking       Resource = "BANKING"
	ResourceReports       Resource = "REPORTS"
	ResourceSettings      Resource = "SETTINGS"
)

var resources = []Resource{
	ResourceAppointments,
	ResourceClients,
	ResourceInvoices,
	ResourcePayments,
	ResourceJobcards,
	ResourceSuppliers,
	ResourcePurchases,
	ResourceGoodsReceived,
	ResourceExpenses,
	ResourceProducts,
	ResourceAdjustments,
	ResourceTransfers,
	ResourceBanking,
	ResourceReports,
	ResourceSettings,
}

// Resources returns every protected resource in display order.
func Resources() []Resource {
	out := make([]Resource, len(resources))
	copy(out, resources)
	return out
}

// ParseResource resolves resource text case-insensitively. Unknown input
// yields ResourceUnknown.
func ParseResource(raw string) Resource {
	key := canonical(raw)
	if key == "" {
		return ResourceUnknown
	}
	for _, res := range resources {
		if canonical(string(res)) == key {
			return res
		}
	}
	return ResourceUnknown
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, res := range resources {
		if res == r {
			return true
		}
	}
	return false
}

func (r Resource) String() string {
	if r == ResourceUnknown {
		return "UNKNOWN"
	}
	return string(r)
}

// Action is an operation performed on a resource.
type Action string

// Actions.
const (
	ActionUnknown Action = ""
	ActionView    Action = "VIEW"
	ActionCreate  Action = "CREATE"
	ActionEdit    Action = "EDIT"
	ActionDelete  Action = "DELETE"
)

var actions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

// Actions returns every action.
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// ParseAction resolves action text case-insensitively. Unknown input yields
// ActionUnknown.
func ParseAction(raw string) Action {
	key := canonical(raw)
	if key == "" {
		return ActionUnknown
	}
	for _, act := range actions {
		if canonical(string(act)) == key {
			return act
		}
	}
	return ActionUnknown
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	for _, act := range actions {
		if act == a {
			return true
		}
	}
	return false
}

func (a Action) String() string {
	if a == ActionUnknown {
		return "UNKNOWN"
	}
	return string(a)
}

// Grant states that Role may perform Action on Resource.
type Grant struct {
	Role     Role     `json:"role"`
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// Valid reports whether every part of the triple is known.
func (g Grant) Valid() bool {
	return g.Role.Valid() && g.Resource.Valid() && g.Action.Valid()
}

// Key is a stable identifier for the triple.
func (g Grant) Key() string {
	return g.Role.String() + ":" + string(g.Resource) + ":" + string(g.Action)
}
