package authz

// complianceOverrides pins sensitive financial resources to a fixed role
// allow-list. The table is compiled in; grant data can neither widen nor
// narrow it. OWNER is resolved before overrides are consulted.
var complianceOverrides = map[Resource][]Role{
	ResourceBanking: {RoleAccountant},
	ResourceReports: {RoleAccountant},
}

// Override returns the fixed allow-list for resource and whether resource is
// governed by a compliance override at all.
func Override(resource Resource) ([]Role, bool) {
	allowed, ok := complianceOverrides[resource]
	if !ok {
		return nil, false
	}
	out := make([]Role, len(allowed))
	copy(out, allowed)
	return out, true
}

// Overridden reports whether resource bypasses the grant store.
func Overridden(resource Resource) bool {
	_, ok := complianceOverrides[resource]
	return ok
}

func overrideAllows(resource Resource, role Role) bool {
	for _, allowed := range complianceOverrides[resource] {
		if allowed == role {
			return true
		}
	}
	return false
}
