package authz

import (
	"strings"

	"golang.org/x/text/cases"
)

// Role is the closed set of organisation roles. The zero value RoleNone is
// what unrecognised input resolves to and never satisfies a rule.
type Role uint8

const (
	RoleNone Role = iota
	RoleInventory
	RoleAccountant
	RoleAdmin
	RoleOwner
)

var roleNames = map[Role]string{
	RoleOwner:      "OWNER",
	RoleAdmin:      "ADMIN",
	RoleAccountant: "ACCOUNTANT",
	RoleInventory:  "INVENTORY",
}

// ParseRole canonicalises free-form role text. Matching is case-insensitive
// and anything unknown maps to RoleNone.
func ParseRole(raw string) Role {
	key := canonical(raw)
	if key == "" {
		return RoleNone
	}
	for role, name := range roleNames {
		if canonical(name) == key {
			return role
		}
	}
	return RoleNone
}

// String returns the canonical upper-case role name.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "NONE"
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Rank orders roles by privilege; RoleNone ranks lowest.
func (r Role) Rank() int {
	if !r.Valid() {
		return 0
	}
	return int(r)
}

// AtLeast reports whether r is at least as privileged as other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Rank() >= other.Rank()
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; unknown text yields RoleNone.
func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}

// Roles lists the known roles, most privileged first.
func Roles() []Role {
	return []Role{RoleOwner, RoleAdmin, RoleAccountant, RoleInventory}
}

func canonical(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "-", "_")
	raw = strings.ReplaceAll(raw, " ", "_")
	// Casers carry state, so each call gets its own.
	return cases.Fold().String(raw)
}
