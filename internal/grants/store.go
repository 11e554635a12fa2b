// Package grants stores the (role, resource, action) permission matrix and
// exposes the read port consumed by the authorization engine.
package grants

import (
	"context"
	"errors"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

var (
	// ErrDuplicate indicates the grant already exists.
	ErrDuplicate = errors.New("grants: duplicate grant")
	// ErrNotFound indicates the grant does not exist.
	ErrNotFound = errors.New("grants: not found")
	// ErrInvalidGrant indicates an unknown role, resource or action.
	ErrInvalidGrant = errors.New("grants: invalid grant")
	// ErrOverridden indicates the resource is governed by a compliance
	// override, so a grant for it would never be consulted.
	ErrOverridden = errors.New("grants: resource governed by compliance override")
	// ErrOwnerImplicit indicates a grant for OWNER, which is always allowed.
	ErrOwnerImplicit = errors.New("grants: owner is implicitly allowed")
)

// RoleLoader returns the full grant set for a single role.
type RoleLoader interface {
	RoleGrants(ctx context.Context, role authz.Role) ([]authz.Grant, error)
}

// Repository is the administrative side of the grant store.
type Repository interface {
	List(ctx context.Context) ([]authz.Grant, error)
	Insert(ctx context.Context, grant authz.Grant) error
	Delete(ctx context.Context, grant authz.Grant) error
	// ReplaceRole swaps the whole grant set of role in one step.
	ReplaceRole(ctx context.Context, role authz.Role, set []authz.Grant) error
}

// Store is implemented by every backing store.
type Store interface {
	authz.GrantChecker
	RoleLoader
	Repository
}

func containsGrant(set []authz.Grant, resource authz.Resource, action authz.Action) bool {
	for _, g := range set {
		if g.Resource == resource && g.Action == action {
			return true
		}
	}
	return false
}
