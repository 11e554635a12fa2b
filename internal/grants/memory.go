package grants

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

type grantSet map[authz.Grant]struct{}

// MemoryStore is an in-process grant store. Writers publish a fresh
// snapshot; readers load one snapshot per call and never see a partial write.
type MemoryStore struct {
	snapshot atomic.Pointer[grantSet]
	mu       sync.Mutex
}

// NewMemoryStore creates a store seeded with grants. Invalid triples are dropped.
func NewMemoryStore(seed ...authz.Grant) *MemoryStore {
	set := make(grantSet, len(seed))
	for _, g := range seed {
		if g.Valid() {
			set[g] = struct{}{}
		}
	}
	s := &MemoryStore{}
	s.snapshot.Store(&set)
	return s
}

func (s *MemoryStore) current() grantSet {
	if p := s.snapshot.Load(); p != nil {
		return *p
	}
	return nil
}

// HasGrant reports whether the triple is present in the current snapshot.
func (s *MemoryStore) HasGrant(ctx context.Context, role authz.Role, resource authz.Resource, action authz.Action) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, ok := s.current()[authz.Grant{Role: role, Resource: resource, Action: action}]
	return ok, nil
}

// RoleGrants returns every grant held by role.
func (s *MemoryStore) RoleGrants(ctx context.Context, role authz.Role) ([]authz.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []authz.Grant
	for g := range s.current() {
		if g.Role == role {
			out = append(out, g)
		}
	}
	sortGrants(out)
	return out, nil
}

// List returns every grant.
func (s *MemoryStore) List(ctx context.Context) ([]authz.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current := s.current()
	out := make([]authz.Grant, 0, len(current))
	for g := range current {
		out = append(out, g)
	}
	sortGrants(out)
	return out, nil
}

// Insert adds a grant.
func (s *MemoryStore) Insert(ctx context.Context, grant authz.Grant) error {
	return s.update(ctx, func(next grantSet) error {
		if _, ok := next[grant]; ok {
			return ErrDuplicate
		}
		next[grant] = struct{}{}
		return nil
	})
}

// Delete removes a grant.
func (s *MemoryStore) Delete(ctx context.Context, grant authz.Grant) error {
	return s.update(ctx, func(next grantSet) error {
		if _, ok := next[grant]; !ok {
			return ErrNotFound
		}
		delete(next, grant)
		return nil
	})
}

// ReplaceRole swaps the grant set of role atomically.
func (s *MemoryStore) ReplaceRole(ctx context.Context, role authz.Role, set []authz.Grant) error {
	return s.update(ctx, func(next grantSet) error {
		for g := range next {
			if g.Role == role {
				delete(next, g)
			}
		}
		for _, g := range set {
			next[g] = struct{}{}
		}
		return nil
	})
}

func (s *MemoryStore) update(ctx context.Context, fn func(grantSet) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.current()
	next := make(grantSet, len(current)+1)
	for g := range current {
		next[g] = struct{}{}
	}
	if err := fn(next); err != nil {
		return err
	}
	s.snapshot.Store(&next)
	return nil
}

func sortGrants(grants []authz.Grant) {
	sort.Slice(grants, func(i, j int) bool {
		return grants[i].Key() < grants[j].Key()
	})
}
