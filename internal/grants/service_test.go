package grants

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

type stubInvalidator struct {
	bumps int
	err   error
}

func (s *stubInvalidator) Bump(context.Context) error {
	s.bumps++
	return s.err
}

type stubWarmer struct {
	enqueued int
}

func (s *stubWarmer) EnqueueGrantCacheWarm(context.Context) error {
	s.enqueued++
	return nil
}

func TestServiceGrantCanonicalises(t *testing.T) {
	store := NewMemoryStore()
	inv := &stubInvalidator{}
	warm := &stubWarmer{}
	svc := NewService(store, inv, warm, nil)

	grant, err := svc.Grant(context.Background(), GrantInput{Role: "admin", Resource: "invoices", Action: "create"})
	require.NoError(t, err)
	assert.Equal(t, authz.Grant{Role: authz.RoleAdmin, Resource: authz.ResourceInvoices, Action: authz.ActionCreate}, grant)
	assert.Equal(t, 1, inv.bumps)
	assert.Equal(t, 1, warm.enqueued)

	ok, err := store.HasGrant(context.Background(), authz.RoleAdmin, authz.ResourceInvoices, authz.ActionCreate)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServiceGrantRejectsInvalidInput(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil, nil)
	cases := []struct {
		name  string
		input GrantInput
		want  error
	}{
		{"missing role", GrantInput{Resource: "clients", Action: "view"}, ErrInvalidGrant},
		{"unknown role", GrantInput{Role: "intern", Resource: "clients", Action: "view"}, ErrInvalidGrant},
		{"unknown action", GrantInput{Role: "admin", Resource: "clients", Action: "approve"}, ErrInvalidGrant},
		{"owner", GrantInput{Role: "owner", Resource: "clients", Action: "view"}, ErrOwnerImplicit},
		{"banking override", GrantInput{Role: "inventory", Resource: "banking", Action: "view"}, ErrOverridden},
		{"reports override", GrantInput{Role: "admin", Resource: "REPORTS", Action: "VIEW"}, ErrOverridden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Grant(context.Background(), tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestServiceRevoke(t *testing.T) {
	store := NewMemoryStore(adminInvoiceView)
	inv := &stubInvalidator{err: errors.New("redis down")}
	svc := NewService(store, inv, nil, nil)

	_, err := svc.Revoke(context.Background(), GrantInput{Role: "ADMIN", Resource: "INVOICES", Action: "VIEW"})
	require.NoError(t, err, "cache bump failure must not fail the write")
	assert.Equal(t, 1, inv.bumps)

	_, err = svc.Revoke(context.Background(), GrantInput{Role: "ADMIN", Resource: "INVOICES", Action: "VIEW"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, inv.bumps)
}

func TestServiceDuplicateGrant(t *testing.T) {
	svc := NewService(NewMemoryStore(adminInvoiceView), nil, nil, nil)
	_, err := svc.Grant(context.Background(), GrantInput{Role: "admin", Resource: "invoices", Action: "view"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestServiceReplaceRole(t *testing.T) {
	store := NewMemoryStore(
		authz.Grant{Role: authz.RoleInventory, Resource: authz.ResourceProducts, Action: authz.ActionView},
		authz.Grant{Role: authz.RoleInventory, Resource: authz.ResourceTransfers, Action: authz.ActionEdit},
		authz.Grant{Role: authz.RoleAdmin, Resource: authz.ResourceClients, Action: authz.ActionView},
	)
	inv := &stubInvalidator{}
	svc := NewService(store, inv, nil, nil)
	ctx := context.Background()

	set, err := svc.ReplaceRole(ctx, "inventory", []Permission{
		{Resource: "products", Action: "edit"},
		{Resource: "PRODUCTS", Action: "EDIT"},
		{Resource: "adjustments", Action: "create"},
	})
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Equal(t, 1, inv.bumps)

	got, err := store.RoleGrants(ctx, authz.RoleInventory)
	require.NoError(t, err)
	assert.ElementsMatch(t, []authz.Grant{
		{Role: authz.RoleInventory, Resource: authz.ResourceProducts, Action: authz.ActionEdit},
		{Role: authz.RoleInventory, Resource: authz.ResourceAdjustments, Action: authz.ActionCreate},
	}, got)

	admin, err := store.RoleGrants(ctx, authz.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admin, 1, "other roles are untouched")

	set, err = svc.ReplaceRole(ctx, "inventory", nil)
	require.NoError(t, err)
	assert.Empty(t, set)
	got, err = store.RoleGrants(ctx, authz.RoleInventory)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServiceReplaceRoleRejectsWholeRequest(t *testing.T) {
	seed := authz.Grant{Role: authz.RoleAccountant, Resource: authz.ResourceInvoices, Action: authz.ActionView}
	store := NewMemoryStore(seed)
	svc := NewService(store, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.ReplaceRole(ctx, "accountant", []Permission{
		{Resource: "invoices", Action: "edit"},
		{Resource: "banking", Action: "view"},
	})
	assert.ErrorIs(t, err, ErrOverridden)

	_, err = svc.ReplaceRole(ctx, "owner", nil)
	assert.ErrorIs(t, err, ErrOwnerImplicit)

	_, err = svc.ReplaceRole(ctx, "intern", nil)
	assert.ErrorIs(t, err, ErrInvalidGrant)

	got, err := store.RoleGrants(ctx, authz.RoleAccountant)
	require.NoError(t, err)
	assert.Equal(t, []authz.Grant{seed}, got)
}

func TestServiceMatrixFoldsOverrides(t *testing.T) {
	store := NewMemoryStore(
		adminInvoiceView,
		authz.Grant{Role: authz.RoleInventory, Resource: authz.ResourceProducts, Action: authz.ActionEdit},
		// Stored rows on overridden resources are never consulted.
		authz.Grant{Role: authz.RoleAdmin, Resource: authz.ResourceBanking, Action: authz.ActionView},
	)
	svc := NewService(store, nil, nil, nil)

	matrix, err := svc.Matrix(context.Background())
	require.NoError(t, err)

	_, hasOwner := matrix[authz.RoleOwner]
	assert.False(t, hasOwner, "owner is implicit")
	assert.Equal(t, []authz.Grant{adminInvoiceView}, matrix[authz.RoleAdmin])
	assert.Equal(t, []authz.Grant{{Role: authz.RoleInventory, Resource: authz.ResourceProducts, Action: authz.ActionEdit}}, matrix[authz.RoleInventory])

	accountant := matrix[authz.RoleAccountant]
	assert.Len(t, accountant, 2*len(authz.Actions()))
	for _, g := range accountant {
		assert.True(t, authz.Overridden(g.Resource), g.Key())
	}
}

func TestServiceMatrixPropagatesStoreError(t *testing.T) {
	svc := NewService(failingRepo{err: errors.New("db down")}, nil, nil, nil)
	_, err := svc.Matrix(context.Background())
	assert.Error(t, err)
}

type failingRepo struct {
	Repository
	err error
}

func (f failingRepo) List(context.Context) ([]authz.Grant, error) {
	return nil, f.err
}
