package modules

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

func TestParse(t *testing.T) {
	assert.Equal(t, ModuleBanking, Parse("Banking"))
	assert.Equal(t, ModuleJobcards, Parse(" JOBCARDS "))
	assert.Equal(t, ModuleUnknown, Parse("payroll"))
	assert.False(t, ModuleUnknown.Valid())
}

func TestModuleForResources(t *testing.T) {
	m, ok := ModuleFor(authz.ResourceInvoices)
	assert.True(t, ok)
	assert.Equal(t, ModuleInvoicing, m)

	_, ok = ModuleFor(authz.ResourceSettings)
	assert.False(t, ok)
}

func TestServiceAbsentRecordIsDisabled(t *testing.T) {
	svc := NewService(NewMemoryRegistry(), nil)
	ctx := context.Background()

	enabled, err := svc.IsModuleEnabled(ctx, 1, ModuleBanking)
	require.NoError(t, err)
	assert.False(t, enabled)

	enabled, err = svc.IsModuleEnabled(ctx, 1, Parse("not-a-module"))
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestServiceSetEnabledIsPerOrganisation(t *testing.T) {
	svc := NewService(NewMemoryRegistry(), nil)
	ctx := context.Background()

	status, err := svc.SetEnabled(ctx, 1, "Invoicing", true)
	require.NoError(t, err)
	assert.Equal(t, Status{Module: ModuleInvoicing, Enabled: true}, status)

	enabled, err := svc.IsModuleEnabled(ctx, 1, ModuleInvoicing)
	require.NoError(t, err)
	assert.True(t, enabled)

	enabled, err = svc.IsModuleEnabled(ctx, 2, ModuleInvoicing)
	require.NoError(t, err)
	assert.False(t, enabled)

	statuses, err := svc.Statuses(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, statuses, len(All()))
	for _, s := range statuses {
		assert.Equal(t, s.Module == ModuleInvoicing, s.Enabled)
	}

	_, err = svc.SetEnabled(ctx, 1, "payroll", true)
	assert.ErrorIs(t, err, ErrUnknownModule)
}

type passGuard struct{}

func (passGuard) RequireRoles(...authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func TestHandlerUpdateAndList(t *testing.T) {
	registry := NewMemoryRegistry()
	h := NewHandler(nil, NewService(registry, nil), passGuard{})
	r := chi.NewRouter()
	r.Route("/modules", h.MountRoutes)

	actorCtx := authz.ContextWithActor(context.Background(), &authz.Actor{UserID: 1, OrgID: 9, Role: authz.RoleAdmin})

	req := httptest.NewRequest(http.MethodPut, "/modules/banking", strings.NewReader(`{"enabled":true}`)).WithContext(actorCtx)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	enabled, err := registry.IsModuleEnabled(context.Background(), 9, ModuleBanking)
	require.NoError(t, err)
	assert.True(t, enabled)

	req = httptest.NewRequest(http.MethodPut, "/modules/banking", strings.NewReader(`{}`)).WithContext(actorCtx)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPut, "/modules/payroll", strings.NewReader(`{"enabled":true}`)).WithContext(actorCtx)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/modules/", nil).WithContext(actorCtx)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `{"module":"banking","enabled":true}`)

	req = httptest.NewRequest(http.MethodGet, "/modules/", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
