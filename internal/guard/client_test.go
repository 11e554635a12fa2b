package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/modules"
	"github.com/ledgerdesk/ledgerdesk/internal/shared"
	"github.com/ledgerdesk/ledgerdesk/internal/view"
)

type brokenRegistry struct{}

func (brokenRegistry) IsModuleEnabled(context.Context, int64, modules.Module) (bool, error) {
	return false, errors.New("registry down")
}

type recordingRenderer struct {
	status int
	page   string
	data   view.TemplateData
}

func (r *recordingRenderer) RenderStatus(w http.ResponseWriter, status int, name string, data view.TemplateData) error {
	r.status, r.page, r.data = status, name, data
	w.WriteHeader(status)
	return nil
}

func sessionRequest(method, target string, role authz.Role) (*http.Request, *shared.Session) {
	sess := &shared.Session{}
	req := httptest.NewRequest(method, target, nil)
	ctx := shared.ContextWithSession(req.Context(), sess)
	ctx = authz.ContextWithActor(ctx, &authz.Actor{UserID: 1, OrgID: 10, Role: role})
	return req.WithContext(ctx), sess
}

func TestClientRouteRedirectsWithFlash(t *testing.T) {
	c := NewClient(newEngine(), nil, nil, "/app", nil)
	h := c.Route(authz.ResourceBanking, authz.ActionView)(okHandler())

	req, sess := sessionRequest(http.MethodGet, "/app/banking", authz.RoleInventory)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/app", rr.Header().Get("Location"))
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "warning", flash.Kind)
}

func TestClientRouteAllowsAccountantOnBanking(t *testing.T) {
	c := NewClient(newEngine(), nil, nil, "/app", nil)
	h := c.Route(authz.ResourceBanking, authz.ActionView)(okHandler())

	req, _ := sessionRequest(http.MethodGet, "/app/banking", authz.RoleAccountant)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestClientRouteCheckFailureStillRedirects(t *testing.T) {
	c := NewClient(authz.NewEngine(failingGrants{}, nil), nil, nil, "/app", nil)
	h := c.Route(authz.ResourceInvoices, authz.ActionView)(okHandler())

	req, sess := sessionRequest(http.MethodGet, "/app/invoices", authz.RoleAdmin)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
}

func TestClientRouteAvoidsRedirectLoop(t *testing.T) {
	c := NewClient(newEngine(), nil, nil, "/app", nil)
	h := c.Route(authz.ResourceSettings, authz.ActionView)(okHandler())

	req, _ := sessionRequest(http.MethodGet, "/app", authz.RoleInventory)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, rr.Header().Get("Location"))
}

func TestClientModuleGateStates(t *testing.T) {
	registry := modules.NewMemoryRegistry()
	require.NoError(t, registry.Set(context.Background(), 10, modules.ModuleBanking, true))

	renderer := &recordingRenderer{}
	c := NewClient(newEngine(), registry, renderer, "/app", nil)

	req, _ := sessionRequest(http.MethodGet, "/app/banking", authz.RoleAccountant)
	rr := httptest.NewRecorder()
	c.Module(modules.ModuleBanking, nil)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req, _ = sessionRequest(http.MethodGet, "/app/reports", authz.RoleAccountant)
	rr = httptest.NewRecorder()
	c.Module(modules.ModuleReports, nil)(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "pages/locked.html", renderer.page)
	assert.Equal(t, "reports", renderer.data.Title)

	fallbackCalled := false
	fallback := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackCalled = true
		w.WriteHeader(http.StatusPaymentRequired)
	})
	rr = httptest.NewRecorder()
	c.Module(modules.ModuleReports, fallback)(okHandler()).ServeHTTP(rr, req)
	assert.True(t, fallbackCalled)
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
}

func TestClientModuleUnknownIsNotDenied(t *testing.T) {
	renderer := &recordingRenderer{}
	c := NewClient(newEngine(), brokenRegistry{}, renderer, "/app", nil)

	req, _ := sessionRequest(http.MethodGet, "/app/banking", authz.RoleOwner)
	rr := httptest.NewRecorder()
	c.Module(modules.ModuleBanking, http.NotFoundHandler())(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "pages/unavailable.html", renderer.page)
	assert.Equal(t, GateUnknown, c.ModuleState(req.Context(), authz.ActorFromContext(req.Context()), modules.ModuleBanking))
}

func TestClientModuleStateWithoutActor(t *testing.T) {
	c := NewClient(newEngine(), modules.NewMemoryRegistry(), nil, "", nil)
	assert.Equal(t, "/", c.Fallback())
	assert.Equal(t, GateDenied, c.ModuleState(context.Background(), nil, modules.ModuleBanking))
	assert.Equal(t, GateDenied, c.ModuleState(context.Background(), &authz.Actor{OrgID: 1, Role: authz.RoleOwner}, modules.Parse("payroll")))
}

func TestClientAccess(t *testing.T) {
	registry := modules.NewMemoryRegistry()
	require.NoError(t, registry.Set(context.Background(), 10, modules.ModuleInvoicing, true))
	engine := newEngine(authz.Grant{Role: authz.RoleInventory, Resource: authz.ResourceProducts, Action: authz.ActionView})
	c := NewClient(engine, registry, nil, "/app", nil)

	ctx := authz.ContextWithActor(context.Background(), &authz.Actor{UserID: 1, OrgID: 10, Role: authz.RoleInventory})
	access, err := c.Access(ctx)
	require.NoError(t, err)

	assert.True(t, access.Can(authz.ResourceProducts, authz.ActionView))
	assert.False(t, access.Can(authz.ResourceProducts, authz.ActionDelete))
	assert.False(t, access.Can(authz.ResourceBanking, authz.ActionView))
	assert.Equal(t, GateAllowed, access.ModuleState(modules.ModuleInvoicing))
	assert.Equal(t, GateDenied, access.ModuleState(modules.ModuleBanking))
	assert.Len(t, access.Modules, len(modules.All()))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Access(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGateStateText(t *testing.T) {
	text, err := GateUnknown.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "unknown", string(text))
	assert.Equal(t, "pending", GatePending.String())
}
