package grants

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/httpx"
)

// Guard supplies the request guards protecting the admin routes.
type Guard interface {
	RequireRoles(roles ...authz.Role) func(http.Handler) http.Handler
	RequirePermission(resource authz.Resource, action authz.Action) func(http.Handler) http.Handler
}

// Handler exposes the grant matrix administration API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers grant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.ResourceSettings, authz.ActionView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoles(authz.RoleOwner, authz.RoleAdmin))
		r.Use(h.guard.RequirePermission(authz.ResourceSettings, authz.ActionEdit))
		r.Post("/", h.grant)
		r.Delete("/", h.revoke)
		r.Put("/{role}", h.replace)
	})
}

type overrideView struct {
	Resource authz.Resource `json:"resource"`
	Roles    []authz.Role   `json:"roles"`
}

type listResponse struct {
	Grants    []authz.Grant                `json:"grants"`
	Overrides []overrideView               `json:"overrides"`
	Matrix    map[authz.Role][]authz.Grant `json:"matrix"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	grants, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if grants == nil {
		grants = []authz.Grant{}
	}
	matrix, err := h.service.Matrix(r.Context())
	if err != nil {
		h.logger.Error("grant matrix", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := listResponse{Grants: grants, Matrix: matrix}
	for _, res := range authz.Resources() {
		if roles, ok := authz.Override(res); ok {
			resp.Overrides = append(resp.Overrides, overrideView{Resource: res, Roles: roles})
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var input GrantInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	grant, err := h.service.Grant(r.Context(), input)
	if err != nil {
		h.respondError(w, "grant", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grant)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := GrantInput{Role: q.Get("role"), Resource: q.Get("resource"), Action: q.Get("action")}
	if _, err := h.service.Revoke(r.Context(), input); err != nil {
		h.respondError(w, "revoke", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type replaceRequest struct {
	Grants []Permission `json:"grants"`
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	set, err := h.service.ReplaceRole(r.Context(), chi.URLParam(r, "role"), req.Grants)
	if err != nil {
		h.respondError(w, "replace", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": set})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidGrant), errors.Is(err, ErrOverridden), errors.Is(err, ErrOwnerImplicit):
		err = fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, ErrDuplicate):
		err = fmt.Errorf("%w: %w", httpx.ErrDuplicate, err)
	case errors.Is(err, ErrNotFound):
		err = fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	default:
		h.logger.Error(op+" grant", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
