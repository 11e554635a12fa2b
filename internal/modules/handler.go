package modules

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/httpx"
)

// Guard supplies the request guards protecting the admin routes.
type Guard interface {
	RequireRoles(roles ...authz.Role) func(http.Handler) http.Handler
}

// Handler exposes module enablement for the caller's organisation.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers module routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRoles(authz.RoleOwner, authz.RoleAdmin))
		r.Get("/", h.list)
		r.Put("/{module}", h.update)
	})
}

type updateRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Error(w, http.StatusUnauthorized, "")
		return
	}
	statuses, err := h.service.Statuses(r.Context(), actor.OrgID)
	if err != nil {
		h.logger.Error("list modules", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"modules": statuses})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Error(w, http.StatusUnauthorized, "")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "enabled is required")
		return
	}
	status, err := h.service.SetEnabled(r.Context(), actor.OrgID, chi.URLParam(r, "module"), *req.Enabled)
	if err != nil {
		if errors.Is(err, ErrUnknownModule) {
			httpx.Error(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("update module", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "")
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}
