package guard

import (
	"log/slog"
	"net/http"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/httpx"
)

// Handler answers permission queries for the current actor.
type Handler struct {
	logger *slog.Logger
	server *Server
	client *Client
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, server *Server, client *Client) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, server: server, client: client}
}

type checkResponse struct {
	Resource authz.Resource `json:"resource"`
	Action   authz.Action   `json:"action"`
	Allowed  bool           `json:"allowed"`
	Reason   string         `json:"reason,omitempty"`
}

// Check evaluates ?resource=&action= for the actor. Unknown names are
// evaluated as-is and come back forbidden.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawResource := r.URL.Query().Get("resource")
	rawAction := r.URL.Query().Get("action")
	resource := authz.ParseResource(rawResource)
	action := authz.ParseAction(rawAction)

	decision, err := h.server.decider.Evaluate(ctx, authz.ActorFromContext(ctx), resource, action)
	if err != nil {
		h.logger.Debug("authz check abandoned", slog.Any("error", err))
		return
	}
	switch decision.Reason {
	case authz.ReasonUnauthenticated, authz.ReasonCheckFailed:
		httpx.Error(w, StatusFor(decision), messageFor(decision.Reason))
		return
	}
	resp := checkResponse{Resource: resource, Action: action, Allowed: decision.Allowed()}
	if !resp.Allowed {
		resp.Reason = decision.Reason.String()
	}
	if !resource.Valid() {
		resp.Resource = authz.Resource(rawResource)
	}
	if !action.Valid() {
		resp.Action = authz.Action(rawAction)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Permissions returns the permission matrix and module gates of the actor.
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := authz.ActorFromContext(ctx)
	if actor == nil {
		httpx.Error(w, http.StatusUnauthorized, messageFor(authz.ReasonUnauthenticated))
		return
	}
	access, err := h.client.Access(ctx)
	if err != nil {
		h.logger.Debug("permissions abandoned", slog.Any("error", err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        actor.Role,
		"permissions": access.Permissions,
		"modules":     access.Modules,
	})
}
