// Package guard adapts authorization decisions to HTTP: JSON status codes for
// the API and redirects or gate pages for the rendered UI.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/httpx"
	"github.com/ledgerdesk/ledgerdesk/internal/shared"
)

// Decider produces authorization decisions. *authz.Engine implements it.
type Decider interface {
	Evaluate(ctx context.Context, actor *authz.Actor, resource authz.Resource, action authz.Action) (authz.Decision, error)
	Permissions(ctx context.Context, actor *authz.Actor) (authz.Matrix, error)
}

// Server guards API routes.
type Server struct {
	decider Decider
	logger  *slog.Logger
}

// NewServer builds Server instance.
func NewServer(decider Decider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{decider: decider, logger: logger}
}

// Authenticate resolves the actor from the session and stores it in the
// request context. Requests without a signed-in user carry no actor.
func (s *Server) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromSession(shared.SessionFromContext(r.Context()))
		if actor == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(authz.ContextWithActor(r.Context(), actor)))
	})
}

// ActorFromSession builds the actor for sess. The role text is parsed here;
// an unrecognised or blank role yields an actor with RoleNone, which every
// check denies as forbidden.
func ActorFromSession(sess *shared.Session) *authz.Actor {
	if sess == nil {
		return nil
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil || userID <= 0 {
		return nil
	}
	orgID, rawRole, ok := sess.Membership()
	if !ok {
		return nil
	}
	return &authz.Actor{UserID: userID, OrgID: orgID, Role: authz.ParseRole(rawRole)}
}

// RequireRoles admits actors whose role is one of roles. It performs no I/O.
// An empty role set admits nobody.
func (s *Server) RequireRoles(roles ...authz.Role) func(http.Handler) http.Handler {
	accepted := make(map[authz.Role]struct{}, len(roles))
	for _, role := range roles {
		if role.Valid() {
			accepted[role] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := authz.ActorFromContext(r.Context())
			if actor == nil {
				httpx.Error(w, http.StatusUnauthorized, messageFor(authz.ReasonUnauthenticated))
				return
			}
			if _, ok := accepted[actor.Role]; !ok {
				httpx.Error(w, http.StatusForbidden, messageFor(authz.ReasonForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission admits the request when the engine allows action on
// resource for the current actor.
func (s *Server) RequirePermission(resource authz.Resource, action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			decision, err := s.decider.Evaluate(ctx, authz.ActorFromContext(ctx), resource, action)
			if err != nil {
				s.logger.Debug("authz check abandoned",
					slog.String("resource", resource.String()),
					slog.String("action", action.String()),
					slog.Any("error", err),
				)
				return
			}
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Error(w, StatusFor(decision), messageFor(decision.Reason))
		})
	}
}

// StatusFor maps a Deny to its HTTP status. Allow maps to 200.
func StatusFor(decision authz.Decision) int {
	if decision.Allowed() {
		return http.StatusOK
	}
	switch decision.Reason {
	case authz.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case authz.ReasonCheckFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusForbidden
	}
}

func messageFor(reason authz.Reason) string {
	switch reason {
	case authz.ReasonUnauthenticated:
		return "authentication required"
	case authz.ReasonCheckFailed:
		return "permission check failed"
	default:
		return "you do not have permission to perform this action"
	}
}
