package guard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/modules"
	"github.com/ledgerdesk/ledgerdesk/internal/shared"
	"github.com/ledgerdesk/ledgerdesk/internal/view"
)

// GateState is the outcome of a module gate.
type GateState uint8

// Gate states. GatePending only exists while a lookup is in flight and is
// never returned by Client.
const (
	GatePending GateState = iota
	GateAllowed
	GateDenied
	GateUnknown
)

func (s GateState) String() string {
	switch s {
	case GateAllowed:
		return "allowed"
	case GateDenied:
		return "denied"
	case GateUnknown:
		return "unknown"
	default:
		return "pending"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s GateState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Renderer renders HTML pages with a status code.
type Renderer interface {
	RenderStatus(w http.ResponseWriter, status int, name string, data view.TemplateData) error
}

// Client guards server-rendered pages. Denials never surface as errors:
// the user is redirected to the fallback route or shown a gate page.
type Client struct {
	decider   Decider
	registry  modules.Registry
	templates Renderer
	fallback  string
	logger    *slog.Logger
}

// NewClient builds Client instance. fallback is the safe route denied users
// are sent to.
func NewClient(decider Decider, registry modules.Registry, templates Renderer, fallback string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == "" {
		fallback = "/"
	}
	return &Client{decider: decider, registry: registry, templates: templates, fallback: fallback, logger: logger}
}

// Fallback returns the route denied users are redirected to.
func (c *Client) Fallback() string {
	return c.fallback
}

// Route redirects to the fallback route with a flash message unless the
// actor may perform action on resource.
func (c *Client) Route(resource authz.Resource, action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			decision, err := c.decider.Evaluate(ctx, authz.ActorFromContext(ctx), resource, action)
			if err != nil {
				c.logger.Debug("route check abandoned", slog.String("path", r.URL.Path), slog.Any("error", err))
				return
			}
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			c.redirect(w, r, decision)
		})
	}
}

func (c *Client) redirect(w http.ResponseWriter, r *http.Request, decision authz.Decision) {
	if r.URL.Path == c.fallback {
		// Redirecting to ourselves would loop.
		http.Error(w, http.StatusText(StatusFor(decision)), StatusFor(decision))
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(flashFor(decision.Reason))
	}
	http.Redirect(w, r, c.fallback, http.StatusSeeOther)
}

func flashFor(reason authz.Reason) shared.FlashMessage {
	switch reason {
	case authz.ReasonUnauthenticated:
		return shared.FlashMessage{Kind: "warning", Message: "Please sign in to continue."}
	case authz.ReasonCheckFailed:
		return shared.FlashMessage{Kind: "error", Message: "We could not verify your access. Please try again."}
	default:
		return shared.FlashMessage{Kind: "warning", Message: "You do not have access to that page."}
	}
}

// Module gates a feature area. A disabled module serves fallback, or the
// built-in locked page when fallback is nil. A failed lookup serves the
// unavailable page so it is never mistaken for a confirmed denial.
func (c *Client) Module(module modules.Module, fallback http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			switch c.ModuleState(ctx, authz.ActorFromContext(ctx), module) {
			case GateAllowed:
				next.ServeHTTP(w, r)
			case GateDenied:
				if fallback != nil {
					fallback.ServeHTTP(w, r)
					return
				}
				c.render(w, r, http.StatusForbidden, "pages/locked.html", string(module))
			default:
				if ctx.Err() != nil {
					return
				}
				c.render(w, r, http.StatusServiceUnavailable, "pages/unavailable.html", string(module))
			}
		})
	}
}

// ModuleState resolves the gate for module. No actor or an unknown module
// is a denial; a registry failure is GateUnknown.
func (c *Client) ModuleState(ctx context.Context, actor *authz.Actor, module modules.Module) GateState {
	if actor == nil || !module.Valid() {
		return GateDenied
	}
	if c.registry == nil {
		return GateUnknown
	}
	enabled, err := c.registry.IsModuleEnabled(ctx, actor.OrgID, module)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("module lookup failed",
				slog.String("module", string(module)),
				slog.Int64("org_id", actor.OrgID),
				slog.Any("error", err),
			)
		}
		return GateUnknown
	}
	if enabled {
		return GateAllowed
	}
	return GateDenied
}

func (c *Client) render(w http.ResponseWriter, r *http.Request, status int, page, title string) {
	data := view.TemplateData{Title: title, CurrentPath: r.URL.Path}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		data.Flash = sess.PopFlash()
	}
	if c.templates != nil {
		err := c.templates.RenderStatus(w, status, page, data)
		if err == nil {
			return
		}
		c.logger.Error("render gate page", slog.String("page", page), slog.Any("error", err))
	}
	http.Error(w, http.StatusText(status), status)
}

// ModuleAccess is the gate state of one module.
type ModuleAccess struct {
	Module modules.Module `json:"module"`
	State  GateState      `json:"state"`
}

// Access is what templates and the API use to hide controls the actor
// cannot use.
type Access struct {
	Permissions authz.Matrix   `json:"permissions"`
	Modules     []ModuleAccess `json:"modules"`
}

// Can reports whether the actor may perform action on resource.
func (a Access) Can(resource authz.Resource, action authz.Action) bool {
	return a.Permissions.Can(resource, action)
}

// ModuleState reports the gate state of module; unlisted modules are denied.
func (a Access) ModuleState(module modules.Module) GateState {
	for _, m := range a.Modules {
		if m.Module == module {
			return m.State
		}
	}
	return GateDenied
}

// Access evaluates the full permission matrix and every module gate for
// the actor in ctx. The error is non-nil only when ctx ended.
func (c *Client) Access(ctx context.Context) (Access, error) {
	actor := authz.ActorFromContext(ctx)
	matrix, err := c.decider.Permissions(ctx, actor)
	if err != nil {
		return Access{}, err
	}
	all := modules.All()
	states := make([]ModuleAccess, 0, len(all))
	for _, m := range all {
		states = append(states, ModuleAccess{Module: m, State: c.ModuleState(ctx, actor, m)})
	}
	if err := ctx.Err(); err != nil {
		return Access{}, err
	}
	return Access{Permissions: matrix, Modules: states}, nil
}
