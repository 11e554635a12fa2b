package authz

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// GrantChecker is the read side of the permission grant store. It must
// report I/O failures as errors and never fall back to true.
type GrantChecker interface {
	HasGrant(ctx context.Context, role Role, resource Resource, action Action) (bool, error)
}

// Observer receives every completed decision.
type Observer interface {
	ObserveDecision(resource Resource, action Action, decision Decision)
}

var errNoGrantStore = errors.New("authz: grant store not configured")

// Engine combines the role model, compliance overrides and the grant store
// into a single verdict. It holds no mutable state and is safe for
// concurrent use; the only I/O is one grant lookup per evaluation.
type Engine struct {
	grants   GrantChecker
	logger   *slog.Logger
	observer Observer
}

// NewEngine constructs an Engine backed by grants.
func NewEngine(grants GrantChecker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{grants: grants, logger: logger}
}

// WithObserver attaches a decision observer and returns the engine.
func (e *Engine) WithObserver(observer Observer) *Engine {
	e.observer = observer
	return e
}

// Evaluate decides whether actor may perform action on resource. Rules are
// applied in order and the first match wins:
//
//  1. no actor: Deny(Unauthenticated)
//  2. OWNER: Allow
//  3. unknown role, resource or action: Deny(Forbidden)
//  4. compliance override: Allow iff the role is on the fixed allow-list
//  5. grant store: Allow iff the triple is granted
//  6. grant store failure: Deny(CheckFailed)
//
// A non-nil error is returned only when ctx ends while the grant lookup is
// outstanding; no verdict is produced in that case.
func (e *Engine) Evaluate(ctx context.Context, actor *Actor, resource Resource, action Action) (Decision, error) {
	decision, err := e.decide(ctx, actor, resource, action)
	if err != nil {
		return Decision{}, err
	}
	if decision.Reason == ReasonCheckFailed {
		e.logger.Error("authz check failed",
			slog.String("resource", resource.String()),
			slog.String("action", action.String()),
			slog.String("role", actor.Role.String()),
			slog.Int64("org_id", actor.OrgID),
			slog.Any("error", decision.Cause),
		)
	}
	if e.observer != nil {
		e.observer.ObserveDecision(resource, action, decision)
	}
	return decision, nil
}

func (e *Engine) decide(ctx context.Context, actor *Actor, resource Resource, action Action) (Decision, error) {
	if actor == nil {
		return deny(ReasonUnauthenticated, RuleNoActor), nil
	}
	if !resource.Valid() || !action.Valid() {
		return deny(ReasonForbidden, RuleInvalid), nil
	}
	if actor.Role == RoleOwner {
		return allow(RuleOwner), nil
	}
	if !actor.Role.Valid() {
		return deny(ReasonForbidden, RuleInvalid), nil
	}
	if Overridden(resource) {
		if overrideAllows(resource, actor.Role) {
			return allow(RuleOverride), nil
		}
		return deny(ReasonForbidden, RuleOverride), nil
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	if e.grants == nil {
		return checkFailed(errNoGrantStore), nil
	}
	granted, err := e.grants.HasGrant(ctx, actor.Role, resource, action)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}
		return checkFailed(err), nil
	}
	if granted {
		return allow(RuleGrant), nil
	}
	return deny(ReasonForbidden, RuleGrant), nil
}

func checkFailed(cause error) Decision {
	d := deny(ReasonCheckFailed, RuleStore)
	d.Cause = cause
	return d
}

// Entry is one cell of a permission matrix.
type Entry struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	Allowed  bool     `json:"allowed"`
	Reason   string   `json:"reason,omitempty"`
}

// Matrix lists the decisions for every resource and action.
type Matrix []Entry

// Can reports whether the matrix allows action on resource.
func (m Matrix) Can(resource Resource, action Action) bool {
	for _, entry := range m {
		if entry.Resource == resource && entry.Action == action {
			return entry.Allowed
		}
	}
	return false
}

const matrixConcurrency = 8

// Permissions evaluates every resource and action for actor. Each cell is an
// independent evaluation; a CheckFailed cell is reported as denied with its
// reason rather than failing the whole matrix.
func (e *Engine) Permissions(ctx context.Context, actor *Actor) (Matrix, error) {
	resources := Resources()
	actions := Actions()
	entries := make(Matrix, len(resources)*len(actions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(matrixConcurrency)
	for i, resource := range resources {
		for j, action := range actions {
			idx := i*len(actions) + j
			g.Go(func() error {
				decision, err := e.Evaluate(gctx, actor, resource, action)
				if err != nil {
					return err
				}
				entry := Entry{Resource: resource, Action: action, Allowed: decision.Allowed()}
				if !entry.Allowed {
					entry.Reason = decision.Reason.String()
				}
				entries[idx] = entry
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
