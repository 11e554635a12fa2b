package authz

import "context"

// Actor is the authenticated caller a decision is evaluated for. It is built
// once per request and treated as immutable.
type Actor struct {
	UserID int64
	OrgID  int64
	Role   Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor or nil when the request is unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
