package shared

import (
	"context"

	"github.com/google/uuid"
)

// Actor identifies the authenticated user behind a mutating call. The
// auth collaborator resolves it; the transaction engine only consumes it
// for ledger attribution and never re-validates roles.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is
// returned when no identity was attached.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
