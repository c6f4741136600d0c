package access

import (
	"context"
	"errors"
)

// ErrActorNotFound reports an actor id that resolves to no known user.
var ErrActorNotFound = errors.New("access: actor not found")

// Resolver looks an actor up by id. Implementations return
// ErrActorNotFound when the id does not exist.
type Resolver interface {
	ActorByID(ctx context.Context, id int64) (Actor, error)
}

// ScopeForActorID resolves id through r and narrows the scope for the
// resolved actor.
func ScopeForActorID(ctx context.Context, r Resolver, s Scope, id int64) (Scope, error) {
	actor, err := r.ActorByID(ctx, id)
	if err != nil {
		return Scope{}, err
	}
	return s.AccessibleTo(actor), nil
}
