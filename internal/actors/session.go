package actors

import (
	"context"
	"strconv"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// ActorFromSession resolves the actor bound to a session. Sessions
// without a user, and sessions referencing a deleted or deactivated
// user, degrade to the anonymous identity rather than failing the
// request.
func (s *Service) ActorFromSession(ctx context.Context, sess *shared.Session) access.Actor {
	if sess == nil {
		return access.Anonymous()
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil || id <= 0 {
		return access.Anonymous()
	}
	actor, err := s.ActorByID(ctx, id)
	if err != nil {
		return access.Anonymous()
	}
	return actor
}
