package access

// Group is a privilege group an actor belongs to. Its name maps to a
// tier in the level enumeration.
type Group struct {
	ID    int64
	Name  string
	Level Level
}

// Actor is the identity a filter is evaluated for: an anonymous
// visitor, an authenticated user with group memberships, or a
// superuser.
type Actor struct {
	ID            int64
	Authenticated bool
	Superuser     bool
	Groups        []Group
}

// Anonymous returns the identity used for unauthenticated requests.
func Anonymous() Actor {
	return Actor{}
}

// EffectiveLevel returns the highest tier among the actor's groups.
// Anonymous actors and authenticated actors without any group
// membership see the public tier. Superusers are handled by
// Scope.AccessibleTo and never reach a level comparison.
func (a Actor) EffectiveLevel() Level {
	level := Public
	for _, g := range a.Groups {
		if g.Level > level {
			level = g.Level
		}
	}
	return level
}
