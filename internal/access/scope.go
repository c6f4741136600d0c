package access

import "strconv"

// Record is the minimal shape a row must expose for in-memory
// filtering. SQL-backed repositories never materialize a Record; the
// same conditions are rendered into the query instead.
type Record interface {
	Published() bool
	Level() Level
}

// Scope is an immutable, chainable set of row filters. The zero value
// filters nothing. Each narrowing method returns a new Scope, so a
// Scope can be shared and extended freely. Composition is conjunctive:
// repeated or reordered calls yield the same result set.
type Scope struct {
	published bool
	levelSet  bool
	level     Level
}

// Unrestricted returns the scope that keeps every row.
func Unrestricted() Scope {
	return Scope{}
}

// Published narrows the scope to rows flagged as published.
func (s Scope) Published() Scope {
	s.published = true
	return s
}

// LevelUpTo narrows the scope to rows whose access level is at or
// below the given tier. The comparison is inclusive. Combining two
// level bounds keeps the stricter one.
func (s Scope) LevelUpTo(level Level) Scope {
	if s.levelSet && s.level <= level {
		return s
	}
	s.levelSet = true
	s.level = level
	return s
}

// AccessibleTo narrows the scope to rows the actor may see. Superusers
// bypass level filtering entirely; everyone else is bounded by their
// effective tier, anonymous visitors by the public tier.
func (s Scope) AccessibleTo(actor Actor) Scope {
	if actor.Superuser {
		return s
	}
	return s.LevelUpTo(actor.EffectiveLevel())
}

// SQL renders the scope as conjunctive conditions appended to a WHERE
// clause. argIndex is the next free positional argument number; the
// returned fragment starts with " AND" when non-empty.
func (s Scope) SQL(argIndex int) (string, []any) {
	var clause string
	var args []any
	if s.published {
		clause += ` AND is_published = $` + strconv.Itoa(argIndex)
		args = append(args, true)
		argIndex++
	}
	if s.levelSet {
		clause += ` AND access_level <= $` + strconv.Itoa(argIndex)
		args = append(args, int(s.level))
	}
	return clause, args
}

// Match evaluates the scope against a single record in memory.
func (s Scope) Match(r Record) bool {
	if s.published && !r.Published() {
		return false
	}
	if s.levelSet && r.Level() > s.level {
		return false
	}
	return true
}
