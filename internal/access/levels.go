// Package access implements publication and access-level filtering for
// queryable records. A Scope narrows a result set to published rows and
// to rows whose access level is visible to an actor; the same Scope
// renders as SQL conditions for PostgreSQL-backed repositories and as
// an in-memory predicate for cached collections.
package access

import (
	"fmt"
	"strconv"
)

// Level is the rank of a visibility tier. Lower ranks are more public;
// a record is visible to any actor whose effective level is greater
// than or equal to the record's level.
type Level int

// The fixed tier ordering. Ranks leave gaps so deployments can insert
// custom tiers without renumbering.
const (
	Public    Level = 0
	Community Level = 10
	Member    Level = 20
	Admin     Level = 30
)

var levelNames = map[string]Level{
	"public":    Public,
	"community": Community,
	"member":    Member,
	"admin":     Admin,
}

var levelStrings = map[Level]string{
	Public:    "public",
	Community: "community",
	Member:    "member",
	Admin:     "admin",
}

// ErrUnknownLevel reports a tier name missing from the enumeration.
type ErrUnknownLevel struct {
	Name string
}

func (e *ErrUnknownLevel) Error() string {
	return fmt.Sprintf("access: unknown level %q", e.Name)
}

// ParseLevel resolves a tier given either its name or its numeric rank.
func ParseLevel(value string) (Level, error) {
	if rank, err := strconv.Atoi(value); err == nil {
		return Level(rank), nil
	}
	level, ok := levelNames[value]
	if !ok {
		return 0, &ErrUnknownLevel{Name: value}
	}
	return level, nil
}

// Levels returns every named tier in ascending rank order.
func Levels() []Level {
	return []Level{Public, Community, Member, Admin}
}

// String returns the tier name, or the rank in decimal for unnamed ranks.
func (l Level) String() string {
	if name, ok := levelStrings[l]; ok {
		return name
	}
	return strconv.Itoa(int(l))
}
