package actors

import (
	"time"

	"github.com/donpacheco/nodeshot/internal/access"
)

// User represents a registered account.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	IsSuperuser  bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Membership ties a user to a privilege group.
type Membership struct {
	UserID  int64
	GroupID int64
}

// Actor converts a user and its groups into the identity the access
// package filters for.
func (u *User) Actor(groups []access.Group) access.Actor {
	return access.Actor{
		ID:            u.ID,
		Authenticated: true,
		Superuser:     u.IsSuperuser,
		Groups:        groups,
	}
}
