package actors

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Service wraps authentication and actor resolution rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// ActorByID resolves a user id to the identity used for filtering.
// Missing and deactivated ids surface access.ErrActorNotFound.
func (s *Service) ActorByID(ctx context.Context, id int64) (access.Actor, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return access.Actor{}, access.ErrActorNotFound
		}
		return access.Actor{}, err
	}
	if !user.IsActive {
		return access.Actor{}, access.ErrActorNotFound
	}
	groups, err := s.repo.GroupsForUser(ctx, id)
	if err != nil {
		return access.Actor{}, err
	}
	return user.Actor(groups), nil
}

var _ access.Resolver = (*Service)(nil)
