package actors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/shared"
)

type stubRepo struct {
	users  map[int64]*User
	groups map[int64][]access.Group
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:  make(map[int64]*User),
		groups: make(map[int64][]access.Group),
	}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) GroupsForUser(ctx context.Context, userID int64) ([]access.Group, error) {
	return s.groups[userID], nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticate(t *testing.T) {
	repo := newStubRepo()
	repo.users[1] = &User{
		ID:           1,
		Email:        "alice@example.net",
		PasswordHash: hash(t, "correct horse"),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "alice@example.net", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)

	_, err = svc.Authenticate(context.Background(), "alice@example.net", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.net", "correct horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactive(t *testing.T) {
	repo := newStubRepo()
	repo.users[2] = &User{
		ID:           2,
		Email:        "bob@example.net",
		PasswordHash: hash(t, "swordfish99"),
		IsActive:     false,
	}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "bob@example.net", "swordfish99")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestActorByID(t *testing.T) {
	repo := newStubRepo()
	repo.users[5] = &User{ID: 5, Email: "carol@example.net", IsActive: true}
	repo.groups[5] = []access.Group{
		{ID: 3, Name: "community", Level: access.Community},
		{ID: 1, Name: "member", Level: access.Member},
	}
	svc := NewService(repo)

	actor, err := svc.ActorByID(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, actor.Authenticated)
	assert.False(t, actor.Superuser)
	assert.Equal(t, access.Member, actor.EffectiveLevel())
}

func TestActorByIDMissing(t *testing.T) {
	svc := NewService(newStubRepo())
	_, err := svc.ActorByID(context.Background(), 99)
	assert.ErrorIs(t, err, access.ErrActorNotFound)
}

func TestActorByIDInactive(t *testing.T) {
	repo := newStubRepo()
	repo.users[6] = &User{ID: 6, Email: "dan@example.net", IsActive: false}
	svc := NewService(repo)
	_, err := svc.ActorByID(context.Background(), 6)
	assert.ErrorIs(t, err, access.ErrActorNotFound)
}

func TestActorFromSessionAnonymous(t *testing.T) {
	svc := NewService(newStubRepo())

	actor := svc.ActorFromSession(context.Background(), nil)
	assert.False(t, actor.Authenticated)

	// Session bound to a vanished user degrades to anonymous.
	sess := &shared.Session{}
	sess.SetUser("123")
	actor = svc.ActorFromSession(context.Background(), sess)
	assert.False(t, actor.Authenticated)
}

func TestActorFromSession(t *testing.T) {
	repo := newStubRepo()
	repo.users[8] = &User{ID: 8, Email: "eve@example.net", IsActive: true, IsSuperuser: true}
	svc := NewService(repo)

	sess := &shared.Session{}
	sess.SetUser("8")
	actor := svc.ActorFromSession(context.Background(), sess)
	assert.True(t, actor.Authenticated)
	assert.True(t, actor.Superuser)
}
