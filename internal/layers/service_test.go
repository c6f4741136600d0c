package layers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

type layerRow struct {
	layer Layer
}

func (r layerRow) Published() bool     { return r.layer.IsPublished }
func (r layerRow) Level() access.Level { return r.layer.AccessLevel }

// mockRepo filters in memory with Scope.Match, standing in for the SQL
// rendering of the same scope.
type mockRepo struct {
	layers  []Layer
	nextID  int64
	deleted []int64
}

func (m *mockRepo) List(ctx context.Context, scope access.Scope) ([]Layer, error) {
	var out []Layer
	for _, l := range m.layers {
		if scope.Match(layerRow{layer: l}) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockRepo) GetBySlug(ctx context.Context, slug string, scope access.Scope) (Layer, error) {
	for _, l := range m.layers {
		if l.Slug == slug && scope.Match(layerRow{layer: l}) {
			return l, nil
		}
	}
	return Layer{}, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, layer Layer) (Layer, error) {
	m.nextID++
	layer.ID = m.nextID
	m.layers = append(m.layers, layer)
	return layer, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, layer Layer) error {
	for i := range m.layers {
		if m.layers[i].ID == id {
			layer.ID = id
			layer.Slug = m.layers[i].Slug
			m.layers[i] = layer
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	for i := range m.layers {
		if m.layers[i].ID == id {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			m.deleted = append(m.deleted, id)
			return nil
		}
	}
	return shared.ErrNotFound
}

func seededRepo() *mockRepo {
	return &mockRepo{
		nextID: 4,
		layers: []Layer{
			{ID: 1, Name: "City Mesh", Slug: "city-mesh", IsPublished: true, AccessLevel: access.Public},
			{ID: 2, Name: "Member Backbone", Slug: "member-backbone", IsPublished: true, AccessLevel: access.Member},
			{ID: 3, Name: "Draft Layer", Slug: "draft-layer", IsPublished: false, AccessLevel: access.Public},
		},
	}
}

func memberActor() access.Actor {
	return access.Actor{
		ID:            10,
		Authenticated: true,
		Groups:        []access.Group{{ID: 1, Name: "member", Level: access.Member}},
	}
}

func adminActor() access.Actor {
	return access.Actor{
		ID:            11,
		Authenticated: true,
		Groups:        []access.Group{{ID: 2, Name: "admin", Level: access.Admin}},
	}
}

func TestListVisibility(t *testing.T) {
	svc := NewService(seededRepo(), nil, nil)
	ctx := context.Background()

	anon, err := svc.List(ctx, access.Anonymous())
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "city-mesh", anon[0].Slug)

	member, err := svc.List(ctx, memberActor())
	require.NoError(t, err)
	assert.Len(t, member, 2)

	su, err := svc.List(ctx, access.Actor{ID: 1, Authenticated: true, Superuser: true})
	require.NoError(t, err)
	assert.Len(t, su, 3, "superuser sees drafts and all tiers")
}

func TestGetBySlugHidesOutOfScope(t *testing.T) {
	svc := NewService(seededRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.GetBySlug(ctx, "member-backbone", access.Anonymous())
	assert.ErrorIs(t, err, shared.ErrNotFound, "restricted layer must look missing, not forbidden")

	layer, err := svc.GetBySlug(ctx, "member-backbone", memberActor())
	require.NoError(t, err)
	assert.Equal(t, int64(2), layer.ID)
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc := NewService(seededRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, memberActor(), Layer{Name: "New Layer"})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	created, err := svc.Create(ctx, adminActor(), Layer{Name: "Hilltop Relays"})
	require.NoError(t, err)
	assert.Equal(t, "hilltop-relays", created.Slug)
}

func TestDeleteRequiresAdmin(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	err := svc.Delete(ctx, memberActor(), "city-mesh")
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, adminActor(), "city-mesh"))
	assert.Equal(t, []int64{1}, repo.deleted)
}

type failingInvalidator struct{}

func (failingInvalidator) Invalidate(ctx context.Context) error {
	return errors.New("redis unavailable")
}

func TestDeleteLogsFailedInvalidation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	repo := seededRepo()
	svc := NewService(repo, failingInvalidator{}, logger)

	require.NoError(t, svc.Delete(context.Background(), adminActor(), "city-mesh"), "cache trouble must not fail the delete")
	assert.Equal(t, []int64{1}, repo.deleted)
	assert.Contains(t, buf.String(), "invalidate directory cache")
	assert.Contains(t, buf.String(), "redis unavailable")
}
