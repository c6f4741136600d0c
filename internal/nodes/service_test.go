package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

func ref[T any](v T) *T { return &v }

type nodeRow struct{ node Node }

func (r nodeRow) Published() bool     { return r.node.IsPublished }
func (r nodeRow) Level() access.Level { return r.node.AccessLevel }

// mockRepository filters in memory with Scope.Match, standing in for
// the SQL rendering of the same scope.
type mockRepository struct {
	nodes       map[int64]*Node
	nextID      int64
	staleMarked int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{nodes: make(map[int64]*Node), nextID: 1}
}

func (m *mockRepository) add(n Node) {
	n.ID = m.nextID
	m.nextID++
	m.nodes[n.ID] = &n
}

func (m *mockRepository) List(ctx context.Context, filters ListFilters, scope access.Scope) ([]Node, int, error) {
	var out []Node
	for _, n := range m.nodes {
		if filters.LayerID != nil && (n.LayerID == nil || *n.LayerID != *filters.LayerID) {
			continue
		}
		if filters.Status != "" && n.Status != filters.Status {
			continue
		}
		if !scope.Match(nodeRow{node: *n}) {
			continue
		}
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *mockRepository) ListInBounds(ctx context.Context, bounds Bounds, scope access.Scope) ([]Node, error) {
	var out []Node
	for _, n := range m.nodes {
		if n.Lat < bounds.SWLat || n.Lat > bounds.NELat || n.Lng < bounds.SWLng || n.Lng > bounds.NELng {
			continue
		}
		if !scope.Match(nodeRow{node: *n}) {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (m *mockRepository) GetBySlug(ctx context.Context, slug string, scope access.Scope) (Node, error) {
	for _, n := range m.nodes {
		if n.Slug == slug && scope.Match(nodeRow{node: *n}) {
			return *n, nil
		}
	}
	return Node{}, shared.ErrNotFound
}

func (m *mockRepository) Create(ctx context.Context, node Node) (Node, error) {
	node.ID = m.nextID
	m.nextID++
	m.nodes[node.ID] = &node
	return node, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, node Node) error {
	existing, ok := m.nodes[id]
	if !ok {
		return shared.ErrNotFound
	}
	node.ID = id
	node.Slug = existing.Slug
	node.OwnerID = existing.OwnerID
	m.nodes[id] = &node
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.nodes[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.nodes, id)
	return nil
}

func (m *mockRepository) MarkStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	for _, n := range m.nodes {
		if n.Status == StatusActive && n.LastSeenAt != nil && n.LastSeenAt.Before(cutoff) {
			n.Status = StatusPotential
			count++
		}
	}
	m.staleMarked = count
	return count, nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return nil
}

func seeded() *mockRepository {
	repo := newMockRepository()
	repo.add(Node{LayerID: ref(int64(1)), OwnerID: ref(int64(10)), Name: "Gateway", Slug: "gateway", Status: StatusActive, Lat: 43.9, Lng: 12.9, IsPublished: true, AccessLevel: access.Public})
	repo.add(Node{LayerID: ref(int64(1)), OwnerID: ref(int64(10)), Name: "Backbone Relay", Slug: "backbone-relay", Status: StatusActive, Lat: 43.95, Lng: 12.91, IsPublished: true, AccessLevel: access.Member})
	repo.add(Node{LayerID: ref(int64(2)), OwnerID: ref(int64(11)), Name: "Draft Site", Slug: "draft-site", Status: StatusPlanned, Lat: 44.0, Lng: 13.0, IsPublished: false, AccessLevel: access.Public})
	return repo
}

func member() access.Actor {
	return access.Actor{ID: 10, Authenticated: true, Groups: []access.Group{{ID: 1, Name: "member", Level: access.Member}}}
}

func TestListAppliesViewScope(t *testing.T) {
	svc := NewService(seeded(), nil, nil)
	ctx := context.Background()

	anon, _, err := svc.List(ctx, access.Anonymous(), ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, "gateway", anon[0].Slug)

	mem, _, err := svc.List(ctx, member(), ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, mem, 2)

	su, _, err := svc.List(ctx, access.Actor{ID: 1, Authenticated: true, Superuser: true}, ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, su, 3)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	svc := NewService(seeded(), nil, nil)
	_, _, err := svc.List(context.Background(), access.Anonymous(), ListFilters{Status: "haunted"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListInBounds(t *testing.T) {
	svc := NewService(seeded(), nil, nil)
	bounds := Bounds{SWLat: 43.8, SWLng: 12.8, NELat: 43.99, NELng: 12.99}

	visible, err := svc.ListInBounds(context.Background(), member(), bounds)
	require.NoError(t, err)
	assert.Len(t, visible, 2, "both published nodes sit inside the box")

	_, err = svc.ListInBounds(context.Background(), member(), Bounds{SWLat: 50, NELat: 40, SWLng: 0, NELng: 1})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateRequiresAuthentication(t *testing.T) {
	svc := NewService(seeded(), nil, nil)
	_, err := svc.Create(context.Background(), access.Anonymous(), Node{LayerID: ref(int64(1)), Name: "New Node"})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestCreateSetsOwnerSlugAndStatus(t *testing.T) {
	repo := seeded()
	inv := &countingInvalidator{}
	svc := NewService(repo, inv, nil)

	created, err := svc.Create(context.Background(), member(), Node{LayerID: ref(int64(1)), Name: "Café Antenna", Lat: 43.9, Lng: 12.9})
	require.NoError(t, err)
	require.NotNil(t, created.OwnerID)
	assert.Equal(t, int64(10), *created.OwnerID)
	assert.Equal(t, "cafe-antenna", created.Slug)
	assert.Equal(t, StatusPotential, created.Status)
	assert.Equal(t, 1, inv.calls, "directory cache invalidated after create")
}

func TestUpdateOwnership(t *testing.T) {
	svc := NewService(seeded(), nil, nil)
	ctx := context.Background()

	other := access.Actor{ID: 99, Authenticated: true, Groups: []access.Group{{ID: 1, Name: "member", Level: access.Member}}}
	_, err := svc.Update(ctx, other, "gateway", Node{LayerID: ref(int64(1)), Name: "Gateway", Lat: 43.9, Lng: 12.9})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	updated, err := svc.Update(ctx, member(), "gateway", Node{LayerID: ref(int64(1)), Name: "Gateway Mk2", Status: StatusActive, Lat: 43.9, Lng: 12.9, IsPublished: true})
	require.NoError(t, err)
	assert.Equal(t, "Gateway Mk2", updated.Name)
}

func TestUpdateOutOfScopeLooksMissing(t *testing.T) {
	svc := NewService(seeded(), nil, nil)
	// draft-site is unpublished, invisible to a plain member.
	_, err := svc.Update(context.Background(), member(), "draft-site", Node{LayerID: ref(int64(2)), Name: "X"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteByAdminTier(t *testing.T) {
	repo := seeded()
	svc := NewService(repo, nil, nil)
	admin := access.Actor{ID: 50, Authenticated: true, Groups: []access.Group{{ID: 9, Name: "admin", Level: access.Admin}}}

	require.NoError(t, svc.Delete(context.Background(), admin, "gateway"))
	_, err := svc.GetBySlug(context.Background(), admin, "gateway")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSweepStale(t *testing.T) {
	repo := newMockRepository()
	repo.add(Node{Name: "Old", Slug: "old", Status: StatusActive, LastSeenAt: ref(time.Now().Add(-48 * time.Hour)), IsPublished: true})
	repo.add(Node{Name: "Fresh", Slug: "fresh", Status: StatusActive, LastSeenAt: ref(time.Now()), IsPublished: true})
	repo.add(Node{Name: "Silent", Slug: "silent", Status: StatusActive, IsPublished: true})
	inv := &countingInvalidator{}
	svc := NewService(repo, inv, nil)

	demoted, err := svc.SweepStale(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), demoted, "never-seen nodes are left alone")
	assert.Equal(t, 1, inv.calls)
}

func TestCreateRejectsUnsluggableName(t *testing.T) {
	svc := NewService(seeded(), nil, nil)
	_, err := svc.Create(context.Background(), member(), Node{LayerID: ref(int64(1)), Name: "***", Lat: 43.9, Lng: 12.9})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

// Nodes orphaned by a layer delete or never seen by a device carry
// NULL layer_id, elevation and last_seen_at. They must still flow
// through listings and lookups.
func TestOrphanedNodeSurvivesListingAndLookup(t *testing.T) {
	repo := seeded()
	repo.add(Node{Name: "Orphan", Slug: "orphan", Status: StatusPotential, Lat: 44.1, Lng: 13.1, IsPublished: true, AccessLevel: access.Public})
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	listed, _, err := svc.List(ctx, access.Anonymous(), ListFilters{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 2)

	got, err := svc.GetBySlug(ctx, access.Anonymous(), "orphan")
	require.NoError(t, err)
	assert.Nil(t, got.LayerID)
	assert.Nil(t, got.Elevation)
	assert.Nil(t, got.LastSeenAt)

	resp := toResponse(got)
	assert.Nil(t, resp.LayerID)
	assert.Nil(t, resp.LastSeenAt)

	// Filtering by layer must not match the orphan.
	filtered, _, err := svc.List(ctx, access.Anonymous(), ListFilters{Page: 1, Limit: 10, LayerID: ref(int64(1))})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "gateway", filtered[0].Slug)
}
