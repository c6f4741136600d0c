package directory

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/donpacheco/nodeshot/internal/access"
)

type stubSource struct {
	entries []Entry
	calls   int
}

func (s *stubSource) PublishedEntries(ctx context.Context) ([]Entry, error) {
	s.calls++
	return s.entries, nil
}

func sampleEntries() []Entry {
	return []Entry{
		{Name: "Gateway", Slug: "gateway", LayerID: 1, Status: "active", IsPublished: true, AccessLevel: access.Public},
		{Name: "Relay", Slug: "relay", LayerID: 1, Status: "active", IsPublished: true, AccessLevel: access.Community},
		{Name: "Backbone", Slug: "backbone", LayerID: 2, Status: "active", IsPublished: true, AccessLevel: access.Member},
		{Name: "Core Router", Slug: "core-router", LayerID: 2, Status: "active", IsPublished: true, AccessLevel: access.Admin},
	}
}

func newTestService(t *testing.T, source Source) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(source, cache)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestDirectoryFiltersByActorTier(t *testing.T) {
	source := &stubSource{entries: sampleEntries()}
	svc, cleanup := newTestService(t, source)
	defer cleanup()
	ctx := context.Background()

	anon, err := svc.Directory(ctx, access.Anonymous())
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(anon) != 1 || anon[0].Slug != "gateway" {
		t.Fatalf("anonymous directory = %+v", anon)
	}

	member := access.Actor{ID: 4, Authenticated: true, Groups: []access.Group{{ID: 1, Name: "member", Level: access.Member}}}
	got, err := svc.Directory(ctx, member)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("member directory has %d entries, want 3", len(got))
	}
}

func TestDirectorySuperuserSeesAllTiers(t *testing.T) {
	source := &stubSource{entries: sampleEntries()}
	svc, cleanup := newTestService(t, source)
	defer cleanup()

	su := access.Actor{ID: 1, Authenticated: true, Superuser: true}
	got, err := svc.Directory(context.Background(), su)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(got) != len(sampleEntries()) {
		t.Fatalf("superuser directory has %d entries, want %d", len(got), len(sampleEntries()))
	}
}

func TestDirectoryCaches(t *testing.T) {
	source := &stubSource{entries: sampleEntries()}
	svc, cleanup := newTestService(t, source)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Directory(ctx, access.Anonymous()); err != nil {
		t.Fatalf("directory: %v", err)
	}
	if _, err := svc.Directory(ctx, access.Anonymous()); err != nil {
		t.Fatalf("directory: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 source load, got %d", source.calls)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	source := &stubSource{entries: sampleEntries()}
	svc, cleanup := newTestService(t, source)
	defer cleanup()
	ctx := context.Background()

	if _, err := svc.Directory(ctx, access.Anonymous()); err != nil {
		t.Fatalf("directory: %v", err)
	}
	if err := svc.cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := svc.Directory(ctx, access.Anonymous()); err != nil {
		t.Fatalf("directory: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d source loads", source.calls)
	}
}

func TestWarmPopulatesEveryTier(t *testing.T) {
	source := &stubSource{entries: sampleEntries()}
	svc, cleanup := newTestService(t, source)
	defer cleanup()
	ctx := context.Background()

	if err := svc.Warm(ctx); err != nil {
		t.Fatalf("warm: %v", err)
	}
	warmCalls := source.calls

	// Reads after warming never touch the source.
	member := access.Actor{ID: 4, Authenticated: true, Groups: []access.Group{{ID: 1, Name: "member", Level: access.Member}}}
	got, err := svc.Directory(ctx, member)
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("member directory has %d entries, want 3", len(got))
	}
	if source.calls != warmCalls {
		t.Fatalf("directory read hit the source after warmup")
	}
}
