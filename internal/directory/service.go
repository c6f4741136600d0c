package directory

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/donpacheco/nodeshot/internal/access"
)

// Entry is the compact node summary served by the directory.
type Entry struct {
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	LayerID     int64        `json:"layer_id"`
	Status      string       `json:"status"`
	Lat         float64      `json:"lat"`
	Lng         float64      `json:"lng"`
	IsPublished bool         `json:"is_published"`
	AccessLevel access.Level `json:"access_level"`
}

// Published satisfies access.Record.
func (e Entry) Published() bool { return e.IsPublished }

// Level satisfies access.Record.
func (e Entry) Level() access.Level { return e.AccessLevel }

// Source loads node summaries from primary storage.
type Source interface {
	PublishedEntries(ctx context.Context) ([]Entry, error)
}

// Service answers directory reads from the cache, falling back to the
// source on a cold cache. Concurrent misses for the same tier collapse
// into one source load.
type Service struct {
	source Source
	cache  *Cache
	group  singleflight.Group
}

// NewService constructs the directory service.
func NewService(source Source, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

// Directory returns the published node entries visible to the actor.
// Superusers read the widest tier snapshot; everyone else reads the
// snapshot for their effective level.
func (s *Service) Directory(ctx context.Context, actor access.Actor) ([]Entry, error) {
	level := access.Admin
	if !actor.Superuser {
		level = actor.EffectiveLevel()
	}
	return s.directoryAtLevel(ctx, level)
}

func (s *Service) directoryAtLevel(ctx context.Context, level access.Level) ([]Entry, error) {
	key, err := s.cache.BuildKey(ctx, "directory", "nodes", strconv.Itoa(int(level)))
	if err != nil {
		return nil, err
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		var entries []Entry
		err := s.cache.FetchJSON(ctx, key, &entries, func(ctx context.Context) (any, error) {
			return s.buildSnapshot(ctx, level)
		})
		return entries, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]Entry), nil
}

// buildSnapshot loads all published entries and narrows them to the
// tier with the same scope the SQL path uses.
func (s *Service) buildSnapshot(ctx context.Context, level access.Level) ([]Entry, error) {
	all, err := s.source.PublishedEntries(ctx)
	if err != nil {
		return nil, err
	}
	scope := access.Unrestricted().Published().LevelUpTo(level)
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if scope.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Warm rebuilds the snapshot for every named tier. Used by the
// background worker after invalidation.
func (s *Service) Warm(ctx context.Context) error {
	all, err := s.source.PublishedEntries(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, level := range access.Levels() {
		g.Go(func() error {
			scope := access.Unrestricted().Published().LevelUpTo(level)
			snapshot := make([]Entry, 0, len(all))
			for _, e := range all {
				if scope.Match(e) {
					snapshot = append(snapshot, e)
				}
			}
			key, err := s.cache.BuildKey(ctx, "directory", "nodes", strconv.Itoa(int(level)))
			if err != nil {
				return err
			}
			return s.cache.StoreJSON(ctx, key, snapshot)
		})
	}
	return g.Wait()
}
