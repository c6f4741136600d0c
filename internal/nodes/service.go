package nodes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// DirectoryInvalidator drops cached node listings after a write.
type DirectoryInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service applies visibility and ownership rules around the node
// repository.
type Service struct {
	repo      Repository
	directory DirectoryInvalidator
	logger    *slog.Logger
}

// NewService constructs a new Service. directory may be nil when no
// cached directory is wired in.
func NewService(repo Repository, directory DirectoryInvalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, directory: directory, logger: logger}
}

// viewScope is the row filter applied to every read on behalf of an
// actor. Superusers see everything, including unpublished nodes.
func viewScope(actor access.Actor) access.Scope {
	if actor.Superuser {
		return access.Unrestricted()
	}
	return access.Unrestricted().Published().AccessibleTo(actor)
}

// List returns the nodes visible to the actor, paginated.
func (s *Service) List(ctx context.Context, actor access.Actor, filters ListFilters) ([]Node, shared.Pagination, error) {
	if filters.Status != "" && !validStatus(filters.Status) {
		return nil, shared.Pagination{}, httpx.ErrValidation
	}
	result, total, err := s.repo.List(ctx, filters, viewScope(actor))
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// ListInBounds returns the visible nodes inside a bounding box.
func (s *Service) ListInBounds(ctx context.Context, actor access.Actor, bounds Bounds) ([]Node, error) {
	if err := validateBounds(bounds); err != nil {
		return nil, err
	}
	return s.repo.ListInBounds(ctx, bounds, viewScope(actor))
}

// GetBySlug returns one visible node. Nodes outside the actor's scope
// are indistinguishable from missing ones.
func (s *Service) GetBySlug(ctx context.Context, actor access.Actor, slug string) (Node, error) {
	return s.repo.GetBySlug(ctx, slug, viewScope(actor))
}

// Create inserts a node owned by the acting user.
func (s *Service) Create(ctx context.Context, actor access.Actor, node Node) (Node, error) {
	if !actor.Authenticated {
		return Node{}, httpx.ErrUnauthorized
	}
	if err := s.validate(node); err != nil {
		return Node{}, err
	}
	node.OwnerID = &actor.ID
	node.Slug = shared.Slugify(node.Name)
	if node.Slug == "" {
		return Node{}, fmt.Errorf("%w: node name yields empty slug", httpx.ErrValidation)
	}
	if node.Status == "" {
		node.Status = StatusPotential
	}
	created, err := s.repo.Create(ctx, node)
	if err != nil {
		return Node{}, err
	}
	s.invalidateDirectory(ctx)
	return created, nil
}

// Update modifies a node. Only the owner or an admin-tier actor may
// change it.
func (s *Service) Update(ctx context.Context, actor access.Actor, slug string, node Node) (Node, error) {
	existing, err := s.repo.GetBySlug(ctx, slug, viewScope(actor))
	if err != nil {
		return Node{}, err
	}
	if err := requireOwnership(actor, existing); err != nil {
		return Node{}, err
	}
	if err := s.validate(node); err != nil {
		return Node{}, err
	}
	if err := s.repo.Update(ctx, existing.ID, node); err != nil {
		return Node{}, err
	}
	s.invalidateDirectory(ctx)
	return s.repo.GetBySlug(ctx, slug, access.Unrestricted())
}

// Delete removes a node. Only the owner or an admin-tier actor may
// remove it.
func (s *Service) Delete(ctx context.Context, actor access.Actor, slug string) error {
	existing, err := s.repo.GetBySlug(ctx, slug, viewScope(actor))
	if err != nil {
		return err
	}
	if err := requireOwnership(actor, existing); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return err
	}
	s.invalidateDirectory(ctx)
	return nil
}

// SweepStale demotes active nodes not seen within the window. Used by
// the background worker.
func (s *Service) SweepStale(ctx context.Context, window time.Duration) (int64, error) {
	demoted, err := s.repo.MarkStale(ctx, time.Now().UTC().Add(-window))
	if err != nil {
		return 0, err
	}
	if demoted > 0 {
		s.invalidateDirectory(ctx)
	}
	return demoted, nil
}

func requireOwnership(actor access.Actor, node Node) error {
	if actor.Superuser {
		return nil
	}
	if !actor.Authenticated {
		return httpx.ErrUnauthorized
	}
	if node.OwnerID != nil && *node.OwnerID == actor.ID {
		return nil
	}
	if actor.EffectiveLevel() >= access.Admin {
		return nil
	}
	return httpx.ErrForbidden
}

func (s *Service) invalidateDirectory(ctx context.Context) {
	if s.directory == nil {
		return
	}
	if err := s.directory.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("invalidate directory cache", slog.Any("error", err))
	}
}
