package layers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// DirectoryInvalidator drops cached node listings after a write.
type DirectoryInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service applies visibility and authorization rules around the layer
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
// actor. Superusers see everything, including unpublished layers.
func viewScope(actor access.Actor) access.Scope {
	if actor.Superuser {
		return access.Unrestricted()
	}
	return access.Unrestricted().Published().AccessibleTo(actor)
}

// List returns the layers visible to the actor.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]Layer, error) {
	return s.repo.List(ctx, viewScope(actor))
}

// GetBySlug returns one visible layer. Layers outside the actor's
// scope are indistinguishable from missing ones.
func (s *Service) GetBySlug(ctx context.Context, slug string, actor access.Actor) (Layer, error) {
	return s.repo.GetBySlug(ctx, slug, viewScope(actor))
}

// Create inserts a new layer. Restricted to the admin tier.
func (s *Service) Create(ctx context.Context, actor access.Actor, layer Layer) (Layer, error) {
	if err := requireAdmin(actor); err != nil {
		return Layer{}, err
	}
	layer.Slug = shared.Slugify(layer.Name)
	if layer.Slug == "" {
		return Layer{}, fmt.Errorf("%w: layer name yields empty slug", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, layer)
}

// Update modifies an existing layer. Restricted to the admin tier.
func (s *Service) Update(ctx context.Context, actor access.Actor, slug string, layer Layer) (Layer, error) {
	if err := requireAdmin(actor); err != nil {
		return Layer{}, err
	}
	existing, err := s.repo.GetBySlug(ctx, slug, access.Unrestricted())
	if err != nil {
		return Layer{}, err
	}
	if err := s.repo.Update(ctx, existing.ID, layer); err != nil {
		return Layer{}, err
	}
	return s.repo.GetBySlug(ctx, slug, access.Unrestricted())
}

// Delete removes a layer. Restricted to the admin tier.
func (s *Service) Delete(ctx context.Context, actor access.Actor, slug string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	existing, err := s.repo.GetBySlug(ctx, slug, access.Unrestricted())
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return err
	}
	// Deleting a layer unpublishes its nodes, so cached listings are stale.
	s.invalidateDirectory(ctx)
	return nil
}

func (s *Service) invalidateDirectory(ctx context.Context) {
	if s.directory == nil {
		return
	}
	if err := s.directory.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("invalidate directory cache", slog.Any("error", err))
	}
}

func requireAdmin(actor access.Actor) error {
	if actor.Superuser {
		return nil
	}
	if actor.Authenticated && actor.EffectiveLevel() >= access.Admin {
		return nil
	}
	return httpx.ErrForbidden
}
