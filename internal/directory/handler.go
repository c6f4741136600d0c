package directory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/donpacheco/nodeshot/internal/actors"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Handler serves the cached node directory.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actors  *actors.Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actorService *actors.Service) *Handler {
	return &Handler{logger: logger, service: service, actors: actorService}
}

// MountRoutes registers directory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.directory)
}

func (h *Handler) directory(w http.ResponseWriter, r *http.Request) {
	actor := h.actors.ActorFromSession(r.Context(), shared.SessionFromContext(r.Context()))
	entries, err := h.service.Directory(r.Context(), actor)
	if err != nil {
		h.logger.Error("load directory", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"nodes": entries})
}
