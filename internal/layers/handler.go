package layers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/actors"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Handler wires HTTP endpoints for layers.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	actors    *actors.Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, actorService *actors.Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		actors:    actorService,
		validator: validator.New(),
	}
}

// MountRoutes registers layer routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{slug}", h.show)
	r.Put("/{slug}", h.update)
	r.Delete("/{slug}", h.del)
}

type layerRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	CenterLat   float64 `json:"center_lat" validate:"gte=-90,lte=90"`
	CenterLng   float64 `json:"center_lng" validate:"gte=-180,lte=180"`
	Zoom        int     `json:"zoom" validate:"gte=0,lte=22"`
	IsPublished bool    `json:"is_published"`
	AccessLevel string  `json:"access_level"`
}

type layerResponse struct {
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CenterLat   float64   `json:"center_lat"`
	CenterLng   float64   `json:"center_lng"`
	Zoom        int       `json:"zoom"`
	IsPublished bool      `json:"is_published"`
	AccessLevel string    `json:"access_level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := h.actors.ActorFromSession(r.Context(), shared.SessionFromContext(r.Context()))
	result, err := h.service.List(r.Context(), actor)
	if err != nil {
		h.logger.Error("list layers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]layerResponse, 0, len(result))
	for _, l := range result {
		out = append(out, toResponse(l))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"layers": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor := h.actors.ActorFromSession(r.Context(), shared.SessionFromContext(r.Context()))
	layer, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"), actor)
	if err != nil {
		h.respondServiceError(w, err, "get layer")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(layer))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := h.actors.ActorFromSession(r.Context(), shared.SessionFromContext(r.Context()))
	layer, ok := h.decodeLayer(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), actor, layer)
	if err != nil {
		h.respondServiceError(w, err, "create layer")
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := h.actors.ActorFromSession(r.Context(), shared.SessionFromContext(r.Context()))
	layer, ok := h.decodeLayer(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "slug"), layer)
	if err != nil {
		h.respondServiceError(w, err, "update layer")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) del(w http.ResponseWriter, r *http.Request) {
	actor := h.actors.ActorFromSession(r.Context(), shared.SessionFromContext(r.Context()))
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "slug")); err != nil {
		h.respondServiceError(w, err, "delete layer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeLayer(w http.ResponseWriter, r *http.Request) (Layer, bool) {
	var req layerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return Layer{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Layer{}, false
	}
	level := access.Public
	if req.AccessLevel != "" {
		parsed, err := access.ParseLevel(req.AccessLevel)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return Layer{}, false
		}
		level = parsed
	}
	return Layer{
		Name:        req.Name,
		Description: req.Description,
		CenterLat:   req.CenterLat,
		CenterLng:   req.CenterLng,
		Zoom:        req.Zoom,
		IsPublished: req.IsPublished,
		AccessLevel: level,
	}, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "layer not found")
		return
	}
	if !errors.Is(err, httpx.ErrForbidden) && !errors.Is(err, httpx.ErrDuplicate) && !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toResponse(l Layer) layerResponse {
	return layerResponse{
		Name:        l.Name,
		Slug:        l.Slug,
		Description: l.Description,
		CenterLat:   l.CenterLat,
		CenterLng:   l.CenterLng,
		Zoom:        l.Zoom,
		IsPublished: l.IsPublished,
		AccessLevel: l.AccessLevel.String(),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}
