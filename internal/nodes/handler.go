package nodes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/actors"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Handler wires HTTP endpoints for nodes.
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

// MountRoutes registers node routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/bbox", h.bbox)
	r.Get("/{slug}", h.show)
	r.Put("/{slug}", h.update)
	r.Delete("/{slug}", h.del)
}

func (h *Handler) currentActor(r *http.Request) access.Actor {
	return h.actors.ActorFromSession(r.Context(), shared.SessionFromContext(r.Context()))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	filters := ListFilters{
		Page:   page,
		Limit:  limit,
		Status: r.URL.Query().Get("status"),
	}
	if layer := r.URL.Query().Get("layer"); layer != "" {
		if id, err := strconv.ParseInt(layer, 10, 64); err == nil {
			filters.LayerID = &id
		}
	}

	result, pagination, err := h.service.List(r.Context(), h.currentActor(r), filters)
	if err != nil {
		h.respondServiceError(w, err, "list nodes")
		return
	}
	out := make([]NodeResponse, 0, len(result))
	for _, n := range result {
		out = append(out, toResponse(n))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"nodes":      out,
		"pagination": pagination,
	})
}

func (h *Handler) bbox(w http.ResponseWriter, r *http.Request) {
	bounds, err := parseBounds(r.URL.Query().Get("sw"), r.URL.Query().Get("ne"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.ListInBounds(r.Context(), h.currentActor(r), bounds)
	if err != nil {
		h.respondServiceError(w, err, "list nodes in bounds")
		return
	}
	out := make([]NodeResponse, 0, len(result))
	for _, n := range result {
		out = append(out, toResponse(n))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"nodes": out})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	node, err := h.service.GetBySlug(r.Context(), h.currentActor(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondServiceError(w, err, "get node")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(node))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	node, ok := h.decodeNode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), h.currentActor(r), node)
	if err != nil {
		h.respondServiceError(w, err, "create node")
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	node, ok := h.decodeNode(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Update(r.Context(), h.currentActor(r), chi.URLParam(r, "slug"), node)
	if err != nil {
		h.respondServiceError(w, err, "update node")
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) del(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), h.currentActor(r), chi.URLParam(r, "slug")); err != nil {
		h.respondServiceError(w, err, "delete node")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeNode(w http.ResponseWriter, r *http.Request) (Node, bool) {
	var form NodeForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return Node{}, false
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Node{}, false
	}
	level := access.Public
	if form.AccessLevel != "" {
		parsed, err := access.ParseLevel(form.AccessLevel)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return Node{}, false
		}
		level = parsed
	}
	return Node{
		LayerID:     form.LayerID,
		Name:        form.Name,
		Description: form.Description,
		Status:      form.Status,
		Lat:         form.Lat,
		Lng:         form.Lng,
		Elevation:   form.Elevation,
		Metadata:    form.Metadata,
		IsPublished: form.IsPublished,
		AccessLevel: level,
	}, true
}

// parseBounds reads "lat,lng" corner pairs from the query string.
func parseBounds(sw, ne string) (Bounds, error) {
	swLat, swLng, err := parseCorner(sw)
	if err != nil {
		return Bounds{}, fmt.Errorf("sw: %w", err)
	}
	neLat, neLng, err := parseCorner(ne)
	if err != nil {
		return Bounds{}, fmt.Errorf("ne: %w", err)
	}
	return Bounds{SWLat: swLat, SWLng: swLng, NELat: neLat, NELng: neLng}, nil
}

func parseCorner(value string) (float64, float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("expected lat,lng")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lng, nil
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "node not found")
		return
	}
	if !errors.Is(err, httpx.ErrForbidden) && !errors.Is(err, httpx.ErrUnauthorized) &&
		!errors.Is(err, httpx.ErrDuplicate) && !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
