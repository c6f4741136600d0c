package actors

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/donpacheco/nodeshot/internal/access"
	"github.com/donpacheco/nodeshot/internal/platform/httpx"
	"github.com/donpacheco/nodeshot/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type identityResponse struct {
	Authenticated bool     `json:"authenticated"`
	Superuser     bool     `json:"superuser,omitempty"`
	ID            int64    `json:"id,omitempty"`
	Email         string   `json:"email,omitempty"`
	DisplayName   string   `json:"display_name,omitempty"`
	AccessLevel   string   `json:"access_level"`
	Groups        []string `json:"groups,omitempty"`
	CSRFToken     string   `json:"csrf_token,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	token, _ := h.csrfManager.EnsureToken(r.Context(), sess)

	actor, err := h.service.ActorByID(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("resolve actor after login", slog.Any("error", err), slog.Int64("user_id", user.ID))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, identityFor(user, actor, token))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	actor := h.service.ActorFromSession(r.Context(), sess)
	if !actor.Authenticated {
		httpx.JSON(w, http.StatusOK, identityResponse{AccessLevel: access.Public.String()})
		return
	}
	user, err := h.service.repo.FindByID(r.Context(), actor.ID)
	if err != nil {
		h.logger.Error("load current user", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, identityFor(user, actor, ""))
}

func identityFor(user *User, actor access.Actor, csrfToken string) identityResponse {
	groups := make([]string, 0, len(actor.Groups))
	for _, g := range actor.Groups {
		groups = append(groups, g.Name)
	}
	level := actor.EffectiveLevel().String()
	if actor.Superuser {
		level = access.Admin.String()
	}
	return identityResponse{
		Authenticated: true,
		Superuser:     actor.Superuser,
		ID:            user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		AccessLevel:   level,
		Groups:        groups,
		CSRFToken:     csrfToken,
	}
}
