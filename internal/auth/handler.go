package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

// MountProfileRoutes registers the authenticated profile routes.
func (h *Handler) MountProfileRoutes(r chi.Router) {
	r.Get("/profile", h.showProfile)
	r.Put("/profile", h.updateProfile)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "could not parse login payload")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = "failed " + fieldErr.Tag() + " validation"
		}
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"title":  "invalid login form",
			"fields": fields,
		})
		return
	}

	user, token, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Warn("login rejected", "email", form.Email, "error", err)
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "session unavailable")
		return
	}
	sess.SetUser(user, token)
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back"})

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", "error", err)
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"redirect": "/dashboard",
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", "error", err)
		}
		sess.ClearUser()
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"redirect": "/"})
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	token := shared.CurrentToken(r.Context())
	user, err := h.service.Profile(r.Context(), token)
	if err != nil {
		h.logger.Error("fetch profile failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": user})
}

type profileForm struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Image string `json:"image" validate:"omitempty,url"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var form profileForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "could not parse profile payload")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = "failed " + fieldErr.Tag() + " validation"
		}
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"title":  "invalid profile form",
			"fields": fields,
		})
		return
	}

	token := shared.CurrentToken(r.Context())
	snapshot, err := h.service.UpdateProfile(r.Context(), token, upstream.UpdateProfileInput{
		Name:  form.Name,
		Email: form.Email,
		Image: form.Image,
	})
	if err != nil {
		h.logger.Error("update profile failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	// Refresh the session copy so the header and permission gates read the
	// saved record, not the pre-edit one.
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(snapshot, token)
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Profile updated"})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": snapshot})
}
