package stores

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/martdesk/martdesk/internal/authz"
	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

// maxStoreFormBytes caps the create-store multipart body, logo included.
const maxStoreFormBytes = 5 << 20

type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers store routes. Listing needs either view or manage;
// mutations need manage.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermStoreView, authz.PermStoreManage))
		r.Get("/", h.List)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(authz.PermStoreManage))
		r.Post("/", h.Create)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := shared.CurrentUser(r.Context())
	token := shared.CurrentToken(r.Context())

	list, err := h.service.List(r.Context(), user, token)
	if err != nil {
		h.logger.Error("list stores failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stores": list})
}

type createForm struct {
	Name         string `validate:"required,min=2"`
	Email        string `validate:"required,email"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required,min=8"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxStoreFormBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "could not parse store form")
		return
	}

	form := createForm{
		Name:         r.PostFormValue("name"),
		Email:        r.PostFormValue("email"),
		ClientID:     r.PostFormValue("clientId"),
		ClientSecret: r.PostFormValue("clientSecret"),
	}
	if err := h.validator.Struct(form); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = "failed " + fieldErr.Tag() + " validation"
		}
		httpx.JSON(w, http.StatusBadRequest, map[string]any{
			"title":  "invalid store form",
			"fields": fields,
		})
		return
	}

	input := upstream.CreateStoreInput{
		Name:         form.Name,
		Email:        form.Email,
		ClientID:     form.ClientID,
		ClientSecret: form.ClientSecret,
	}
	if file, header, err := r.FormFile("image"); err == nil {
		defer func() {
			_ = file.Close()
		}()
		input.Image = file
		input.ImageName = header.Filename
	}

	token := shared.CurrentToken(r.Context())
	store, err := h.service.Create(r.Context(), token, input)
	if err != nil {
		h.logger.Error("create store failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Store created"})
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"store": store})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := shared.CurrentUser(r.Context())
	token := shared.CurrentToken(r.Context())

	if err := h.service.Delete(r.Context(), user, token, id); err != nil {
		h.logger.Error("delete store failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Store deleted"})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
