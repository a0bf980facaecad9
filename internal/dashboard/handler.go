package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the dashboard route. Any authenticated user may
// open it; the payload itself shrinks to what they are allowed to see.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Show)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	user := shared.CurrentUser(r.Context())
	token := shared.CurrentToken(r.Context())

	summary, err := h.service.Summary(r.Context(), user, token)
	if err != nil {
		h.logger.Error("dashboard summary failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
