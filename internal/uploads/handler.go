package uploads

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/martdesk/martdesk/internal/authz"
	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/upstream"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers failed-upload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermFailedUploadView))
		r.Get("/", h.List)
	})
}

type listResponse struct {
	FailedUploads []upstream.FailedUpload `json:"failedUploads"`
	Pagination    query.Pagination        `json:"pagination"`
	Range         string                  `json:"range"`
	Filtered      bool                    `json:"hasFilters"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := query.FromQuery(r.URL.Query())
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		params = query.Remember(sess, "failed-uploads", params, r.URL.Query().Has("reset"))
	}
	user := shared.CurrentUser(r.Context())
	token := shared.CurrentToken(r.Context())

	page, err := h.service.List(r.Context(), user, token, params)
	if err != nil {
		h.logger.Error("list failed uploads failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	pagination := query.NewPagination(page.Page, page.Limit, page.Total)
	httpx.JSON(w, http.StatusOK, listResponse{
		FailedUploads: page.FailedUploadsResults,
		Pagination:    pagination,
		Range:         pagination.RangeLabel(),
		Filtered:      params.HasFilters(),
	})
}
