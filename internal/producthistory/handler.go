package producthistory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

// MountRoutes registers purchase-history routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermHistoryView, authz.PermHistoryUpload))
		r.Get("/", h.List)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(authz.PermHistoryUpload))
		r.Post("/upload", h.Upload)
		r.Get("/uploads", h.ListUploads)
		r.Get("/uploads/{id}", h.UploadStatus)
		r.Post("/uploads/{id}/retry", h.RetryUpload)
		r.Delete("/uploads/{id}", h.CancelUpload)
	})
}

type listResponse struct {
	Products   []upstream.ProductHistory `json:"products"`
	Summary    upstream.HistorySummary   `json:"summary"`
	Pagination query.Pagination          `json:"pagination"`
	Range      string                    `json:"range"`
	Filtered   bool                      `json:"hasFilters"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := query.FromQuery(r.URL.Query())
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		params = query.Remember(sess, "product-history", params, r.URL.Query().Has("reset"))
	}
	user := shared.CurrentUser(r.Context())
	token := shared.CurrentToken(r.Context())

	page, err := h.service.List(r.Context(), user, token, params)
	if err != nil {
		h.logger.Error("list product history failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	pagination := query.NewPagination(page.Page, page.Limit, page.Total)
	httpx.JSON(w, http.StatusOK, listResponse{
		Products:   page.Products,
		Summary:    page.Summary,
		Pagination: pagination,
		Range:      pagination.RangeLabel(),
		Filtered:   params.HasFilters(),
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// The declared size is validated first; the form parser itself is
	// capped slightly above the ceiling so a rejection happens client-side
	// of the upstream API.
	if err := r.ParseMultipartForm(MaxUploadBytes + 1<<20); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "could not parse upload form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "a file is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	user := shared.CurrentUser(r.Context())
	token := shared.CurrentToken(r.Context())

	job, err := h.service.SubmitUpload(
		r.Context(), user, token,
		r.FormValue("storeID"),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		h.logger.Warn("upload rejected", "error", err, "file", header.Filename)
		httpx.RespondError(w, err)
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Upload accepted"})
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	user := shared.CurrentUser(r.Context())
	jobs, err := h.service.ListJobs(r.Context(), user, 20)
	if err != nil {
		h.logger.Error("list uploads failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *Handler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid upload id")
		return
	}
	job, err := h.service.JobStatus(r.Context(), shared.CurrentUser(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"job": job})
}

func (h *Handler) RetryUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid upload id")
		return
	}
	job, err := h.service.RetryUpload(r.Context(), shared.CurrentUser(r.Context()), shared.CurrentToken(r.Context()), id)
	if err != nil {
		h.logger.Warn("retry upload failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func (h *Handler) CancelUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid upload id")
		return
	}
	if err := h.service.CancelUpload(r.Context(), shared.CurrentUser(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"cancelled": true})
}
