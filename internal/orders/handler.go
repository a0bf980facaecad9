package orders

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

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(authz.PermOrderView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
}

type listResponse struct {
	Orders     []upstream.Order `json:"orders"`
	Pagination query.Pagination `json:"pagination"`
	Range      string           `json:"range"`
	Filtered   bool             `json:"hasFilters"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := query.FromQuery(r.URL.Query())
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		params = query.Remember(sess, "orders", params, r.URL.Query().Has("reset"))
	}
	user := shared.CurrentUser(r.Context())
	token := shared.CurrentToken(r.Context())

	page, err := h.service.List(r.Context(), user, token, params)
	if err != nil {
		h.logger.Error("list orders failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	pagination := query.NewPagination(page.Page, page.Limit, page.Total)
	httpx.JSON(w, http.StatusOK, listResponse{
		Orders:     page.Orders,
		Pagination: pagination,
		Range:      pagination.RangeLabel(),
		Filtered:   params.HasFilters(),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	order, err := h.service.Get(r.Context(), shared.CurrentToken(r.Context()), id)
	if err != nil {
		h.logger.Error("get order failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order})
}
