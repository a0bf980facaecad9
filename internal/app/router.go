package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/martdesk/martdesk/internal/auth"
	"github.com/martdesk/martdesk/internal/authz"
	"github.com/martdesk/martdesk/internal/customers"
	"github.com/martdesk/martdesk/internal/dashboard"
	"github.com/martdesk/martdesk/internal/orders"
	"github.com/martdesk/martdesk/internal/platform/httpx"
	"github.com/martdesk/martdesk/internal/producthistory"
	"github.com/martdesk/martdesk/internal/products"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/stores"
	"github.com/martdesk/martdesk/internal/uploads"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          authz.Middleware

	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	OrdersHandler    *orders.Handler
	ProductsHandler  *products.Handler
	HistoryHandler   *producthistory.Handler
	StoresHandler    *stores.Handler
	CustomersHandler *customers.Handler
	UploadsHandler   *uploads.Handler
}

// NewRouter constructs the chi.Router with gateway defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The root is the sign-in surface and the only page reachable without a
	// session. A logged-in caller is pointed at the dashboard instead.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if user := shared.CurrentUser(r.Context()); user != nil {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"authenticated": true,
				"user":          user,
				"redirect":      "/dashboard",
			})
			return
		}
		payload := map[string]any{"authenticated": false}
		if sess != nil {
			if token, err := params.CSRFManager.EnsureToken(r.Context(), sess); err == nil {
				payload["csrfToken"] = token
			}
			if flash := sess.PopFlash(); flash != nil {
				payload["flash"] = flash
			}
		}
		httpx.JSON(w, http.StatusOK, payload)
	})

	params.AuthHandler.MountRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(params.Guard.RequireAuth)

		params.AuthHandler.MountProfileRoutes(r)
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		r.Route("/orders", params.OrdersHandler.MountRoutes)
		r.Route("/products", params.ProductsHandler.MountRoutes)
		r.Route("/product-history", params.HistoryHandler.MountRoutes)
		r.Route("/stores", params.StoresHandler.MountRoutes)
		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/failed-uploads", params.UploadsHandler.MountRoutes)
	})

	return r
}
