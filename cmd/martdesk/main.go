package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/martdesk/martdesk/internal/app"
	"github.com/martdesk/martdesk/internal/auth"
	"github.com/martdesk/martdesk/internal/authz"
	"github.com/martdesk/martdesk/internal/customers"
	"github.com/martdesk/martdesk/internal/dashboard"
	"github.com/martdesk/martdesk/internal/orders"
	"github.com/martdesk/martdesk/internal/platform/cache"
	"github.com/martdesk/martdesk/internal/platform/db"
	"github.com/martdesk/martdesk/internal/producthistory"
	"github.com/martdesk/martdesk/internal/products"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/shared"
	"github.com/martdesk/martdesk/internal/stores"
	"github.com/martdesk/martdesk/internal/uploads"
	"github.com/martdesk/martdesk/internal/upstream"
	"github.com/martdesk/martdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "martdesk_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	api := upstream.NewClient(cfg.APIBaseURL)
	queryCache := query.NewCache(redisClient, cfg.CacheTTL)
	guard := authz.Middleware{Logger: logger}

	enqueuer := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(api, authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	dashboardHandler := dashboard.NewHandler(logger, dashboard.NewService(api))
	ordersHandler := orders.NewHandler(logger, orders.NewService(api, queryCache), guard)
	productsHandler := products.NewHandler(logger, products.NewService(api, queryCache), guard)
	storesHandler := stores.NewHandler(logger, stores.NewService(api, queryCache), guard)
	customersHandler := customers.NewHandler(logger, customers.NewService(api, queryCache), guard)
	uploadsHandler := uploads.NewHandler(logger, uploads.NewService(api, queryCache), guard)

	historyRepo := producthistory.NewRepository(dbpool)
	historyService := producthistory.NewService(api, queryCache, historyRepo, enqueuer, cfg.UploadSpoolDir)
	historyHandler := producthistory.NewHandler(logger, historyService, guard)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guard:          guard,

		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		OrdersHandler:    ordersHandler,
		ProductsHandler:  productsHandler,
		HistoryHandler:   historyHandler,
		StoresHandler:    storesHandler,
		CustomersHandler: customersHandler,
		UploadsHandler:   uploadsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
