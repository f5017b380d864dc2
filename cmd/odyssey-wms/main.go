package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/cmd/odyssey-wms/cli"
	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard"
	dashboardhttp "github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard/http"
	"github.com/odyssey-erp/odyssey-wms/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, logger, os.Args[2:]))
	}

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backend", slog.String("backend", cfg.Backend), slog.Any("error", err))
		os.Exit(1)
	}
	defer backend.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(backend.Directory, rbac.DefaultGrants)
	dashboardService := backend.DashboardService(cfg, logger)
	dashboardHandler := dashboardhttp.NewHandler(dashboardhttp.Config{
		Logger:         logger,
		Service:        dashboardService,
		Callers:        rbacService,
		Cache:          dashboard.NewCache(redisClient, cfg.DashboardCacheTTL),
		Metrics:        metrics,
		RequestTimeout: cfg.DashboardRequestTimeout,
		ExportLimit:    cfg.DashboardExportLimit,
	})

	redisOpts := jobs.RedisOpt(redisClient.Options())
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer jobClient.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		DashboardHandler: dashboardHandler,
		IdentityHandler:  rbac.NewIdentityHandler(logger, rbacService),
		JobHandler:       jobs.NewHandler(inspector, jobClient, logger),
		RBACMiddleware:   rbac.Middleware{Service: rbacService, Logger: logger},
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("backend", backend.Name))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func runJobs(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		logger.Error("init jobs cli", slog.Any("error", err))
		return 1
	}
	defer jobsCLI.Close()
	if err := jobsCLI.Run(ctx, os.Stdout, args); err != nil {
		logger.Error("jobs command", slog.Any("error", err))
		return 1
	}
	return 0
}
