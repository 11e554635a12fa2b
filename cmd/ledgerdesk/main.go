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

	"github.com/ledgerdesk/ledgerdesk/internal/app"
	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/grants"
	"github.com/ledgerdesk/ledgerdesk/internal/guard"
	"github.com/ledgerdesk/ledgerdesk/internal/modules"
	"github.com/ledgerdesk/ledgerdesk/internal/observability"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/cache"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/db"
	"github.com/ledgerdesk/ledgerdesk/internal/shared"
	"github.com/ledgerdesk/ledgerdesk/internal/view"
	"github.com/ledgerdesk/ledgerdesk/jobs"
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

	dbpool, err := db.New(ctx, cfg.DatabaseOptions("ledgerdesk"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
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
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	redisOpts := cfg.RedisOptions().AsynqOpt()
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	grantRepo := grants.NewPostgresStore(dbpool)
	grantCache := grants.NewCachedStore(grantRepo, redisClient, cfg.AuthzGrantCacheTTL, logger)
	grantService := grants.NewService(grantRepo, grantCache, jobClient, logger)

	moduleRegistry := modules.NewPostgresRegistry(dbpool)
	moduleService := modules.NewService(moduleRegistry, logger)

	engine := authz.NewEngine(grantCache, logger).WithObserver(metrics)
	serverGuard := guard.NewServer(engine, logger)
	clientGuard := guard.NewClient(engine, moduleService, templates, cfg.AuthzFallbackRoute, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		ServerGuard:    serverGuard,
		ClientGuard:    clientGuard,
		AccessHandler:  guard.NewHandler(logger, serverGuard, clientGuard),
		GrantsHandler:  grants.NewHandler(logger, grantService, serverGuard),
		ModulesHandler: modules.NewHandler(logger, moduleService, serverGuard),
		JobHandler:     jobs.NewHandler(inspector, logger),
		HealthChecks: map[string]app.HealthCheck{
			"db":    dbpool.Ping,
			"redis": cache.Check(redisClient),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.Duration("grant_cache_ttl", grantCache.TTL()),
		)
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
