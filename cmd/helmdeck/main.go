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

	"github.com/helmdeck/helmdeck/internal/app"
	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/grants"
	"github.com/helmdeck/helmdeck/internal/identity"
	"github.com/helmdeck/helmdeck/internal/menus"
	"github.com/helmdeck/helmdeck/internal/observability"
	"github.com/helmdeck/helmdeck/internal/platform/cache"
	"github.com/helmdeck/helmdeck/internal/platform/db"
	"github.com/helmdeck/helmdeck/internal/profiles"
	"github.com/helmdeck/helmdeck/internal/shared"
	"github.com/helmdeck/helmdeck/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "helmdeck_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	recorder := audit.NewRecorder(pool)

	profileRepo := profiles.NewRepository(pool)
	profileService := profiles.NewService(profileRepo, recorder)

	resolver := authz.NewService(profileRepo)
	authzMiddleware := authz.Middleware{Service: resolver, Logger: logger}

	menuRepo := menus.NewRepository(pool)
	menuService := menus.NewService(menuRepo, recorder)

	grantRepo := grants.NewRepository(pool)
	grantService := grants.NewService(grantRepo, recorder)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo, recorder)

	identityRepo := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepo, cfg.IdPAssertionSecret, cfg.IdPWebhookTokenHash)

	profilesHandler := profiles.NewHandler(logger, profileService, authzMiddleware)
	menusHandler := menus.NewHandler(logger, menuService, authzMiddleware)
	grantsHandler := grants.NewHandler(logger, grantService, authzMiddleware)
	auditHandler := audit.NewHandler(logger, auditService, authzMiddleware)
	identityHandler := identity.NewHandler(logger, identityService, profileService, resolver, sessionManager, csrfManager, recorder)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Authz:           &authzMiddleware,
		IdentityHandler: identityHandler,
		ProfilesHandler: profilesHandler,
		MenusHandler:    menusHandler,
		GrantsHandler:   grantsHandler,
		AuditHandler:    auditHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
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
