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

	"github.com/odyssey-erp/odyssey-admin/internal/app"
	"github.com/odyssey-erp/odyssey-admin/internal/csc"
	"github.com/odyssey-erp/odyssey-admin/internal/journal"
	"github.com/odyssey-erp/odyssey-admin/internal/limits"
	"github.com/odyssey-erp/odyssey-admin/internal/messages"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/restclient"
	"github.com/odyssey-erp/odyssey-admin/internal/proceedings"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/state"
	"github.com/odyssey-erp/odyssey-admin/jobs"
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

	dbpool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	localizer, err := messages.Default()
	if err != nil {
		logger.Error("load message catalog", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	sessionManager := shared.NewSessionManager(redisClient, "odyssey_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.SessionSecret)
	stateManager := state.NewManager(redisClient, cfg.StateTTL)

	rbacService := rbac.NewService(dbpool)
	permissions := rbac.NewCachedPermissions(rbacService, rbac.NewRoleInfoStore(stateManager), 5*time.Minute, logger)
	rbacMiddleware := rbac.Middleware{Source: permissions, Logger: logger}

	journalRepo := journal.NewRepository(dbpool)

	cscRest := restclient.New(cfg.CSCAPIURL)
	cscService := csc.NewService(csc.NewClient(cscRest), csc.NewSessionStore(stateManager), journalRepo, localizer, metrics, logger)

	limitsRest := restclient.New(cfg.LimitsAPIURL)
	limitsService := limits.NewService(limits.NewClient(limitsRest), limits.NewCache(redisClient, cfg.LimitsCacheTTL), cfg.LimitsPageSize)

	filings := proceedings.NewFilings(proceedings.NewWizardStore(stateManager))

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Localizer:          localizer,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, permissions, rbacMiddleware),
		CSCHandler:         csc.NewHandler(logger, cscService, rbacMiddleware),
		JournalHandler:     journal.NewHandler(logger, journalRepo),
		LimitsHandler:      limits.NewHandler(logger, limitsService, rbacMiddleware),
		ProceedingsHandler: proceedings.NewHandler(logger, rbacMiddleware, filings),
		JobHandler:         jobs.NewHandler(inspector, logger),
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
