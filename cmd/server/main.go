package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"atendo.app/desk/common/id"
	"atendo.app/desk/common/llm"
	"atendo.app/desk/common/logger"
	"atendo.app/desk/common/otel"
	"atendo.app/desk/core/config"
	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/channel/meow"
	"atendo.app/desk/internal/events"
	httprouter "atendo.app/desk/internal/http/router"
	"atendo.app/desk/internal/service"
	"atendo.app/desk/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet, OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "desk starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(id.NodeServer); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected")

	notifier := events.NewRedisNotifier(redisClient, cfg.Redis.EventChannelPrefix)

	var llmClient llm.Client
	if cfg.AssistAI.Enabled() {
		llmClient, err = llm.New(llm.Config{
			APIKey:  cfg.AssistAI.APIKey,
			BaseURL: cfg.AssistAI.BaseURL,
			Model:   cfg.AssistAI.Model,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to initialize assist client", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "assist enabled", "model", cfg.AssistAI.Model)
	}

	stores := store.NewStores(database.Pool())
	registry := channel.NewRegistry()

	services := service.NewServices(
		stores,
		service.NewTxRunner(database),
		registry,
		notifier,
		llmClient,
		cfg.Urgency.Threshold,
		service.SyncConfig{
			DefaultLimit: cfg.Sync.DefaultLimit,
			ItemDelay:    cfg.Sync.ItemDelay,
			CallTimeout:  cfg.Sync.CallTimeout,
		},
	)

	sessions, err := meow.NewManager(ctx, cfg.DB.DSN, registry, services.Ingestor(), stores.Connections())
	if err != nil {
		slog.ErrorContext(ctx, "failed to open session store", "error", err)
		os.Exit(1)
	}
	if err := sessions.ConnectAll(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to restore sessions", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "channel sessions restored", "connections", len(registry.IDs()))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	sessions.Close(shutdownCtx)

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(gin.Recovery())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		JWTSecret:   cfg.Auth.JWTSecret,
		AdminAPIKey: cfg.Auth.AdminAPIKey,
	})

	return router
}
