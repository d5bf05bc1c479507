package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"atendo.app/desk/common/id"
	"atendo.app/desk/common/logger"
	"atendo.app/desk/common/otel"
	"atendo.app/desk/core/config"
	"atendo.app/desk/core/db"
	"atendo.app/desk/internal/channel"
	"atendo.app/desk/internal/events"
	"atendo.app/desk/internal/service"
	"atendo.app/desk/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeSweeper)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "urgency sweeper starting",
		"env", cfg.Env,
		"threshold", cfg.Urgency.Threshold.String(),
		"interval", cfg.Urgency.Interval.String())

	if err := id.Init(id.NodeSweeper); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

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

	notifier := events.NewRedisNotifier(redisClient, cfg.Redis.EventChannelPrefix)
	stores := store.NewStores(database.Pool())

	services := service.NewServices(
		stores,
		service.NewTxRunner(database),
		channel.NewRegistry(),
		notifier,
		nil,
		cfg.Urgency.Threshold,
		service.SyncConfig{},
	)

	// The lock TTL outlives one interval so a wedged replica's lease lapses
	// before the next replica sweeps twice.
	lock := events.NewSweepLock(redisClient, cfg.Redis.SweepLockKey, 2*cfg.Urgency.Interval)
	sweeper := service.NewUrgencySweeper(services.Urgency(), cfg.Urgency.Interval, lock)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sweeper.Run(runCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	sweeper.Stop()
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 10*time.Second)
	defer cancelShutdown()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}
