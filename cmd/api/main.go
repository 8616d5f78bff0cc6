package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taotie8304/lu-gang-connect-project/internal/cache"
	"github.com/taotie8304/lu-gang-connect-project/internal/config"
	"github.com/taotie8304/lu-gang-connect-project/internal/database"
	"github.com/taotie8304/lu-gang-connect-project/internal/handlers"
	"github.com/taotie8304/lu-gang-connect-project/internal/jobs"
	"github.com/taotie8304/lu-gang-connect-project/internal/log"
	"github.com/taotie8304/lu-gang-connect-project/internal/oneapi"
	"github.com/taotie8304/lu-gang-connect-project/internal/queue"
	"github.com/taotie8304/lu-gang-connect-project/internal/repository"
	"github.com/taotie8304/lu-gang-connect-project/internal/server"
	"github.com/taotie8304/lu-gang-connect-project/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	if err := database.RunMigrations(cfg.Postgres.DSN); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	avatarStore, err := storage.NewAvatarStore(cfg.Storage)
	if err != nil {
		logger.Warn().Err(err).Msg("object store unavailable, avatar uploads disabled")
		avatarStore = nil
	} else if err := avatarStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure avatar bucket failed")
	}

	billing := oneapi.NewClient(cfg.OneAPI, logger)
	producer := queue.NewProducer(redisClient, cfg.Queue.Stream, logger)

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, avatarStore, billing, producer, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(repository.NewSessionRepository(dbPool), producer, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
