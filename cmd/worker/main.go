package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/taotie8304/lu-gang-connect-project/internal/cache"
	"github.com/taotie8304/lu-gang-connect-project/internal/config"
	"github.com/taotie8304/lu-gang-connect-project/internal/log"
	"github.com/taotie8304/lu-gang-connect-project/internal/oneapi"
	"github.com/taotie8304/lu-gang-connect-project/internal/queue"
	"github.com/taotie8304/lu-gang-connect-project/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	billing := oneapi.NewClient(cfg.OneAPI, logger)
	processor := tasks.NewProcessor(billing, logger)
	consumer := queue.NewConsumer(
		client,
		cfg.Queue.Stream,
		cfg.Queue.Group,
		cfg.Queue.Consumer,
		cfg.Queue.ClaimInterval,
		logger,
		processor,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("consumer group setup failed")
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
