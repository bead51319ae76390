package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"laplog/internal/amqp"
	"laplog/internal/backend"
	"laplog/internal/cli"
	"laplog/internal/log"
	"laplog/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Starting laplog-worker")

	replicaCfg, ok, err := backend.ReplicaFromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid replica configuration", log.FieldError, err)
		os.Exit(1)
	}
	if !ok {
		logger.ErrorContext(ctx, "REPLICA_BACKEND is not set, nothing to do")
		os.Exit(1)
	}
	primaryCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid primary configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	primary, err := factory.CreateBackend(ctx, primaryCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open primary backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer primary.Close()

	replica, err := factory.CreateBackend(ctx, replicaCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open replica backend", log.FieldError, err, "backend", cfg.ReplicaBackend)
		os.Exit(1)
	}
	defer replica.Close()

	replicator := worker.NewReplicator(primary.Blobs, replica.Blobs, cfg.StoreKey)

	// Catch up on anything written while the worker was down.
	if changed, err := replicator.Sync(ctx); err != nil {
		logger.ErrorContext(ctx, "Startup sync failed", log.FieldError, err)
	} else {
		logger.InfoContext(ctx, "Startup sync done", "changed", changed)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return replicator.Run(gctx, cfg.SyncInterval)
	})

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		g.Go(func() error {
			return client.ConsumeRecordChanges(gctx, replicator.HandleChange)
		})
	} else {
		logger.InfoContext(ctx, "AMQP disabled, relying on periodic sync", "interval", cfg.SyncInterval.String())
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(context.Background(), "Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete")
}
