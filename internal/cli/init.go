// Package cli holds the initialization shared by the laplog binaries and the
// laplog command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"laplog/internal/amqp"
	"laplog/internal/backend"
	"laplog/internal/config"
	"laplog/internal/core"
	"laplog/internal/log"
	"laplog/internal/store"
)

// SetupLogger builds the process logger from LOG_LEVEL, LOG_FORMAT and
// LOG_FILE and makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	return setupLogger(cfg, component, nil)
}

func setupLogger(cfg *config.Config, component string, out io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
		Format:    cfg.LogFormat,
		File:      cfg.LogFile,
		Output:    out,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore creates the configured primary backend and loads the record
// store from it. A corrupt blob fails the open unless AllowEmptyOnCorrupt is
// set, in which case the store starts empty and the next write replaces the
// blob. The caller owns the returned backend and must Close it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*store.Store, *backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrIOFailure, err)
	}

	opts := []store.Option{store.WithLogger(logger.Logger)}
	if cfg.StrictPersistence {
		opts = append(opts, store.WithStrictPersistence())
	}

	st, err := store.Open(ctx, res.Blobs, cfg.StoreKey, opts...)
	switch {
	case err == nil:
		return st, res, nil
	case errors.Is(err, core.ErrCorruptState) && cfg.AllowEmptyOnCorrupt:
		logger.WarnContext(ctx, "Stored records are unreadable, starting empty",
			log.FieldBlobKey, cfg.StoreKey,
			log.FieldError, err)
		return store.New(append(opts, store.WithPersistence(res.Blobs, cfg.StoreKey))...), res, nil
	default:
		_ = res.Close()
		return nil, nil, err
	}
}

// ConnectPublisher dials the broker when AMQP is configured. It returns nil
// without error when notifications are disabled.
func ConnectPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		logger.InfoContext(ctx, "AMQP disabled, change notifications off")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect AMQP: %w", err)
	}
	logger.InfoContext(ctx, "AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.InfoContext(ctx, "Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.WarnContext(shutdownCtx, "Shutdown timeout reached")
		} else {
			logger.InfoContext(shutdownCtx, "Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
