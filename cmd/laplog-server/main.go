package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"laplog/internal/cache"
	"laplog/internal/cli"
	apphttp "laplog/internal/http"
	"laplog/internal/log"
	"laplog/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	ctx := context.Background()

	st, backendRes, err := cli.OpenStore(ctx, cfg, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to open record store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Month views are cached and invalidated on every write.
	views := cache.NewLRUCache[services.MonthView](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(views)
	cacheManager.StartCleanup(cfg.CacheTTL)

	svcOpts := []services.Option{
		services.WithViewCache(views),
		services.WithLogger(logger.WithComponent(log.ComponentRecords)),
	}
	publisher, err := cli.ConnectPublisher(ctx, cfg, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.WarnContext(ctx, "Continuing without change notifications", log.FieldError, err)
	} else if publisher != nil {
		svcOpts = append(svcOpts, services.WithPublisher(publisher))
	}
	svc := services.NewRecordService(st, svcOpts...)

	srv := apphttp.NewServer(":"+cfg.Port, svc,
		apphttp.WithLogger(logger),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
		apphttp.WithReadinessCheck("store", func(ctx context.Context) error {
			_, _, err := backendRes.Blobs.Get(ctx, cfg.StoreKey)
			return err
		}),
	)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		if err := svc.Close(); err != nil {
			logger.WarnContext(shutdownCtx, "Record service close error", log.FieldError, err)
		}
		if err := backendRes.Close(); err != nil {
			logger.WarnContext(shutdownCtx, "Backend close error", log.FieldError, err)
		}
	})

	logger.InfoContext(ctx, "Starting laplog server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"key", cfg.StoreKey,
		"records", st.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
