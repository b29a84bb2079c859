package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goldbridge/marketplace-backend/internal/deals"
	"github.com/goldbridge/marketplace-backend/internal/exports"
	"github.com/goldbridge/marketplace-backend/internal/syncjobs"
	"github.com/goldbridge/marketplace-backend/pkg/config"
	"github.com/goldbridge/marketplace-backend/pkg/crowdfunding"
	"github.com/goldbridge/marketplace-backend/pkg/db"
	"github.com/goldbridge/marketplace-backend/pkg/logger"
	"github.com/goldbridge/marketplace-backend/pkg/metrics"
	"github.com/goldbridge/marketplace-backend/pkg/redis"
)

const workerName = "sync-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: workerName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: workerName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	crowdfundingClient, err := crowdfunding.NewClient(cfg.Crowdfunding.APIURL,
		crowdfunding.WithTimeout(cfg.Crowdfunding.Timeout),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create crowdfunding client", err)
		os.Exit(1)
	}

	workerMetrics := metrics.NewSyncWorkerMetrics(prometheus.DefaultRegisterer)

	syncJobsRepo := syncjobs.NewRepository(dbClient.DB())
	syncService, err := syncjobs.NewService(syncJobsRepo, crowdfundingClient, workerMetrics, logg, syncjobs.Config{
		MaxAttempts: cfg.SyncQueue.MaxAttempts,
		BatchSize:   cfg.SyncQueue.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	exportsRepo := exports.NewRepository(dbClient.DB())
	dealsRepo := deals.NewRepository(dbClient.DB())
	exportsService, err := exports.NewService(exportsRepo, syncService, dealsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create exports service", err)
		os.Exit(1)
	}
	syncService.SetPostResultHandler(exportsService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting sync worker")

	metricsServer := &http.Server{
		Addr:    ":" + cfg.SyncQueue.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer metricsServer.Close()

	runSweeps(ctx, cfg, logg, redisClient, syncService, workerMetrics)

	logg.Info(ctx, "sync worker shutting down gracefully")
}

// runSweeps drains pending jobs on a ticker. A redis lock keeps a single
// instance sweeping when multiple replicas run.
func runSweeps(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	syncService syncjobs.Service,
	workerMetrics *metrics.SyncWorkerMetrics,
) {
	lockKey := redisClient.LockKey(workerName)
	ticker := time.NewTicker(cfg.SyncQueue.PollInterval)
	defer ticker.Stop()

	for {
		sweep(ctx, logg, redisClient, lockKey, cfg.SyncQueue.LockTTL, syncService, workerMetrics)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(
	ctx context.Context,
	logg *logger.Logger,
	redisClient *redis.Client,
	lockKey string,
	lockTTL time.Duration,
	syncService syncjobs.Service,
	workerMetrics *metrics.SyncWorkerMetrics,
) {
	acquired, err := redisClient.SetNX(ctx, lockKey, workerName, lockTTL)
	if err != nil {
		logg.Error(ctx, "failed to acquire sweep lock", err)
		return
	}
	if !acquired {
		logg.Debug(ctx, "sweep lock held elsewhere, skipping cycle")
		return
	}
	defer func() {
		if err := redisClient.Del(ctx, lockKey); err != nil {
			logg.Error(ctx, "failed to release sweep lock", err)
		}
	}()

	start := time.Now()
	processed, err := syncService.RunWorker(ctx)
	workerMetrics.ObserveCycle(workerName, time.Since(start))

	cycleCtx := logg.WithField(ctx, "processed", processed)
	if err != nil {
		logg.Error(cycleCtx, "sweep finished with errors", err)
		return
	}
	if processed > 0 {
		logg.Info(cycleCtx, "sweep complete")
	}
}
