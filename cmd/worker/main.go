package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/observatorio-ti/observatorio/internal/app"
	"github.com/observatorio-ti/observatorio/internal/dashboard"
	"github.com/observatorio-ti/observatorio/internal/dataset"
	jobmetrics "github.com/observatorio-ti/observatorio/internal/jobs"
	"github.com/observatorio-ti/observatorio/internal/platform/cache"
	"github.com/observatorio-ti/observatorio/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	baseURL, err := dataset.ResolveBase(cfg.LoaderOrigin(), cfg.BasePath)
	if err != nil {
		logger.Error("resolve data origin", slog.Any("error", err))
		os.Exit(1)
	}
	datasetMetrics, err := dataset.NewMetrics(nil)
	if err != nil {
		logger.Error("register dataset metrics", slog.Any("error", err))
		os.Exit(1)
	}
	loader, err := dataset.NewLoader(baseURL, dataset.WithLogger(logger), dataset.WithMetrics(datasetMetrics))
	if err != nil {
		logger.Error("init loader", slog.Any("error", err))
		os.Exit(1)
	}

	bus := dashboard.NewRefreshBus(redisClient, "")
	refreshJob := jobs.NewDatasetRefreshJob(loader, bus, logger, jobmetrics.NewMetrics(nil))

	refreshTask, err := jobs.NewDatasetRefreshTask("cron")
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDatasetRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RefreshCron, Task: refreshTask, Options: jobs.RefreshTaskOptions()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           metricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("starting worker", slog.String("refresh_cron", cfg.RefreshCron), slog.String("data", baseURL))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
