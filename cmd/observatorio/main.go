package main

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/observatorio-ti/observatorio/internal/app"
	"github.com/observatorio-ti/observatorio/internal/dashboard"
	dashboardhttp "github.com/observatorio-ti/observatorio/internal/dashboard/http"
	"github.com/observatorio-ti/observatorio/internal/dashboard/svg"
	"github.com/observatorio-ti/observatorio/internal/dataset"
	"github.com/observatorio-ti/observatorio/internal/observability"
	"github.com/observatorio-ti/observatorio/internal/platform/cache"
	"github.com/observatorio-ti/observatorio/internal/view"
	"github.com/observatorio-ti/observatorio/jobs"
)

type lineRenderer struct{}

func (lineRenderer) Line(width, height int, points []svg.Point, opts svg.LineOpts) (template.HTML, error) {
	return svg.Line(width, height, points, opts)
}

type barRenderer struct{}

func (barRenderer) HBars(width int, items []svg.BarItem, opts svg.BarOpts) (template.HTML, error) {
	return svg.HBars(width, items, opts)
}

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
	metrics := observability.NewMetrics()

	datasetMetrics, err := dataset.NewMetrics(metrics.Registerer())
	if err != nil {
		logger.Error("register dataset metrics", slog.Any("error", err))
		os.Exit(1)
	}
	baseURL, err := dataset.ResolveBase(cfg.LoaderOrigin(), cfg.BasePath)
	if err != nil {
		logger.Error("resolve data origin", slog.Any("error", err))
		os.Exit(1)
	}
	loader, err := dataset.NewLoader(baseURL,
		dataset.WithMetrics(datasetMetrics),
		dataset.WithLogger(logger),
	)
	if err != nil {
		logger.Error("init loader", slog.Any("error", err))
		os.Exit(1)
	}

	state := dashboard.NewState(dashboard.NewDeriver(cfg.TopDestinations))
	state.OnChange(func(view *dashboard.View, filters dashboard.Filters) {
		metrics.SnapshotApplied(view.LoadedAt)
		logger.Info("dashboard snapshot applied",
			slog.String("snapshot", view.SnapshotID.String()),
			slog.String("start", filters.Start),
			slog.String("end", filters.End),
		)
	})
	service := dashboard.NewService(loader, state, logger)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	dashboardHandler := dashboardhttp.NewHandler(logger, state, templates, lineRenderer{}, barRenderer{}).
		WithBasePath(cfg.BasePath)

	var jobHandler *jobs.Handler
	redisClient, err := cache.Connect(ctx, cfg.RedisAddr)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logger.Info("redis disabled, refresh notices off")
	case err != nil:
		logger.Warn("redis unavailable, refresh notices off", slog.Any("error", err))
	default:
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		bus := dashboard.NewRefreshBus(redisClient, "")
		if err := service.ListenForRefresh(ctx, bus); err != nil {
			logger.Warn("subscribe refresh notices", slog.Any("error", err))
		}

		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	addr, err := startServer(server, logger, stop)
	if err != nil {
		logger.Error("http listen", slog.String("addr", cfg.AppAddr), slog.Any("error", err))
		return
	}
	logger.Info("http server listening", slog.String("addr", addr.String()), slog.String("base_path", cfg.BasePath))

	// The loader may read from this very server; the listener is bound by now.
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := service.Reload(loadCtx); err != nil {
			logger.Error("initial dataset load", slog.Any("error", err))
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

// startServer binds the listener before returning so callers can reach the server
// immediately. onFailure runs if Serve stops for any reason other than Shutdown.
func startServer(server *http.Server, logger *slog.Logger, onFailure func()) (net.Addr, error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			if onFailure != nil {
				onFailure()
			}
		}
	}()
	return ln.Addr(), nil
}
