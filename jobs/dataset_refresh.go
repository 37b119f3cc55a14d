package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/observatorio-ti/observatorio/internal/dashboard"
	jobmetrics "github.com/observatorio-ti/observatorio/internal/jobs"
)

const refreshJobName = "dataset_refresh"

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// RefreshPublisher announces a new dataset version to the dashboard servers.
type RefreshPublisher interface {
	Publish(ctx context.Context) (int64, error)
}

// DatasetRefreshJob loads the published aggregates exactly as a server would and, only
// when the full load succeeds, broadcasts a refresh so servers swap their snapshot.
type DatasetRefreshJob struct {
	Loader    dashboard.Loader
	Publisher RefreshPublisher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	Timeout   time.Duration
}

// NewDatasetRefreshJob wires dependencies for the refresh handler.
func NewDatasetRefreshJob(loader dashboard.Loader, publisher RefreshPublisher, logger *slog.Logger, metrics *jobmetrics.Metrics) *DatasetRefreshJob {
	return &DatasetRefreshJob{
		Loader:    loader,
		Publisher: publisher,
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   time.Minute,
	}
}

// Handle processes dataset refresh tasks.
func (j *DatasetRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Loader == nil {
		return errors.New("dataset refresh: handler not configured")
	}
	var payload DatasetRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("dataset refresh: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	return j.Run(ctx, payload.Reason)
}

// Run performs one refresh. It is shared by the queue handler and the CLI.
func (j *DatasetRefreshJob) Run(ctx context.Context, reason string) (resultErr error) {
	tracker := j.metrics().Track(refreshJobName)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", reason))
	logger.Info("starting dataset refresh")

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := j.Loader.LoadAll(ctx)
	if err != nil {
		logger.Error("load dataset", slog.Any("error", err))
		return err
	}

	var version int64
	if j.Publisher != nil {
		version, err = j.Publisher.Publish(ctx)
		if err != nil {
			logger.Error("publish refresh", slog.Any("error", err))
			return err
		}
	}

	logger.Info("completed dataset refresh",
		slog.Int("months", len(snap.Series)),
		slog.Int("destinations", len(snap.Destinations)),
		slog.Int("origins", len(snap.Origins)),
		slog.Int64("version", version),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *DatasetRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDatasetRefresh))
	}
	return slog.Default().With(slog.String("job", TaskDatasetRefresh))
}

func (j *DatasetRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
