package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observatorio-ti/observatorio/internal/departures"
	jobmetrics "github.com/observatorio-ti/observatorio/internal/jobs"
)

type stubLoader struct {
	snap  *departures.Snapshot
	err   error
	calls int
}

func (s *stubLoader) LoadAll(ctx context.Context) (*departures.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

type stubPublisher struct {
	version int64
	err     error
}

func (s *stubPublisher) Publish(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.version++
	return s.version, nil
}

func testSnapshot() *departures.Snapshot {
	return departures.NewSnapshot(
		[]departures.MonthlySeriesRow{{Month: "2025-01", Count: 2}},
		[]departures.DestinationAggregateRow{{DestinationName: "aposentadoria", Total: 2}},
		[]departures.OriginAggregateRow{{OriginName: "trt1", Total: 2}},
		time.Date(2026, 1, 2, 6, 0, 0, 0, time.UTC),
	)
}

func newRefreshTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewDatasetRefreshTask("cron")
	require.NoError(t, err)
	return task
}

func TestNewDatasetRefreshTaskDefaultsReason(t *testing.T) {
	task, err := NewDatasetRefreshTask("")
	require.NoError(t, err)
	assert.Equal(t, TaskDatasetRefresh, task.Type())

	var payload DatasetRefreshPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "manual", payload.Reason)
}

func TestDatasetRefreshPublishesAfterLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	loader := &stubLoader{snap: testSnapshot()}
	publisher := &stubPublisher{}
	job := NewDatasetRefreshJob(loader, publisher, nil, metrics)

	require.NoError(t, job.Handle(context.Background(), newRefreshTask(t)))
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, int64(1), publisher.version)

	count, err := testutil.GatherAndCount(reg, "observatorio_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDatasetRefreshLoadFailureSkipsPublish(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	loadErr := errors.New("dataset: load data/top_destinos.json: status 503")
	publisher := &stubPublisher{}
	job := NewDatasetRefreshJob(&stubLoader{err: loadErr}, publisher, nil, metrics)

	err := job.Handle(context.Background(), newRefreshTask(t))
	require.ErrorIs(t, err, loadErr)
	assert.Zero(t, publisher.version, "servers must not be told to reload a broken dataset")

	count, err := testutil.GatherAndCount(reg, "observatorio_jobs_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDatasetRefreshPublishFailure(t *testing.T) {
	pubErr := errors.New("redis down")
	job := NewDatasetRefreshJob(&stubLoader{snap: testSnapshot()}, &stubPublisher{err: pubErr}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.ErrorIs(t, job.Run(context.Background(), "manual"), pubErr)
}

func TestDatasetRefreshWithoutPublisher(t *testing.T) {
	job := NewDatasetRefreshJob(&stubLoader{snap: testSnapshot()}, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, job.Run(context.Background(), "manual"))
}

func TestDatasetRefreshBadPayloadSkipsRetry(t *testing.T) {
	job := NewDatasetRefreshJob(&stubLoader{snap: testSnapshot()}, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskDatasetRefresh, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDatasetRefreshUnconfigured(t *testing.T) {
	var job *DatasetRefreshJob
	require.Error(t, job.Handle(context.Background(), newRefreshTask(t)))
}
