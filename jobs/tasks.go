package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDatasetRefresh validates the published aggregates and tells servers to reload.
	TaskDatasetRefresh = "dataset:refresh"

	// refreshUniqueFor collapses refresh requests enqueued close together into one task.
	refreshUniqueFor = 5 * time.Minute
)

// DatasetRefreshPayload describes why a refresh was requested.
type DatasetRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewDatasetRefreshTask constructs an Asynq task.
func NewDatasetRefreshTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "manual"
	}
	data, err := json.Marshal(DatasetRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDatasetRefresh, data), nil
}
