package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardSnapshot recomputes dashboard card gauges and invalidates cached summaries.
	TaskDashboardSnapshot = "warehouse:dashboard_snapshot"
)

// DashboardSnapshotPayload selects the audiences a snapshot covers. An empty
// list means every audience.
type DashboardSnapshotPayload struct {
	Audiences []string `json:"audiences,omitempty"`
}

// NewDashboardSnapshotTask constructs an Asynq task.
func NewDashboardSnapshotTask(audiences ...string) (*asynq.Task, error) {
	data, err := json.Marshal(DashboardSnapshotPayload{Audiences: audiences})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardSnapshot, data, asynq.Queue(QueueDefault)), nil
}
