package tasks

import (
	"context"

	"github.com/edgard/roastme/internal/config"
)

// ScheduledTaskFunc is the signature of every scheduled task.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the task functions keyed by the names used in the
// scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	if deps.Store != nil {
		tasks[config.TaskSQLMaintenance] = newSQLMaintenanceTask(deps)
	}
	if deps.Corpus != nil {
		tasks[config.TaskCorpusRefresh] = newCorpusRefreshTask(deps)
	}

	deps.log().Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
