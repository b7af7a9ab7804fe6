package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/investorcenter/ic-engine/internal/data/repos"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// staleJobAge is how long a backtest may sit in pending or running
// before the sweep declares its process dead.
const staleJobAge = 6 * time.Hour

// MaintenanceJob sweeps abandoned backtest jobs.
type MaintenanceJob struct {
	backtests *repos.BacktestRepository
	logger    *logger.Logger
}

// NewMaintenanceJob creates the maintenance job.
func NewMaintenanceJob(backtests *repos.BacktestRepository, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		backtests: backtests,
		logger:    log,
	}
}

// Name returns the job name.
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Schedule runs hourly on the hour.
func (j *MaintenanceJob) Schedule() string {
	return "0 0 * * * *"
}

// Run executes the maintenance sweep.
func (j *MaintenanceJob) Run(ctx context.Context) error {
	swept, err := j.backtests.FailStaleJobs(ctx, staleJobAge)
	if err != nil {
		return fmt.Errorf("sweep stale backtest jobs: %w", err)
	}
	if swept > 0 {
		j.logger.WithField("jobs", swept).Warn("Marked abandoned backtest jobs as failed")
	}
	return nil
}
