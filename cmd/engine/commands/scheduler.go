package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/investorcenter/ic-engine/internal/scheduler"
	"github.com/investorcenter/ic-engine/internal/scheduler/jobs"
)

// schedulerCmd manages the cron daemon.
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the job scheduler",
	Long: `Start the scheduler daemon or run a job once.

Registered jobs:
  daily_scoring - Sector percentile refresh + full scoring run,
                  weekdays at 5:30 PM
  maintenance   - Abandoned backtest job sweep, hourly

Example:
  go run ./cmd/engine scheduler start
  go run ./cmd/engine scheduler run daily_scoring`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduler daemon",
	RunE:  runSchedulerDaemon,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run [job_name]",
	Short: "Run a registered job immediately",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulerJob,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)

	if err := s.AddJob(jobs.NewDailyScoringJob(a.refresher, a.pipeline, a.log)); err != nil {
		return nil, err
	}
	if err := s.AddJob(jobs.NewMaintenanceJob(a.backtests, a.log)); err != nil {
		return nil, err
	}
	return s, nil
}

func runSchedulerDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	s.Start()
	fmt.Println("Scheduler running (Ctrl+C to stop)")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	s.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	jobName := args[0]

	// Run the job body directly rather than through the cron loop so
	// the command exits when the job does.
	switch jobName {
	case "daily_scoring":
		return jobs.NewDailyScoringJob(a.refresher, a.pipeline, a.log).Run(cmd.Context())
	case "maintenance":
		return jobs.NewMaintenanceJob(a.backtests, a.log).Run(cmd.Context())
	default:
		return fmt.Errorf("unknown job %q (valid: daily_scoring, maintenance)", jobName)
	}
}
