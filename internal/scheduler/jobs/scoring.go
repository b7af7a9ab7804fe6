// Package jobs holds the engine's scheduled job implementations.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/investorcenter/ic-engine/internal/pipeline"
	"github.com/investorcenter/ic-engine/internal/sector"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// DailyScoringJob refreshes sector distributions and then scores the
// full universe.
// SSOT: the daily scoring schedule lives in this job only.
type DailyScoringJob struct {
	refresher *sector.Refresher
	pipeline  *pipeline.Pipeline
	logger    *logger.Logger
}

// NewDailyScoringJob creates the daily scoring job.
func NewDailyScoringJob(refresher *sector.Refresher, p *pipeline.Pipeline, log *logger.Logger) *DailyScoringJob {
	return &DailyScoringJob{
		refresher: refresher,
		pipeline:  p,
		logger:    log,
	}
}

// Name returns the job name.
func (j *DailyScoringJob) Name() string {
	return "daily_scoring"
}

// Schedule runs after the US close, weekdays at 5:30 PM ET.
func (j *DailyScoringJob) Schedule() string {
	return "0 30 17 * * 1-5"
}

// Run executes the two scoring phases in order. The percentile
// refresh must land first: the scoring pass reads the distributions
// it writes.
func (j *DailyScoringJob) Run(ctx context.Context) error {
	asOf := time.Now()

	// 1. Rebuild sector percentile distributions
	j.logger.Info("Refreshing sector percentiles")
	if _, err := j.refresher.Refresh(ctx, asOf); err != nil {
		return fmt.Errorf("refresh sector percentiles: %w", err)
	}

	// 2. Score the universe
	j.logger.Info("Computing daily scores")
	stats, err := j.pipeline.ComputeDailyScores(ctx, asOf)
	if err != nil {
		return fmt.Errorf("compute daily scores: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"universe": stats.Universe,
		"scored":   stats.Scored,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
		"elapsed":  stats.Elapsed,
	}).Info("Daily scoring completed")

	return nil
}
