package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investorcenter/ic-engine/internal/backtest"
	"github.com/investorcenter/ic-engine/internal/contracts"
)

// BacktestRepository persists backtest jobs and their summaries so a
// submitted job survives a process restart. Implements
// backtest.JobStore.
type BacktestRepository struct {
	pool *pgxpool.Pool
}

// NewBacktestRepository creates a new backtest repository.
func NewBacktestRepository(pool *pgxpool.Pool) *BacktestRepository {
	return &BacktestRepository{pool: pool}
}

// CreateJob inserts a freshly submitted job.
func (r *BacktestRepository) CreateJob(ctx context.Context, job *contracts.BacktestJob) error {
	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}

	query := `
		INSERT INTO backtest_jobs (
			id, status, config, periods_total, periods_done, error,
			submitted_at, started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		job.ID, string(job.Status), cfg, job.PeriodsTotal, job.PeriodsDone,
		job.Error, job.SubmittedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert backtest job: %w", err)
	}
	return nil
}

// UpdateJob writes a job's current lifecycle state and progress.
func (r *BacktestRepository) UpdateJob(ctx context.Context, job *contracts.BacktestJob) error {
	query := `
		UPDATE backtest_jobs
		SET status = $2, periods_total = $3, periods_done = $4, error = $5,
		    started_at = $6, completed_at = $7
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.PeriodsTotal, job.PeriodsDone,
		job.Error, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update backtest job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return backtest.ErrJobNotFound
	}
	return nil
}

// GetJob returns a job by ID.
func (r *BacktestRepository) GetJob(ctx context.Context, id string) (*contracts.BacktestJob, error) {
	query := `
		SELECT id, status, config, periods_total, periods_done,
		       COALESCE(error, ''), submitted_at, started_at, completed_at
		FROM backtest_jobs
		WHERE id = $1
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query backtest job: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, backtest.ErrJobNotFound
	}

	var (
		job     contracts.BacktestJob
		status  string
		cfgJSON []byte
	)
	if err := rows.Scan(&job.ID, &status, &cfgJSON, &job.PeriodsTotal,
		&job.PeriodsDone, &job.Error, &job.SubmittedAt, &job.StartedAt, &job.CompletedAt); err != nil {
		return nil, fmt.Errorf("scan backtest job: %w", err)
	}
	job.Status = contracts.JobStatus(status)
	if err := json.Unmarshal(cfgJSON, &job.Config); err != nil {
		return nil, fmt.Errorf("unmarshal job config: %w", err)
	}
	return &job, nil
}

// FailStaleJobs marks jobs stuck in pending or running longer than
// maxAge as failed. A crashed process leaves its jobs behind; nothing
// will ever finish them, so the sweep closes them out.
func (r *BacktestRepository) FailStaleJobs(ctx context.Context, maxAge time.Duration) (int, error) {
	query := `
		UPDATE backtest_jobs
		SET status = $1, error = 'abandoned: process restarted mid-run', completed_at = NOW()
		WHERE status IN ($2, $3) AND submitted_at < $4
	`
	tag, err := r.pool.Exec(ctx, query,
		string(contracts.JobFailed), string(contracts.JobPending), string(contracts.JobRunning),
		time.Now().Add(-maxAge),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SaveSummary persists a completed backtest's full result.
func (r *BacktestRepository) SaveSummary(ctx context.Context, summary *contracts.BacktestSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	query := `
		INSERT INTO backtest_summaries (job_id, summary, generated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			generated_at = EXCLUDED.generated_at
	`
	if _, err := r.pool.Exec(ctx, query, summary.JobID, body, summary.GeneratedAt); err != nil {
		return fmt.Errorf("upsert backtest summary: %w", err)
	}
	return nil
}

// GetSummary returns a completed job's result.
func (r *BacktestRepository) GetSummary(ctx context.Context, jobID string) (*contracts.BacktestSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT summary FROM backtest_summaries WHERE job_id = $1`, jobID)
	if err != nil {
		return nil, fmt.Errorf("query backtest summary: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, backtest.ErrJobNotFound
	}

	var body []byte
	if err := rows.Scan(&body); err != nil {
		return nil, fmt.Errorf("scan backtest summary: %w", err)
	}
	var summary contracts.BacktestSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &summary, nil
}
