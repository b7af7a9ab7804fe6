package backtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// ErrJobNotFound means no job exists with the requested ID.
var ErrJobNotFound = errors.New("backtest job not found")

// JobStore persists job rows and completed summaries so jobs survive
// a restart.
type JobStore interface {
	CreateJob(ctx context.Context, job *contracts.BacktestJob) error
	UpdateJob(ctx context.Context, job *contracts.BacktestJob) error
	GetJob(ctx context.Context, id string) (*contracts.BacktestJob, error)
	SaveSummary(ctx context.Context, summary *contracts.BacktestSummary) error
	GetSummary(ctx context.Context, jobID string) (*contracts.BacktestSummary, error)
}

// Runner owns the backtest job lifecycle:
// pending -> running -> completed | failed. One goroutine per job;
// subscribers get a snapshot after every state or progress change.
type Runner struct {
	engine *Engine
	store  JobStore
	log    *logger.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	subs    map[string][]chan contracts.BacktestJob
}

// NewRunner builds a Runner.
func NewRunner(engine *Engine, store JobStore, log *logger.Logger) *Runner {
	return &Runner{
		engine:  engine,
		store:   store,
		log:     log,
		cancels: make(map[string]context.CancelFunc),
		subs:    make(map[string][]chan contracts.BacktestJob),
	}
}

// Submit registers a new job and starts it in the background. The
// returned job is the pending snapshot; poll or subscribe for updates.
func (r *Runner) Submit(ctx context.Context, cfg contracts.BacktestConfig) (*contracts.BacktestJob, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	job := &contracts.BacktestJob{
		ID:           uuid.New().String(),
		Status:       contracts.JobPending,
		Config:       cfg,
		PeriodsTotal: len(GeneratePeriods(cfg.StartDate, cfg.EndDate, cfg.Frequency)),
		SubmittedAt:  time.Now().UTC(),
	}
	if err := r.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancels[job.ID] = cancel
	r.mu.Unlock()

	go r.run(runCtx, *job)

	return job, nil
}

// Cancel stops a running job. Completed jobs are unaffected.
func (r *Runner) Cancel(jobID string) {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Job returns the current snapshot of a job.
func (r *Runner) Job(ctx context.Context, id string) (*contracts.BacktestJob, error) {
	return r.store.GetJob(ctx, id)
}

// Summary returns the completed result of a job.
func (r *Runner) Summary(ctx context.Context, jobID string) (*contracts.BacktestSummary, error) {
	return r.store.GetSummary(ctx, jobID)
}

// Subscribe returns a channel of job snapshots plus an unsubscribe
// function. Slow consumers miss intermediate snapshots rather than
// blocking the run.
func (r *Runner) Subscribe(jobID string) (<-chan contracts.BacktestJob, func()) {
	ch := make(chan contracts.BacktestJob, 16)

	r.mu.Lock()
	r.subs[jobID] = append(r.subs[jobID], ch)
	r.mu.Unlock()

	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		channels := r.subs[jobID]
		for i, c := range channels {
			if c == ch {
				r.subs[jobID] = append(channels[:i], channels[i+1:]...)
				close(c)
				break
			}
		}
	}
	return ch, unsubscribe
}

func (r *Runner) run(ctx context.Context, job contracts.BacktestJob) {
	defer func() {
		r.mu.Lock()
		delete(r.cancels, job.ID)
		r.mu.Unlock()
	}()

	now := time.Now().UTC()
	job.Status = contracts.JobRunning
	job.StartedAt = &now
	r.persist(&job)

	summary, err := r.engine.Run(ctx, job.Config, func(done, total int) {
		job.PeriodsDone = done
		job.PeriodsTotal = total
		r.persist(&job)
	})

	finished := time.Now().UTC()
	job.CompletedAt = &finished

	if err != nil {
		job.Status = contracts.JobFailed
		job.Error = err.Error()
		r.log.WithError(err).WithField("job_id", job.ID).Error("backtest job failed")
		r.persist(&job)
		return
	}

	summary.JobID = job.ID
	if err := r.store.SaveSummary(context.Background(), summary); err != nil {
		job.Status = contracts.JobFailed
		job.Error = err.Error()
		r.log.WithError(err).WithField("job_id", job.ID).Error("persisting backtest summary failed")
		r.persist(&job)
		return
	}

	job.Status = contracts.JobCompleted
	r.persist(&job)
}

// persist writes the job row and fans the snapshot out to
// subscribers.
func (r *Runner) persist(job *contracts.BacktestJob) {
	if err := r.store.UpdateJob(context.Background(), job); err != nil {
		r.log.WithError(err).WithField("job_id", job.ID).Error("updating backtest job failed")
	}

	// Sends stay under the lock so an unsubscribe cannot close a
	// channel mid-send. They never block: buffered channels, default
	// drop.
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs[job.ID] {
		select {
		case ch <- *job:
		default:
		}
	}
}
