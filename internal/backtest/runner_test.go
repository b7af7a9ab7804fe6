package backtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// memoryJobStore is a JobStore for tests.
type memoryJobStore struct {
	mu        sync.Mutex
	jobs      map[string]contracts.BacktestJob
	summaries map[string]contracts.BacktestSummary
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{
		jobs:      make(map[string]contracts.BacktestJob),
		summaries: make(map[string]contracts.BacktestSummary),
	}
}

func (s *memoryJobStore) CreateJob(_ context.Context, job *contracts.BacktestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memoryJobStore) UpdateJob(_ context.Context, job *contracts.BacktestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memoryJobStore) GetJob(_ context.Context, id string) (*contracts.BacktestJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

func (s *memoryJobStore) SaveSummary(_ context.Context, summary *contracts.BacktestSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.JobID] = *summary
	return nil
}

func (s *memoryJobStore) GetSummary(_ context.Context, jobID string) (*contracts.BacktestSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.summaries[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &summary, nil
}

func waitForStatus(t *testing.T, runner *Runner, jobID string, want contracts.JobStatus) *contracts.BacktestJob {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			job, _ := runner.Job(context.Background(), jobID)
			t.Fatalf("timed out waiting for %s, job: %+v", want, job)
			return nil
		case <-time.After(10 * time.Millisecond):
			job, err := runner.Job(context.Background(), jobID)
			if err != nil {
				t.Fatalf("Job failed: %v", err)
			}
			if job.Status == want {
				return job
			}
			if job.Status == contracts.JobFailed && want != contracts.JobFailed {
				t.Fatalf("job failed: %s", job.Error)
			}
		}
	}
}

func TestRunnerCompletesJob(t *testing.T) {
	scores, rets := scoreLadder(100)
	store := newMemoryJobStore()
	runner := NewRunner(NewEngine(scores, rets, logger.NewNop()), store, logger.NewNop())

	job, err := runner.Submit(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("job should get an ID")
	}
	if job.Status != contracts.JobPending {
		t.Errorf("initial status = %s, want pending", job.Status)
	}
	if job.PeriodsTotal != 12 {
		t.Errorf("periods_total = %d, want 12", job.PeriodsTotal)
	}

	done := waitForStatus(t, runner, job.ID, contracts.JobCompleted)
	if done.PeriodsDone != 12 {
		t.Errorf("periods_done = %d, want 12", done.PeriodsDone)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps should be set on completion")
	}

	summary, err := runner.Summary(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.JobID != job.ID {
		t.Errorf("summary job id = %s, want %s", summary.JobID, job.ID)
	}
	if len(summary.Periods) != 12 {
		t.Errorf("summary periods = %d, want 12", len(summary.Periods))
	}
}

func TestRunnerFailsJobOnLookAhead(t *testing.T) {
	scores, rets := scoreLadder(50)
	scores.lookAhead = true
	store := newMemoryJobStore()
	runner := NewRunner(NewEngine(scores, rets, logger.NewNop()), store, logger.NewNop())

	job, err := runner.Submit(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	failed := waitForStatus(t, runner, job.ID, contracts.JobFailed)
	if failed.Error == "" {
		t.Error("failed job should carry the error message")
	}

	if _, err := runner.Summary(context.Background(), job.ID); err == nil {
		t.Error("failed job should have no summary")
	}
}

func TestRunnerRejectsInvalidConfig(t *testing.T) {
	scores, rets := scoreLadder(20)
	runner := NewRunner(NewEngine(scores, rets, logger.NewNop()), newMemoryJobStore(), logger.NewNop())

	bad := testConfig()
	bad.Frequency = "fortnightly"
	if _, err := runner.Submit(context.Background(), bad); err == nil {
		t.Error("invalid config should be rejected at submit")
	}
}

func TestRunnerSubscribeStreamsProgress(t *testing.T) {
	scores, rets := scoreLadder(100)
	store := newMemoryJobStore()
	runner := NewRunner(NewEngine(scores, rets, logger.NewNop()), store, logger.NewNop())

	job, err := runner.Submit(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	ch, unsubscribe := runner.Subscribe(job.ID)
	defer unsubscribe()

	sawRunning := false
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snapshot := <-ch:
			if snapshot.Status == contracts.JobRunning {
				sawRunning = true
			}
			if snapshot.Status == contracts.JobCompleted {
				if !sawRunning {
					// The subscriber may attach after the first
					// snapshot; the terminal state is what matters.
					t.Log("attached after running snapshot")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for streamed snapshots")
		}
	}
}

func TestRunnerCancel(t *testing.T) {
	scores, rets := scoreLadder(100)
	rets.latency = time.Millisecond
	store := newMemoryJobStore()
	runner := NewRunner(NewEngine(scores, rets, logger.NewNop()), store, logger.NewNop())

	// A long, slowed-down daily backtest so there is time to cancel
	// mid-run.
	cfg := testConfig()
	cfg.Frequency = contracts.RebalanceDaily
	cfg.StartDate = d(2015, 1, 1)
	cfg.EndDate = d(2020, 12, 31)

	job, err := runner.Submit(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	waitForStatus(t, runner, job.ID, contracts.JobRunning)
	runner.Cancel(job.ID)

	failed := waitForStatus(t, runner, job.ID, contracts.JobFailed)
	if failed.Error == "" {
		t.Error("cancelled job should record the cancellation")
	}
}
