package scheduler

import (
	"context"
	"testing"

	"github.com/investorcenter/ic-engine/pkg/logger"
)

type noopJob struct {
	name string
}

func (j *noopJob) Name() string              { return j.name }
func (j *noopJob) Run(context.Context) error { return nil }
func (j *noopJob) Schedule() string          { return "0 0 12 * * *" }

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	if err := s.AddJob(&noopJob{name: "daily_scoring"}); err != nil {
		t.Fatalf("AddJob() error = %v", err)
	}
	if err := s.AddJob(&noopJob{name: "daily_scoring"}); err == nil {
		t.Error("AddJob() should reject a duplicate name")
	}

	if got := len(s.Jobs()); got != 1 {
		t.Errorf("Jobs() = %d jobs, want 1", got)
	}
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop())

	bad := &badScheduleJob{}
	if err := s.AddJob(bad); err == nil {
		t.Error("AddJob() should reject an invalid cron expression")
	}
}

type badScheduleJob struct{}

func (j *badScheduleJob) Name() string              { return "bad" }
func (j *badScheduleJob) Run(context.Context) error { return nil }
func (j *badScheduleJob) Schedule() string          { return "not a schedule" }

func TestJobHistoryTrimsToLast100(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "j", Success: i%2 == 0})
	}
	if len(h.Results) != 100 {
		t.Fatalf("history kept %d results, want 100", len(h.Results))
	}
	if got := len(h.LatestResults(10)); got != 10 {
		t.Errorf("LatestResults(10) = %d, want 10", got)
	}
	if rate := h.SuccessRate(); rate != 0.5 {
		t.Errorf("SuccessRate() = %v, want 0.5", rate)
	}
}
