package repos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/investorcenter/ic-engine/internal/backtest"
	"github.com/investorcenter/ic-engine/internal/contracts"
)

// Integration tests. Run against a migrated database:
//
//	TEST_DATABASE_URL=postgres://... go test ./internal/data/repos/
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestScoreRepositoryRoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewScoreRepository(pool)
	ctx := context.Background()

	ticker := "ZZT" + uuid.NewString()[:5]
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	score := &contracts.ICScore{
		Ticker:           ticker,
		Date:             date,
		OverallScore:     72.5,
		RawScore:         74.1,
		Rating:           contracts.RatingBuy,
		Lifecycle:        contracts.StageGrowth,
		Sector:           "Technology",
		DataCompleteness: 0.85,
		Confidence:       contracts.ConfidenceHigh,
		Metadata:         map[string]any{"config_hash": "abc123"},
		CalculatedAt:     time.Now().UTC(),
	}
	score.Factors.Set(contracts.FactorValue, contracts.Float(68))
	score.Factors.Set(contracts.FactorGrowth, contracts.Float(81))

	require.NoError(t, repo.SaveScores(ctx, []*contracts.ICScore{score}))

	got, err := repo.GetScore(ctx, ticker, date)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 72.5, got.OverallScore)
	require.Equal(t, contracts.RatingBuy, got.Rating)
	require.Equal(t, contracts.StageGrowth, got.Lifecycle)
	require.NotNil(t, got.Factors.Growth)
	require.Equal(t, 81.0, *got.Factors.Growth)
	require.Equal(t, "abc123", got.Metadata["config_hash"])

	// LatestScore is strictly before the cutoff.
	prev, err := repo.LatestScore(ctx, ticker, date)
	require.NoError(t, err)
	require.Nil(t, prev)

	prev, err = repo.LatestScore(ctx, ticker, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.Equal(t, date, prev.Date.UTC())
}

func TestScoresAsOfIsPointInTime(t *testing.T) {
	pool := testPool(t)
	repo := NewScoreRepository(pool)
	ctx := context.Background()

	ticker := "ZZP" + uuid.NewString()[:5]
	early := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	mk := func(date time.Time, score float64) *contracts.ICScore {
		s := &contracts.ICScore{
			Ticker: ticker, Date: date,
			OverallScore: score, RawScore: score,
			Rating: contracts.RatingHold, Lifecycle: contracts.StageMature,
			Confidence: contracts.ConfidenceMedium, CalculatedAt: date,
		}
		s.Factors.Set(contracts.FactorValue, contracts.Float(score))
		return s
	}
	require.NoError(t, repo.SaveScores(ctx, []*contracts.ICScore{mk(early, 50), mk(late, 90)}))

	rows, err := repo.ScoresAsOf(ctx, early.AddDate(0, 0, 3))
	require.NoError(t, err)

	var found *PointInTimeRow
	for i := range rows {
		if rows[i].Ticker == ticker {
			found = &rows[i]
		}
	}
	require.NotNil(t, found)
	require.Equal(t, 50.0, found.Score, "must not see the later score")
}

func TestBacktestRepositoryJobLifecycle(t *testing.T) {
	pool := testPool(t)
	repo := NewBacktestRepository(pool)
	ctx := context.Background()

	job := &contracts.BacktestJob{
		ID:     uuid.NewString(),
		Status: contracts.JobPending,
		Config: contracts.BacktestConfig{
			StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Frequency:       contracts.RebalanceMonthly,
			BenchmarkTicker: "SPY",
		},
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateJob(ctx, job))

	started := time.Now().UTC()
	job.Status = contracts.JobRunning
	job.StartedAt = &started
	job.PeriodsTotal = 12
	job.PeriodsDone = 3
	require.NoError(t, repo.UpdateJob(ctx, job))

	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, contracts.JobRunning, got.Status)
	require.Equal(t, 3, got.PeriodsDone)
	require.Equal(t, contracts.RebalanceMonthly, got.Config.Frequency)
	require.NotNil(t, got.StartedAt)

	_, err = repo.GetJob(ctx, uuid.NewString())
	require.ErrorIs(t, err, backtest.ErrJobNotFound)

	_, err = repo.GetSummary(ctx, job.ID)
	require.ErrorIs(t, err, backtest.ErrJobNotFound)

	summary := &contracts.BacktestSummary{
		JobID:        job.ID,
		Config:       job.Config,
		Monotonicity: 0.72,
		HitRate:      0.64,
		GeneratedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.SaveSummary(ctx, summary))

	gotSummary, err := repo.GetSummary(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, 0.72, gotSummary.Monotonicity)
}

func TestEventRepository(t *testing.T) {
	pool := testPool(t)
	repo := NewEventRepository(pool)
	ctx := context.Background()

	ticker := "ZZE" + uuid.NewString()[:5]
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, typ := range []contracts.EventType{
		contracts.EventEarningsRelease,
		contracts.EventAnalystRatingChange,
	} {
		require.NoError(t, repo.SaveEvent(ctx, contracts.ScoreEvent{
			Ticker:     ticker,
			Type:       typ,
			OccurredAt: base.AddDate(0, 0, i),
			Detail:     "test event",
		}))
	}

	events, err := repo.EventsSince(ctx, ticker, base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, contracts.EventAnalystRatingChange, events[0].Type)
}
