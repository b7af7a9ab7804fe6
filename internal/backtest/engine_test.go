package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// fakeScoreSource serves a static universe whose scores never change.
// Scores are stamped one day before any as-of date unless lookAhead
// is set.
type fakeScoreSource struct {
	observations []ScoreObservation
	lookAhead    bool
	calls        int
}

func (f *fakeScoreSource) ScoresAsOf(_ context.Context, asOf time.Time) ([]ScoreObservation, error) {
	f.calls++
	out := make([]ScoreObservation, len(f.observations))
	copy(out, f.observations)
	for i := range out {
		if f.lookAhead {
			out[i].CalculatedAt = asOf.AddDate(0, 0, 1)
		} else {
			out[i].CalculatedAt = asOf.AddDate(0, 0, -1)
		}
	}
	return out, nil
}

// fakeReturnSource pays each ticker a fixed return proportional to a
// configured map; the benchmark gets its own entry. latency slows
// each lookup down for cancellation tests.
type fakeReturnSource struct {
	returns map[string]float64
	latency time.Duration
}

func (f *fakeReturnSource) PeriodReturn(_ context.Context, ticker string, _, _ time.Time) (float64, bool, error) {
	if f.latency > 0 {
		time.Sleep(f.latency)
	}
	r, ok := f.returns[ticker]
	return r, ok, nil
}

// scoreLadder builds n tickers with scores spread over [1, 100] and
// period returns proportional to score, so higher deciles must win.
func scoreLadder(n int) (*fakeScoreSource, *fakeReturnSource) {
	scores := &fakeScoreSource{}
	rets := &fakeReturnSource{returns: map[string]float64{"SPY": 0.005}}

	for i := 0; i < n; i++ {
		ticker := fmt.Sprintf("T%03d", i)
		score := 1 + float64(i)*99/float64(n-1)
		scores.observations = append(scores.observations, ScoreObservation{
			Ticker:    ticker,
			Score:     score,
			RawScore:  score,
			Sector:    "Technology",
			MarketCap: 1e9,
		})
		// Score 100 earns 2% a period, score 1 loses ~1%.
		rets.returns[ticker] = (score - 34) / 3300
	}
	return scores, rets
}

func testConfig() contracts.BacktestConfig {
	return contracts.BacktestConfig{
		StartDate:          d(2020, 1, 1),
		EndDate:            d(2020, 12, 31),
		Frequency:          contracts.RebalanceMonthly,
		TransactionCostBps: 10,
		SlippageBps:        5,
		BenchmarkTicker:    "SPY",
		UseSmoothed:        true,
	}
}

func TestEngineRunScoreLadder(t *testing.T) {
	scores, rets := scoreLadder(100)
	engine := NewEngine(scores, rets, logger.NewNop())

	summary, err := engine.Run(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(summary.Periods) != 12 {
		t.Fatalf("periods = %d, want 12", len(summary.Periods))
	}
	if summary.Periods[0].UniverseSize != 100 {
		t.Errorf("universe = %d, want 100", summary.Periods[0].UniverseSize)
	}

	top := summary.Deciles[0]
	bottom := summary.Deciles[9]
	if top.AnnualizedReturn <= bottom.AnnualizedReturn {
		t.Errorf("decile 1 (%v) should beat decile 10 (%v)",
			top.AnnualizedReturn, bottom.AnnualizedReturn)
	}

	// Returns decrease strictly down the ladder, so the rank
	// correlation is exactly +1 and every period is a hit.
	almost(t, summary.Monotonicity, 1.0, 1e-9, "monotonicity")
	almost(t, summary.HitRate, 1.0, 1e-12, "hit rate")

	if top.AvgScore <= bottom.AvgScore {
		t.Error("decile 1 avg score should exceed decile 10")
	}
	if summary.InformationRatio <= 0 {
		t.Errorf("IR = %v, want positive (top decile beats benchmark)", summary.InformationRatio)
	}

	// Holdings never change, so turnover after the first period is 0
	// and the first period is 1.
	if summary.Periods[0].Turnover[0] != 1.0 {
		t.Errorf("first period turnover = %v, want 1.0", summary.Periods[0].Turnover[0])
	}
	if summary.Periods[1].Turnover[0] != 0.0 {
		t.Errorf("second period turnover = %v, want 0.0", summary.Periods[1].Turnover[0])
	}
}

func TestEngineCostsReduceReturns(t *testing.T) {
	scores, rets := scoreLadder(100)
	engine := NewEngine(scores, rets, logger.NewNop())

	free := testConfig()
	free.TransactionCostBps = 0
	free.SlippageBps = 0

	costly := testConfig()
	costly.TransactionCostBps = 100
	costly.SlippageBps = 50

	freeSummary, err := engine.Run(context.Background(), free, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	costlySummary, err := engine.Run(context.Background(), costly, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Identical gross returns, so costs must show up in net.
	if costlySummary.Deciles[0].TotalReturn >= freeSummary.Deciles[0].TotalReturn {
		t.Error("higher costs should produce lower net returns")
	}

	// Static holdings: costs only hit the initial formation period.
	diffFirst := freeSummary.Periods[0].Returns[0] - costlySummary.Periods[0].Returns[0]
	almost(t, diffFirst, 0.015, 1e-9, "first period cost drag")
	diffSecond := freeSummary.Periods[1].Returns[0] - costlySummary.Periods[1].Returns[0]
	almost(t, diffSecond, 0, 1e-12, "second period cost drag")
}

func TestEngineLookAheadDetected(t *testing.T) {
	scores, rets := scoreLadder(50)
	scores.lookAhead = true
	engine := NewEngine(scores, rets, logger.NewNop())

	_, err := engine.Run(context.Background(), testConfig(), nil)
	if !errors.Is(err, ErrLookAhead) {
		t.Errorf("want ErrLookAhead, got %v", err)
	}
}

func TestEngineContextCancellation(t *testing.T) {
	scores, rets := scoreLadder(50)
	engine := NewEngine(scores, rets, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var once bool
	_, err := engine.Run(ctx, testConfig(), func(done, total int) {
		if !once {
			once = true
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if scores.calls >= 12 {
		t.Errorf("engine ran %d periods after cancellation", scores.calls)
	}
}

func TestEngineFilters(t *testing.T) {
	scores, rets := scoreLadder(50)
	// One giant, one sector outlier.
	scores.observations[0].MarketCap = 1e13
	scores.observations[1].Sector = "Utilities"
	engine := NewEngine(scores, rets, logger.NewNop())

	cfg := testConfig()
	cfg.MarketCapMax = 1e12
	cfg.ExcludeSectors = []string{"Utilities"}

	summary, err := engine.Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Periods[0].UniverseSize != 48 {
		t.Errorf("universe = %d, want 48 after filters", summary.Periods[0].UniverseSize)
	}
}

func TestEngineUniverseRestriction(t *testing.T) {
	scores, rets := scoreLadder(50)
	engine := NewEngine(scores, rets, logger.NewNop())

	cfg := testConfig()
	cfg.Universe = []string{"T000", "T010", "T020", "T030", "T040"}

	summary, err := engine.Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Periods[0].UniverseSize != 5 {
		t.Errorf("universe = %d, want 5", summary.Periods[0].UniverseSize)
	}
}

func TestEngineRawVsSmoothedRanking(t *testing.T) {
	// Raw and smoothed scores rank two tickers oppositely.
	scores := &fakeScoreSource{observations: []ScoreObservation{
		{Ticker: "RAWHI", Score: 40, RawScore: 90, Sector: "Technology", MarketCap: 1e9},
		{Ticker: "SMHI", Score: 90, RawScore: 40, Sector: "Technology", MarketCap: 1e9},
	}}
	rets := &fakeReturnSource{returns: map[string]float64{"RAWHI": 0.02, "SMHI": 0.01, "SPY": 0.005}}
	engine := NewEngine(scores, rets, logger.NewNop())

	cfg := testConfig()
	cfg.UseSmoothed = false

	summary, err := engine.Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if math.Abs(summary.Periods[0].AvgScores[0]-90) > 1e-9 {
		t.Errorf("raw ranking: decile 1 avg score = %v, want 90", summary.Periods[0].AvgScores[0])
	}
}

func TestEngineEmptyUniverseFailsRun(t *testing.T) {
	scores, rets := scoreLadder(20)
	engine := NewEngine(scores, rets, logger.NewNop())

	cfg := testConfig()
	cfg.Universe = []string{"NOSUCH"}

	summary, err := engine.Run(context.Background(), cfg, nil)
	if !errors.Is(err, ErrEmptyUniverse) {
		t.Fatalf("want ErrEmptyUniverse, got %v", err)
	}
	if summary != nil {
		t.Error("failed run should not produce a summary")
	}
}

// timelineScoreSource replays a score history: ScoresAsOf returns the
// latest observation per ticker calculated on or before the as-of
// date, the way the real repository does.
type timelineScoreSource struct {
	observations []ScoreObservation
}

func (s *timelineScoreSource) ScoresAsOf(_ context.Context, asOf time.Time) ([]ScoreObservation, error) {
	latest := make(map[string]ScoreObservation)
	for _, obs := range s.observations {
		if obs.CalculatedAt.After(asOf) {
			continue
		}
		if cur, ok := latest[obs.Ticker]; !ok || obs.CalculatedAt.After(cur.CalculatedAt) {
			latest[obs.Ticker] = obs
		}
	}
	out := make([]ScoreObservation, 0, len(latest))
	for _, obs := range latest {
		out = append(out, obs)
	}
	return out, nil
}

func TestEngineIgnoresScoresPublishedAfterRebalance(t *testing.T) {
	rets := &fakeReturnSource{returns: map[string]float64{"SPY": 0.005}}
	history := make([]ScoreObservation, 0, 20)
	for i := 0; i < 20; i++ {
		ticker := fmt.Sprintf("T%03d", i)
		history = append(history, ScoreObservation{
			Ticker:       ticker,
			Score:        float64(5 + i*5),
			RawScore:     float64(5 + i*5),
			Sector:       "Technology",
			MarketCap:    1e9,
			CalculatedAt: d(2019, 12, 15),
		})
		rets.returns[ticker] = float64(i) / 1000
	}

	cfg := testConfig()
	cfg.EndDate = d(2020, 3, 31)

	clean, err := NewEngine(&timelineScoreSource{observations: history}, rets, logger.NewNop()).
		Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Same history plus a full score reversal published after the
	// first rebalance date but before the second.
	revised := append([]ScoreObservation(nil), history...)
	for _, obs := range history {
		obs.Score = 100 - obs.Score
		obs.RawScore = obs.Score
		obs.CalculatedAt = d(2020, 1, 10)
		revised = append(revised, obs)
	}
	dirty, err := NewEngine(&timelineScoreSource{observations: revised}, rets, logger.NewNop()).
		Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The first period forms before the revision exists, so its
	// outcome must be byte-for-byte identical.
	if !reflect.DeepEqual(clean.Periods[0], dirty.Periods[0]) {
		t.Errorf("first period changed by data published after its rebalance date:\nclean %+v\ndirty %+v",
			clean.Periods[0], dirty.Periods[0])
	}
	// Sanity: the revision is visible at the next rebalance, so the
	// invariance above is not vacuous.
	if reflect.DeepEqual(clean.Periods[1].AvgScores, dirty.Periods[1].AvgScores) {
		t.Error("revision never became visible, test exercises nothing")
	}
}

func TestEngineInvalidConfig(t *testing.T) {
	scores, rets := scoreLadder(20)
	engine := NewEngine(scores, rets, logger.NewNop())

	bad := testConfig()
	bad.EndDate = bad.StartDate
	if _, err := engine.Run(context.Background(), bad, nil); err == nil {
		t.Error("equal start/end should fail validation")
	}

	bad = testConfig()
	bad.Frequency = "hourly"
	if _, err := engine.Run(context.Background(), bad, nil); err == nil {
		t.Error("unknown frequency should fail validation")
	}
}
