package contracts

import "time"

// RebalanceFrequency controls how often the backtest re-forms deciles.
type RebalanceFrequency string

const (
	RebalanceDaily     RebalanceFrequency = "daily"
	RebalanceWeekly    RebalanceFrequency = "weekly"
	RebalanceMonthly   RebalanceFrequency = "monthly"
	RebalanceQuarterly RebalanceFrequency = "quarterly"
)

// PeriodsPerYear returns the annualization factor for a frequency.
func (f RebalanceFrequency) PeriodsPerYear() float64 {
	switch f {
	case RebalanceDaily:
		return 252
	case RebalanceWeekly:
		return 52
	case RebalanceQuarterly:
		return 4
	default:
		return 12
	}
}

// ValidFrequency reports whether f is a supported rebalance frequency.
func ValidFrequency(f RebalanceFrequency) bool {
	switch f {
	case RebalanceDaily, RebalanceWeekly, RebalanceMonthly, RebalanceQuarterly:
		return true
	}
	return false
}

// NumDeciles is the fixed number of score-ranked buckets a backtest
// partitions the universe into.
const NumDeciles = 10

// BacktestConfig is the immutable request a backtest job runs against.
type BacktestConfig struct {
	StartDate          time.Time          `json:"start_date"`
	EndDate            time.Time          `json:"end_date"`
	Frequency          RebalanceFrequency `json:"frequency"`
	TransactionCostBps float64            `json:"transaction_cost_bps"`
	SlippageBps        float64            `json:"slippage_bps"`
	BenchmarkTicker    string             `json:"benchmark_ticker"`

	// UseSmoothed ranks on the published smoothed score instead of
	// the raw composite.
	UseSmoothed bool `json:"use_smoothed"`

	// Universe restricts the backtest to these tickers. Empty means
	// every ticker with a point-in-time score.
	Universe []string `json:"universe,omitempty"`

	// MarketCapMin/Max bound the eligible universe; zero means
	// unbounded on that side. ExcludeSectors drops whole sectors.
	MarketCapMin   float64  `json:"market_cap_min,omitempty"`
	MarketCapMax   float64  `json:"market_cap_max,omitempty"`
	ExcludeSectors []string `json:"exclude_sectors,omitempty"`
}

// CostPerUnitTurnover is the combined round-trip cost, as a fraction,
// applied per unit of portfolio turnover.
func (c BacktestConfig) CostPerUnitTurnover() float64 {
	return (c.TransactionCostBps + c.SlippageBps) / 10000.0
}

// JobStatus is the lifecycle state of a backtest job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// BacktestJob tracks one submitted backtest through its lifecycle.
type BacktestJob struct {
	ID           string         `json:"id"`
	Status       JobStatus      `json:"status"`
	Config       BacktestConfig `json:"config"`
	PeriodsTotal int            `json:"periods_total"`
	PeriodsDone  int            `json:"periods_done"`
	Error        string         `json:"error,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// PeriodResult is one rebalance period's outcome: the net return and
// turnover of each decile over the holding window.
type PeriodResult struct {
	Start        time.Time           `json:"start"`
	End          time.Time           `json:"end"`
	UniverseSize int                 `json:"universe_size"`
	Returns      [NumDeciles]float64 `json:"returns"`  // net of costs
	Turnover     [NumDeciles]float64 `json:"turnover"` // 0..1
	AvgScores    [NumDeciles]float64 `json:"avg_scores"`
	Benchmark    float64             `json:"benchmark_return"`
}

// DecilePerformance aggregates one decile across the whole backtest.
type DecilePerformance struct {
	Decile           int       `json:"decile"` // 1 = highest scores
	TotalReturn      float64   `json:"total_return"`
	AnnualizedReturn float64   `json:"annualized_return"`
	Volatility       float64   `json:"volatility"` // annualized
	Sharpe           float64   `json:"sharpe"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	AvgTurnover      float64   `json:"avg_turnover"`
	AvgScore         float64   `json:"avg_score"`
	PeriodCount      int       `json:"period_count"`
	PeriodReturns    []float64 `json:"period_returns"`
}

// BacktestSummary is the completed result of a backtest job.
type BacktestSummary struct {
	JobID   string         `json:"job_id"`
	Config  BacktestConfig `json:"config"`
	Periods []PeriodResult `json:"periods"`

	Deciles [NumDeciles]DecilePerformance `json:"deciles"`

	// Monotonicity is the Spearman rank correlation between decile
	// rank and annualized return, in [-1, 1]. +1 means decile 1
	// strictly beat decile 2, and so on down the ladder.
	Monotonicity float64 `json:"monotonicity"`

	// HitRate is the fraction of periods where decile 1 outperformed
	// decile 10.
	HitRate float64 `json:"hit_rate"`

	// Spread metrics compare decile 1 against the benchmark.
	BenchmarkAnnualized float64 `json:"benchmark_annualized"`
	InformationRatio    float64 `json:"information_ratio"`

	GeneratedAt time.Time `json:"generated_at"`
}
