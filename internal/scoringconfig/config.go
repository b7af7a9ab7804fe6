package scoringconfig

import "github.com/investorcenter/ic-engine/internal/contracts"

// Config is the full tunable parameter set of the scoring engine.
// Loaded once at startup and injected; nothing in the engine reads
// weight tables from anywhere else.
type Config struct {
	Meta         Meta             `yaml:"meta" json:"meta"`
	Weights      WeightTables     `yaml:"weights" json:"weights"`
	Lifecycle    LifecycleParams  `yaml:"lifecycle" json:"lifecycle"`
	Smoothing    SmoothingParams  `yaml:"smoothing" json:"smoothing"`
	Completeness CompletenessGate `yaml:"completeness" json:"completeness"`
	Sector       SectorParams     `yaml:"sector" json:"sector"`
	Explain      ExplainParams    `yaml:"explain" json:"explain"`
	Backtest     BacktestDefaults `yaml:"backtest" json:"backtest"`
}

// Meta identifies the parameter set for audit trails.
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// WeightTables holds the base factor weights and per-stage multipliers.
// Every stage lists all 13 multipliers explicitly so a missing entry is
// a validation error, not a silent zero.
type WeightTables struct {
	Base             contracts.Weights `yaml:"base" json:"base"`
	StageMultipliers StageMultipliers  `yaml:"stage_multipliers" json:"stage_multipliers"`
}

// StageMultipliers maps each lifecycle stage to its multiplier vector.
type StageMultipliers struct {
	Hypergrowth contracts.Weights `yaml:"hypergrowth" json:"hypergrowth"`
	Growth      contracts.Weights `yaml:"growth" json:"growth"`
	Turnaround  contracts.Weights `yaml:"turnaround" json:"turnaround"`
	Value       contracts.Weights `yaml:"value" json:"value"`
	Mature      contracts.Weights `yaml:"mature" json:"mature"`
}

// For returns the multiplier vector for a stage. Unknown stages fall
// back to mature, the most balanced profile.
func (sm StageMultipliers) For(stage contracts.Stage) contracts.Weights {
	switch stage {
	case contracts.StageHypergrowth:
		return sm.Hypergrowth
	case contracts.StageGrowth:
		return sm.Growth
	case contracts.StageTurnaround:
		return sm.Turnaround
	case contracts.StageValue:
		return sm.Value
	default:
		return sm.Mature
	}
}

// StageWeights returns the normalized weight vector for a stage:
// base weights scaled by the stage multipliers, renormalized to 1.0.
func (wt WeightTables) StageWeights(stage contracts.Stage) contracts.Weights {
	return wt.Base.Multiplied(wt.StageMultipliers.For(stage)).Normalized()
}

// LifecycleParams are the stage classification thresholds.
// Growth and margin thresholds are fractions (0.50 = 50%).
type LifecycleParams struct {
	HypergrowthRevenueGrowth float64 `yaml:"hypergrowth_revenue_growth" json:"hypergrowth_revenue_growth"`
	GrowthRevenueGrowth      float64 `yaml:"growth_revenue_growth" json:"growth_revenue_growth"`
	ValuePEMax               float64 `yaml:"value_pe_max" json:"value_pe_max"`
	ValueMarginMin           float64 `yaml:"value_margin_min" json:"value_margin_min"`
}

// SmoothingParams tune the exponential blend of raw into published
// scores.
type SmoothingParams struct {
	// Alpha is the weight on the new raw score: published =
	// alpha*raw + (1-alpha)*previous.
	Alpha float64 `yaml:"alpha" json:"alpha"`

	// MinChange: smoothed moves smaller than this keep the previous
	// published score, suppressing sub-point jitter.
	MinChange float64 `yaml:"min_change" json:"min_change"`

	// LookbackDays: a previous score older than this is ignored and
	// the raw score is published directly.
	LookbackDays int `yaml:"lookback_days" json:"lookback_days"`
}

// CompletenessGate decides when a ticker has too little data to score.
type CompletenessGate struct {
	MinRatio       float64 `yaml:"min_ratio" json:"min_ratio"`
	MinCoreFactors int     `yaml:"min_core_factors" json:"min_core_factors"`
}

// SectorParams tune the cross-sectional percentile stage.
type SectorParams struct {
	MinSampleSize int `yaml:"min_sample_size" json:"min_sample_size"`

	// Metrics names the fundamental ratios whose distributions the
	// refresh rebuilds per sector.
	Metrics []string `yaml:"metrics" json:"metrics"`

	// LowerIsBetter lists metrics where a smaller value ranks higher;
	// their reported percentile is 100 minus the raw percentile.
	LowerIsBetter []string `yaml:"lower_is_better" json:"lower_is_better"`
}

// LowerIsBetterSet returns the inversion list as a lookup set.
func (s SectorParams) LowerIsBetterSet() map[string]bool {
	set := make(map[string]bool, len(s.LowerIsBetter))
	for _, m := range s.LowerIsBetter {
		set[m] = true
	}
	return set
}

// ExplainParams tune the score change explainer.
type ExplainParams struct {
	SignificantDelta float64 `yaml:"significant_delta" json:"significant_delta"`
	TopDrivers       int     `yaml:"top_drivers" json:"top_drivers"`
}

// BacktestDefaults fill in request fields the caller omits.
type BacktestDefaults struct {
	TransactionCostBps float64 `yaml:"transaction_cost_bps" json:"transaction_cost_bps"`
	SlippageBps        float64 `yaml:"slippage_bps" json:"slippage_bps"`
	Benchmark          string  `yaml:"benchmark" json:"benchmark"`
}
