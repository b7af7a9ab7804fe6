package scoringconfig

import (
	"fmt"
	"math"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// ValidationError is a hard config violation. The process must not
// start with an invalid parameter set.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every constraint the engine assumes about the
// parameter set.
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.Name == "" {
		return ValidationError{"meta.name", "required"}
	}
	if cfg.Meta.Version == "" {
		return ValidationError{"meta.version", "required"}
	}

	// === Weights ===
	// Base weights must be non-negative and sum to 1.0.
	sum := 0.0
	for _, f := range contracts.AllFactors {
		w := cfg.Weights.Base.Get(f)
		if w < 0 {
			return ValidationError{fmt.Sprintf("weights.base.%s", f), "must be >= 0"}
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return ValidationError{"weights.base", fmt.Sprintf("must sum to 1.0, got %.6f", sum)}
	}

	// Every stage must carry a strictly positive multiplier for every
	// factor. A zero here is almost always a missing YAML key.
	for _, stage := range contracts.AllStages {
		m := cfg.Weights.StageMultipliers.For(stage)
		for _, f := range contracts.AllFactors {
			if m.Get(f) <= 0 {
				return ValidationError{
					fmt.Sprintf("weights.stage_multipliers.%s.%s", stage, f),
					"must be > 0 (list every factor explicitly)",
				}
			}
		}
	}

	// === Lifecycle ===
	if cfg.Lifecycle.HypergrowthRevenueGrowth <= cfg.Lifecycle.GrowthRevenueGrowth {
		return ValidationError{"lifecycle", "hypergrowth_revenue_growth must exceed growth_revenue_growth"}
	}
	if cfg.Lifecycle.GrowthRevenueGrowth <= 0 {
		return ValidationError{"lifecycle.growth_revenue_growth", "must be > 0"}
	}
	if cfg.Lifecycle.ValuePEMax <= 0 {
		return ValidationError{"lifecycle.value_pe_max", "must be > 0"}
	}

	// === Smoothing ===
	if cfg.Smoothing.Alpha <= 0 || cfg.Smoothing.Alpha > 1 {
		return ValidationError{"smoothing.alpha", "must be in (0, 1]"}
	}
	if cfg.Smoothing.MinChange < 0 {
		return ValidationError{"smoothing.min_change", "must be >= 0"}
	}
	if cfg.Smoothing.LookbackDays <= 0 {
		return ValidationError{"smoothing.lookback_days", "must be > 0"}
	}

	// === Completeness ===
	if cfg.Completeness.MinRatio <= 0 || cfg.Completeness.MinRatio > 1 {
		return ValidationError{"completeness.min_ratio", "must be in (0, 1]"}
	}
	if cfg.Completeness.MinCoreFactors < 0 || cfg.Completeness.MinCoreFactors > len(contracts.CoreFactors) {
		return ValidationError{"completeness.min_core_factors",
			fmt.Sprintf("must be in [0, %d]", len(contracts.CoreFactors))}
	}

	// === Sector ===
	if cfg.Sector.MinSampleSize < 2 {
		return ValidationError{"sector.min_sample_size", "must be >= 2"}
	}
	if len(cfg.Sector.Metrics) == 0 {
		return ValidationError{"sector.metrics", "at least one metric required"}
	}
	metricSet := make(map[string]bool, len(cfg.Sector.Metrics))
	for _, m := range cfg.Sector.Metrics {
		metricSet[m] = true
	}
	for _, m := range cfg.Sector.LowerIsBetter {
		if !metricSet[m] {
			return ValidationError{"sector.lower_is_better",
				fmt.Sprintf("%q is not in sector.metrics", m)}
		}
	}

	// === Explain ===
	if cfg.Explain.SignificantDelta <= 0 {
		return ValidationError{"explain.significant_delta", "must be > 0"}
	}
	if cfg.Explain.TopDrivers < 1 {
		return ValidationError{"explain.top_drivers", "must be >= 1"}
	}

	// === Backtest defaults ===
	if cfg.Backtest.TransactionCostBps < 0 {
		return ValidationError{"backtest.transaction_cost_bps", "must be >= 0"}
	}
	if cfg.Backtest.SlippageBps < 0 {
		return ValidationError{"backtest.slippage_bps", "must be >= 0"}
	}
	if cfg.Backtest.Benchmark == "" {
		return ValidationError{"backtest.benchmark", "required"}
	}

	return nil
}
