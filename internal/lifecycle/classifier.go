// Package lifecycle classifies companies into business-maturity stages
// so the score calculator can weight factors the way each company type
// should be judged: hypergrowth on growth and momentum, value names on
// valuation and capital return, turnarounds on survival and recovery.
package lifecycle

import (
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

// Classifier assigns lifecycle stages from fundamental metrics.
// Deterministic: identical inputs always produce identical output.
type Classifier struct {
	params  scoringconfig.LifecycleParams
	weights scoringconfig.WeightTables
}

// New builds a Classifier from the loaded parameter set.
func New(cfg *scoringconfig.Config) *Classifier {
	return &Classifier{
		params:  cfg.Lifecycle,
		weights: cfg.Weights,
	}
}

// Classify determines the stage for one ticker and attaches the
// normalized weight vector that stage implies.
//
// The cascade runs top-down; the first matching rule wins:
//  1. hypergrowth: revenue growth above the hypergrowth threshold
//  2. growth:      revenue growth above the growth threshold
//  3. turnaround:  shrinking revenue AND negative margin
//  4. value:       P/E below the sector median with a positive margin
//  5. mature:      everything else, including missing data
func (c *Classifier) Classify(ticker string, m contracts.LifecycleMetrics, asOf time.Time) contracts.LifecycleClassification {
	stage, confidence := c.determineStage(m)

	return contracts.LifecycleClassification{
		Ticker:         ticker,
		Stage:          stage,
		Confidence:     confidence,
		Metrics:        m,
		WeightsApplied: c.weights.StageWeights(stage),
		ClassifiedAt:   asOf,
	}
}

// StageWeights exposes the normalized weight vector for a stage, for
// callers re-deriving weights from a persisted classification.
func (c *Classifier) StageWeights(stage contracts.Stage) contracts.Weights {
	return c.weights.StageWeights(stage)
}

func (c *Classifier) determineStage(m contracts.LifecycleMetrics) (contracts.Stage, float64) {
	p := c.params

	// No growth and no margin data: nothing to cascade on. Mature is
	// the most balanced weight profile, so it is the safe default.
	if m.RevenueGrowth == nil && m.NetMargin == nil {
		return contracts.StageMature, 0.5
	}

	if m.RevenueGrowth != nil {
		growth := *m.RevenueGrowth

		if growth > p.HypergrowthRevenueGrowth {
			// Confidence scales with how far past the threshold.
			conf := (growth-p.HypergrowthRevenueGrowth)/p.HypergrowthRevenueGrowth + 0.7
			return contracts.StageHypergrowth, clamp01(conf)
		}

		if growth > p.GrowthRevenueGrowth {
			conf := 0.6 + (growth-p.GrowthRevenueGrowth)/0.6
			return contracts.StageGrowth, clamp01(conf)
		}

		if growth < 0 && m.NetMargin != nil && *m.NetMargin < 0 {
			conf := 0.5 + minF(-growth/0.2, 0.5)
			return contracts.StageTurnaround, clamp01(conf)
		}
	}

	// Cheapness is relative to the peer group: the sector's P/E
	// median from the latest percentile refresh. The configured cap
	// only backstops tickers whose sector has no distribution yet.
	peCap := p.ValuePEMax
	if m.SectorPEMedian != nil && *m.SectorPEMedian > 0 {
		peCap = *m.SectorPEMedian
	}
	if m.PERatio != nil && m.NetMargin != nil &&
		*m.PERatio > 0 && *m.PERatio < peCap && *m.NetMargin > p.ValueMarginMin {
		peScore := (peCap - *m.PERatio) / peCap
		marginScore := minF(*m.NetMargin/0.2, 0.5)
		return contracts.StageValue, clamp01(0.5 + peScore*0.3 + marginScore)
	}

	// Mature: higher confidence when metrics look typically mature.
	conf := 0.6
	if m.RevenueGrowth != nil && m.NetMargin != nil &&
		*m.RevenueGrowth > 0 && *m.RevenueGrowth < 0.15 && *m.NetMargin > 0 {
		conf = 0.8
	}
	return contracts.StageMature, conf
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
