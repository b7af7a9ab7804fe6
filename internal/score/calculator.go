// Package score turns per-factor sub-scores into the published
// composite score: lifecycle-weighted mean, completeness and
// confidence bookkeeping, smoothing against the previous run, and the
// categorical rating band.
package score

import (
	"errors"
	"fmt"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

var (
	// ErrNoFactors means not a single factor could be computed; no
	// score row is produced at all.
	ErrNoFactors = errors.New("no factor scores available")

	// ErrInsufficientData means factors exist but fail the
	// completeness gate; scoring would be noise, so the ticker is
	// skipped for this run.
	ErrInsufficientData = errors.New("insufficient data to score")
)

// PreviousScore is the prior published score feeding smoothing.
type PreviousScore struct {
	Score float64
	Date  time.Time
}

// Input is everything needed to score one ticker on one date.
type Input struct {
	Ticker string
	Date   time.Time
	Sector string

	Factors   contracts.FactorScores
	Lifecycle contracts.LifecycleClassification

	// Previous is nil on a ticker's first scoring run.
	Previous *PreviousScore

	// Events are the ticker's events since the previous run; a reset
	// event suppresses smoothing so the event shows up immediately.
	Events []contracts.ScoreEvent

	// DividendPayer controls whether dividend_quality counts against
	// completeness. Non-payers are not penalized for a factor that
	// cannot apply to them.
	DividendPayer bool
}

// Calculator computes composite scores. Stateless; safe for
// concurrent use from the pipeline workers.
type Calculator struct {
	gate       scoringconfig.CompletenessGate
	stabilizer *Stabilizer
}

// NewCalculator builds a Calculator from the loaded parameter set.
func NewCalculator(cfg *scoringconfig.Config) *Calculator {
	return &Calculator{
		gate:       cfg.Completeness,
		stabilizer: NewStabilizer(cfg.Smoothing),
	}
}

// Calculate produces the ICScore row for one ticker, or a sentinel
// error when the ticker cannot be scored this run.
//
// Steps:
//  1. weight vector = the lifecycle stage's normalized weights
//  2. raw_score = weighted mean over the non-nil factors
//  3. completeness + core-factor gate
//  4. smoothing against the previous published score
//  5. rating band from the published score
func (c *Calculator) Calculate(in Input) (*contracts.ICScore, error) {
	available := in.Factors.Available()
	if len(available) == 0 {
		return nil, fmt.Errorf("%s: %w", in.Ticker, ErrNoFactors)
	}

	completeness := c.completeness(&in.Factors, in.DividendPayer)
	coreCount := 0
	for _, f := range available {
		if contracts.CoreFactors[f] {
			coreCount++
		}
	}
	if completeness < c.gate.MinRatio || coreCount < c.gate.MinCoreFactors {
		return nil, fmt.Errorf("%s: completeness %.2f, core factors %d: %w",
			in.Ticker, completeness, coreCount, ErrInsufficientData)
	}

	weights := in.Lifecycle.WeightsApplied

	// Weighted mean restricted to available factors keeps the score
	// on the same 0-100 scale however many factors are missing.
	weightedSum := 0.0
	weightTotal := 0.0
	for _, f := range available {
		w := weights.Get(f)
		weightedSum += *in.Factors.Get(f) * w
		weightTotal += w
	}
	if weightTotal == 0 {
		return nil, fmt.Errorf("%s: available factors carry zero weight: %w", in.Ticker, ErrInsufficientData)
	}
	raw := clampScore(weightedSum / weightTotal)

	published, applied, resetReason := c.stabilizer.Apply(raw, in.Previous, in.Date, in.Events)
	published = clampScore(published)

	var prevScore *float64
	if in.Previous != nil {
		prevScore = contracts.Float(in.Previous.Score)
	}

	return &contracts.ICScore{
		Ticker:           in.Ticker,
		Date:             in.Date,
		OverallScore:     published,
		RawScore:         raw,
		Rating:           contracts.RatingFor(published),
		Factors:          in.Factors,
		WeightsUsed:      weights,
		Lifecycle:        in.Lifecycle.Stage,
		Sector:           in.Sector,
		DataCompleteness: completeness,
		Confidence:       contracts.ConfidenceFor(completeness),
		PreviousScore:    prevScore,
		SmoothingApplied: applied,
		ResetReason:      resetReason,
		CalculatedAt:     time.Now().UTC(),
	}, nil
}

// completeness is the fraction of applicable factors that have values.
// dividend_quality leaves the denominator for non-payers.
func (c *Calculator) completeness(fs *contracts.FactorScores, dividendPayer bool) float64 {
	denominator := len(contracts.AllFactors)
	numerator := fs.Count()
	if !dividendPayer {
		denominator--
		if fs.DividendQuality != nil {
			numerator--
		}
	}
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// clampScore keeps a score on the published 1-100 scale.
func clampScore(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
