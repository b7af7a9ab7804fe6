// Package sector computes cross-sectional percentile distributions so
// factor values can be judged against sector peers instead of absolute
// thresholds. A P/E of 30 is cheap for software and expensive for
// utilities; the percentile makes that comparison explicit.
package sector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

// ErrInsufficientSample means the sector has too few valid values for
// the metric to produce a meaningful distribution.
var ErrInsufficientSample = errors.New("sector sample below minimum size")

// Calculator builds and queries sector-level metric distributions.
type Calculator struct {
	minSample     int
	lowerIsBetter map[string]bool
}

// New builds a Calculator from the loaded parameter set.
func New(cfg *scoringconfig.Config) *Calculator {
	return &Calculator{
		minSample:     cfg.Sector.MinSampleSize,
		lowerIsBetter: cfg.Sector.LowerIsBetterSet(),
	}
}

// ComputeStats builds the percentile distribution of one metric in one
// sector. NaN and Inf values are dropped before anything is computed;
// the sample must still clear the minimum size afterwards.
func (c *Calculator) ComputeStats(sector, metric string, values []float64, asOf time.Time) (*contracts.SectorStats, error) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}

	if len(clean) < c.minSample {
		return nil, fmt.Errorf("%s/%s: %d valid values, need %d: %w",
			sector, metric, len(clean), c.minSample, ErrInsufficientSample)
	}

	sort.Float64s(clean)

	mean := 0.0
	for _, v := range clean {
		mean += v
	}
	mean /= float64(len(clean))

	// Population stddev: the sample IS the whole sector, not a draw
	// from it.
	variance := 0.0
	for _, v := range clean {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(clean))

	return &contracts.SectorStats{
		Sector:       sector,
		Metric:       metric,
		Min:          clean[0],
		P10:          interpolatedQuantile(clean, 10),
		P25:          interpolatedQuantile(clean, 25),
		P50:          interpolatedQuantile(clean, 50),
		P75:          interpolatedQuantile(clean, 75),
		P90:          interpolatedQuantile(clean, 90),
		Max:          clean[len(clean)-1],
		Mean:         mean,
		StdDev:       math.Sqrt(variance),
		SampleCount:  len(clean),
		CalculatedAt: asOf,
	}, nil
}

// Percentile places one value inside a stored distribution, returning
// a score in [0, 100] where higher always means better. For metrics in
// the lower-is-better set the raw percentile is inverted.
func (c *Calculator) Percentile(stats *contracts.SectorStats, value float64) float64 {
	raw := rawPercentile(stats, value)
	if c.lowerIsBetter[stats.Metric] {
		return 100 - raw
	}
	return raw
}

// rawPercentile interpolates piecewise-linearly between the stored
// breakpoints. Values outside [min, max] clamp to 0 or 100.
func rawPercentile(stats *contracts.SectorStats, value float64) float64 {
	breaks := []struct {
		pct float64
		val float64
	}{
		{0, stats.Min},
		{10, stats.P10},
		{25, stats.P25},
		{50, stats.P50},
		{75, stats.P75},
		{90, stats.P90},
		{100, stats.Max},
	}

	if value <= breaks[0].val {
		return 0
	}
	if value >= breaks[len(breaks)-1].val {
		return 100
	}

	for i := 1; i < len(breaks); i++ {
		lo, hi := breaks[i-1], breaks[i]
		if value > hi.val {
			continue
		}
		// Degenerate segment: every value in it maps to the upper
		// percentile.
		if hi.val == lo.val {
			return hi.pct
		}
		frac := (value - lo.val) / (hi.val - lo.val)
		return lo.pct + frac*(hi.pct-lo.pct)
	}
	return 100
}

// interpolatedQuantile returns the p-th percentile of a sorted sample
// using linear interpolation between closest ranks.
func interpolatedQuantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
