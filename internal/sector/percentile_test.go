package sector

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

func testCalculator() *Calculator {
	return New(scoringconfig.Default())
}

func TestComputeStatsBasic(t *testing.T) {
	c := testCalculator()
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// 11 evenly spaced values: quantiles land exactly on members.
	values := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100, 110}

	stats, err := c.ComputeStats("Technology", "net_margin", values, asOf)
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}

	if stats.Min != 10 || stats.Max != 110 {
		t.Errorf("min/max = %v/%v, want 10/110", stats.Min, stats.Max)
	}
	if stats.P50 != 60 {
		t.Errorf("p50 = %v, want 60", stats.P50)
	}
	if stats.P25 != 35 {
		t.Errorf("p25 = %v, want 35", stats.P25)
	}
	if stats.Mean != 60 {
		t.Errorf("mean = %v, want 60", stats.Mean)
	}
	if stats.SampleCount != 11 {
		t.Errorf("sample count = %d, want 11", stats.SampleCount)
	}
}

func TestComputeStatsPopulationStdDev(t *testing.T) {
	c := testCalculator()

	// Population stddev of {2,4,4,4,5,5,7,9} is exactly 2.
	stats, err := c.ComputeStats("Energy", "net_margin",
		[]float64{2, 4, 4, 4, 5, 5, 7, 9}, time.Now())
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if math.Abs(stats.StdDev-2.0) > 1e-12 {
		t.Errorf("stddev = %v, want 2.0", stats.StdDev)
	}
}

func TestComputeStatsDropsNaN(t *testing.T) {
	c := testCalculator()

	values := []float64{1, 2, math.NaN(), 3, math.Inf(1), 4, 5}
	stats, err := c.ComputeStats("Utilities", "pe_ratio", values, time.Now())
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if stats.SampleCount != 5 {
		t.Errorf("sample count = %d, want 5 after dropping NaN/Inf", stats.SampleCount)
	}
}

func TestComputeStatsInsufficientSample(t *testing.T) {
	c := testCalculator()

	_, err := c.ComputeStats("Shipping", "pe_ratio", []float64{1, 2, 3, 4}, time.Now())
	if !errors.Is(err, ErrInsufficientSample) {
		t.Errorf("want ErrInsufficientSample, got %v", err)
	}

	// NaN filtering can push a big-enough sample under the minimum.
	_, err = c.ComputeStats("Shipping", "pe_ratio",
		[]float64{1, 2, 3, 4, math.NaN(), math.NaN()}, time.Now())
	if !errors.Is(err, ErrInsufficientSample) {
		t.Errorf("want ErrInsufficientSample after NaN filter, got %v", err)
	}
}

func TestPercentileInterpolation(t *testing.T) {
	c := testCalculator()

	stats, err := c.ComputeStats("Technology", "net_margin",
		[]float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, time.Now())
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}

	tests := []struct {
		value float64
		want  float64
	}{
		{-5, 0},     // below min clamps
		{0, 0},      // exactly min
		{50, 50},    // exactly p50
		{100, 100},  // exactly max
		{200, 100},  // above max clamps
		{30, 30},    // interior breakpoint (p25=25 at 25, p50=50 at 50)
	}
	for _, tt := range tests {
		got := c.Percentile(stats, tt.value)
		if math.Abs(got-tt.want) > 1.0 {
			t.Errorf("Percentile(%v) = %v, want ~%v", tt.value, got, tt.want)
		}
	}

	// Monotonic: a bigger value never gets a smaller percentile.
	prev := -1.0
	for v := 0.0; v <= 100; v += 5 {
		p := c.Percentile(stats, v)
		if p < prev {
			t.Fatalf("percentile not monotonic at value %v", v)
		}
		prev = p
	}
}

func TestPercentileLowerIsBetterInverted(t *testing.T) {
	c := testCalculator()

	values := []float64{5, 10, 15, 20, 25, 30, 35, 40, 45, 50}
	stats, err := c.ComputeStats("Technology", "pe_ratio", values, time.Now())
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}

	cheap := c.Percentile(stats, 6)
	expensive := c.Percentile(stats, 48)
	if cheap <= expensive {
		t.Errorf("low pe should score higher: cheap=%v expensive=%v", cheap, expensive)
	}
	if got := c.Percentile(stats, 5); got != 100 {
		t.Errorf("lowest pe should score 100, got %v", got)
	}
	if got := c.Percentile(stats, 50); got != 0 {
		t.Errorf("highest pe should score 0, got %v", got)
	}
}

func TestPercentileDegenerateDistribution(t *testing.T) {
	c := testCalculator()

	// All identical values: stats still compute, lookups stay in range.
	stats, err := c.ComputeStats("Technology", "net_margin",
		[]float64{7, 7, 7, 7, 7}, time.Now())
	if err != nil {
		t.Fatalf("ComputeStats failed: %v", err)
	}
	if stats.StdDev != 0 {
		t.Errorf("stddev = %v, want 0", stats.StdDev)
	}
	for _, v := range []float64{6, 7, 8} {
		p := c.Percentile(stats, v)
		if p < 0 || p > 100 {
			t.Errorf("Percentile(%v) = %v out of range", v, p)
		}
	}
}
