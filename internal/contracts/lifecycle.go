package contracts

import "time"

// Stage is a company's lifecycle stage. The stage drives which factors
// carry more or less weight in the final score.
type Stage string

const (
	StageHypergrowth Stage = "hypergrowth"
	StageGrowth      Stage = "growth"
	StageTurnaround  Stage = "turnaround"
	StageValue       Stage = "value"
	StageMature      Stage = "mature"
)

// AllStages lists every lifecycle stage in cascade order.
var AllStages = []Stage{
	StageHypergrowth,
	StageGrowth,
	StageTurnaround,
	StageValue,
	StageMature,
}

// ValidStage reports whether s is a known lifecycle stage.
func ValidStage(s Stage) bool {
	switch s {
	case StageHypergrowth, StageGrowth, StageTurnaround, StageValue, StageMature:
		return true
	}
	return false
}

// LifecycleMetrics are the fundamental inputs to stage classification.
// Nil means the metric is unavailable for this ticker.
type LifecycleMetrics struct {
	RevenueGrowth *float64 `json:"revenue_growth,omitempty"` // YoY, fraction (0.25 = 25%)
	NetMargin     *float64 `json:"net_margin,omitempty"`     // fraction
	PERatio       *float64 `json:"pe_ratio,omitempty"`
	MarketCap     *float64 `json:"market_cap,omitempty"`

	// SectorPEMedian is the P50 of trailing P/E across the ticker's
	// sector, from the latest percentile refresh. Nil when the sector
	// has no distribution yet.
	SectorPEMedian *float64 `json:"sector_pe_median,omitempty"`
}

// LifecycleClassification is the persisted outcome of classifying one
// ticker on one date.
type LifecycleClassification struct {
	Ticker         string           `json:"ticker"`
	Stage          Stage            `json:"stage"`
	Confidence     float64          `json:"confidence"` // 0..1
	Metrics        LifecycleMetrics `json:"metrics"`
	WeightsApplied Weights          `json:"weights_applied"`
	ClassifiedAt   time.Time        `json:"classified_at"`
}
