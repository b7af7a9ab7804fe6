package contracts

import "time"

// Rating is the categorical band an overall score falls into.
type Rating string

const (
	RatingStrongBuy    Rating = "Strong Buy"
	RatingBuy          Rating = "Buy"
	RatingHold         Rating = "Hold"
	RatingUnderperform Rating = "Underperform"
	RatingSell         Rating = "Sell"
)

// RatingFor maps an overall score to its rating band. Boundaries are
// inclusive on the lower edge: exactly 80.0 is Strong Buy.
func RatingFor(score float64) Rating {
	switch {
	case score >= 80:
		return RatingStrongBuy
	case score >= 65:
		return RatingBuy
	case score >= 50:
		return RatingHold
	case score >= 35:
		return RatingUnderperform
	default:
		return RatingSell
	}
}

// ConfidenceLevel grades how trustworthy a score is given the data
// behind it.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ConfidenceFor maps data completeness (0..1) to a confidence level.
func ConfidenceFor(completeness float64) ConfidenceLevel {
	switch {
	case completeness >= 0.8:
		return ConfidenceHigh
	case completeness >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ICScore is one ticker's composite score for one date, together with
// everything needed to explain and audit it.
type ICScore struct {
	Ticker string    `json:"ticker"`
	Date   time.Time `json:"date"`

	// OverallScore is the published, smoothed score (1..100).
	// RawScore is the pre-smoothing weighted composite.
	OverallScore float64 `json:"overall_score"`
	RawScore     float64 `json:"raw_score"`
	Rating       Rating  `json:"rating"`

	Factors      FactorScores `json:"factors"`
	WeightsUsed  Weights      `json:"weights_used"`
	Lifecycle    Stage        `json:"lifecycle_stage"`

	Sector           string   `json:"sector,omitempty"`
	SectorRank       *int     `json:"sector_rank,omitempty"`
	SectorTotal      *int     `json:"sector_total,omitempty"`
	SectorPercentile *float64 `json:"sector_percentile,omitempty"`

	DataCompleteness float64         `json:"data_completeness"` // 0..1
	Confidence       ConfidenceLevel `json:"confidence"`

	// PreviousScore is the prior published score, if any. Smoothing
	// and change explanation both key off it.
	PreviousScore    *float64 `json:"previous_score,omitempty"`
	SmoothingApplied bool     `json:"smoothing_applied"`
	ResetReason      string   `json:"reset_reason,omitempty"`

	// Metadata carries forward-compatible run context the engine does
	// not interpret (config hash, run id). Everything the engine DOES
	// interpret has a typed field above.
	Metadata map[string]any `json:"metadata,omitempty"`

	CalculatedAt time.Time `json:"calculated_at"`
}
