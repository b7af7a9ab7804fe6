package contracts

import "time"

// FactorChange is one factor's movement between two scoring runs,
// ordered by its contribution to the overall delta.
type FactorChange struct {
	Factor       Factor   `json:"factor"`
	Previous     *float64 `json:"previous,omitempty"`
	Current      *float64 `json:"current,omitempty"`
	Delta        float64  `json:"delta"`
	Weight       float64  `json:"weight"`
	Contribution float64  `json:"contribution"` // delta * weight
	Explanation  string   `json:"explanation"`
}

// ScoreChange explains how and why a ticker's score moved between two
// dates.
type ScoreChange struct {
	Ticker        string         `json:"ticker"`
	FromDate      time.Time      `json:"from_date"`
	ToDate        time.Time      `json:"to_date"`
	PreviousScore float64        `json:"previous_score"`
	CurrentScore  float64        `json:"current_score"`
	Delta         float64        `json:"delta"`
	Significant   bool           `json:"significant"`
	TopDrivers    []FactorChange `json:"top_drivers"`
	Summary       string         `json:"summary"`

	// TriggerEvents are events whose timestamp falls between the two
	// calculation dates. Informational tags, not causal proof.
	TriggerEvents []ScoreEvent `json:"trigger_events,omitempty"`

	SmoothingApplied bool      `json:"smoothing_applied"`
	CreatedAt        time.Time `json:"created_at"`
}

// ConfidenceBreakdown is the granular, per-factor data-quality view
// attached to a score explanation.
type ConfidenceBreakdown struct {
	Level        ConfidenceLevel         `json:"level"`
	Completeness float64                 `json:"completeness"`
	Factors      map[Factor]FactorStatus `json:"factors"`
	Warnings     []string                `json:"warnings,omitempty"`
}
