package contracts

import "time"

// Factor identifies one named sub-score of the IC Score.
type Factor string

const (
	FactorValue               Factor = "value"
	FactorGrowth              Factor = "growth"
	FactorProfitability       Factor = "profitability"
	FactorFinancialHealth     Factor = "financial_health"
	FactorMomentum            Factor = "momentum"
	FactorAnalystConsensus    Factor = "analyst_consensus"
	FactorInsiderActivity     Factor = "insider_activity"
	FactorInstitutional       Factor = "institutional"
	FactorNewsSentiment       Factor = "news_sentiment"
	FactorTechnical           Factor = "technical"
	FactorEarningsRevisions   Factor = "earnings_revisions"
	FactorHistoricalValuation Factor = "historical_valuation"
	FactorDividendQuality     Factor = "dividend_quality"
)

// AllFactors lists every factor in canonical order.
var AllFactors = []Factor{
	FactorValue,
	FactorGrowth,
	FactorProfitability,
	FactorFinancialHealth,
	FactorMomentum,
	FactorAnalystConsensus,
	FactorInsiderActivity,
	FactorInstitutional,
	FactorNewsSentiment,
	FactorTechnical,
	FactorEarningsRevisions,
	FactorHistoricalValuation,
	FactorDividendQuality,
}

// CoreFactors are the fundamental factors that anchor a reliable score.
var CoreFactors = map[Factor]bool{
	FactorValue:           true,
	FactorGrowth:          true,
	FactorProfitability:   true,
	FactorFinancialHealth: true,
}

// FactorScores holds the per-factor sub-scores for one ticker.
// A nil field means the factor could not be computed (missing data),
// which is distinct from a zero score.
type FactorScores struct {
	Value               *float64 `json:"value_score"`
	Growth              *float64 `json:"growth_score"`
	Profitability       *float64 `json:"profitability_score"`
	FinancialHealth     *float64 `json:"financial_health_score"`
	Momentum            *float64 `json:"momentum_score"`
	AnalystConsensus    *float64 `json:"analyst_consensus_score"`
	InsiderActivity     *float64 `json:"insider_activity_score"`
	Institutional       *float64 `json:"institutional_score"`
	NewsSentiment       *float64 `json:"news_sentiment_score"`
	Technical           *float64 `json:"technical_score"`
	EarningsRevisions   *float64 `json:"earnings_revisions_score"`
	HistoricalValuation *float64 `json:"historical_valuation_score"`
	DividendQuality     *float64 `json:"dividend_quality_score"`
}

// Get returns the sub-score for a factor, or nil if unavailable.
func (fs *FactorScores) Get(f Factor) *float64 {
	switch f {
	case FactorValue:
		return fs.Value
	case FactorGrowth:
		return fs.Growth
	case FactorProfitability:
		return fs.Profitability
	case FactorFinancialHealth:
		return fs.FinancialHealth
	case FactorMomentum:
		return fs.Momentum
	case FactorAnalystConsensus:
		return fs.AnalystConsensus
	case FactorInsiderActivity:
		return fs.InsiderActivity
	case FactorInstitutional:
		return fs.Institutional
	case FactorNewsSentiment:
		return fs.NewsSentiment
	case FactorTechnical:
		return fs.Technical
	case FactorEarningsRevisions:
		return fs.EarningsRevisions
	case FactorHistoricalValuation:
		return fs.HistoricalValuation
	case FactorDividendQuality:
		return fs.DividendQuality
	}
	return nil
}

// Set assigns the sub-score for a factor.
func (fs *FactorScores) Set(f Factor, v *float64) {
	switch f {
	case FactorValue:
		fs.Value = v
	case FactorGrowth:
		fs.Growth = v
	case FactorProfitability:
		fs.Profitability = v
	case FactorFinancialHealth:
		fs.FinancialHealth = v
	case FactorMomentum:
		fs.Momentum = v
	case FactorAnalystConsensus:
		fs.AnalystConsensus = v
	case FactorInsiderActivity:
		fs.InsiderActivity = v
	case FactorInstitutional:
		fs.Institutional = v
	case FactorNewsSentiment:
		fs.NewsSentiment = v
	case FactorTechnical:
		fs.Technical = v
	case FactorEarningsRevisions:
		fs.EarningsRevisions = v
	case FactorHistoricalValuation:
		fs.HistoricalValuation = v
	case FactorDividendQuality:
		fs.DividendQuality = v
	}
}

// Available returns the factors that have a computed value.
func (fs *FactorScores) Available() []Factor {
	available := make([]Factor, 0, len(AllFactors))
	for _, f := range AllFactors {
		if fs.Get(f) != nil {
			available = append(available, f)
		}
	}
	return available
}

// Count returns the number of non-nil factor scores.
func (fs *FactorScores) Count() int {
	return len(fs.Available())
}

// Freshness classifies how current a factor's underlying data is.
type Freshness string

const (
	FreshnessFresh   Freshness = "fresh"   // <= 1 day old
	FreshnessRecent  Freshness = "recent"  // <= 7 days old
	FreshnessStale   Freshness = "stale"   // older than 7 days
	FreshnessMissing Freshness = "missing" // no data at all
)

// FreshnessFor maps data age to a freshness bucket.
func FreshnessFor(latest, asOf time.Time) Freshness {
	if latest.IsZero() {
		return FreshnessMissing
	}
	days := int(asOf.Sub(latest).Hours() / 24)
	switch {
	case days <= 1:
		return FreshnessFresh
	case days <= 7:
		return FreshnessRecent
	default:
		return FreshnessStale
	}
}

// FactorStatus describes the data behind one factor for the granular
// confidence breakdown.
type FactorStatus struct {
	Available     bool      `json:"available"`
	Freshness     Freshness `json:"freshness"`
	FreshnessDays *int      `json:"freshness_days,omitempty"`
	Warning       string    `json:"warning,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}

// Float returns a pointer to v. Convenience for building FactorScores.
func Float(v float64) *float64 {
	return &v
}
