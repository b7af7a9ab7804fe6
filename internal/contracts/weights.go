package contracts

// Weights assigns one weight per factor. Keys are fixed at compile time
// so a typo in a weight name is a build error, not a silent zero.
type Weights struct {
	Value               float64 `json:"value" yaml:"value"`
	Growth              float64 `json:"growth" yaml:"growth"`
	Profitability       float64 `json:"profitability" yaml:"profitability"`
	FinancialHealth     float64 `json:"financial_health" yaml:"financial_health"`
	Momentum            float64 `json:"momentum" yaml:"momentum"`
	AnalystConsensus    float64 `json:"analyst_consensus" yaml:"analyst_consensus"`
	InsiderActivity     float64 `json:"insider_activity" yaml:"insider_activity"`
	Institutional       float64 `json:"institutional" yaml:"institutional"`
	NewsSentiment       float64 `json:"news_sentiment" yaml:"news_sentiment"`
	Technical           float64 `json:"technical" yaml:"technical"`
	EarningsRevisions   float64 `json:"earnings_revisions" yaml:"earnings_revisions"`
	HistoricalValuation float64 `json:"historical_valuation" yaml:"historical_valuation"`
	DividendQuality     float64 `json:"dividend_quality" yaml:"dividend_quality"`
}

// Get returns the weight for a factor.
func (w Weights) Get(f Factor) float64 {
	switch f {
	case FactorValue:
		return w.Value
	case FactorGrowth:
		return w.Growth
	case FactorProfitability:
		return w.Profitability
	case FactorFinancialHealth:
		return w.FinancialHealth
	case FactorMomentum:
		return w.Momentum
	case FactorAnalystConsensus:
		return w.AnalystConsensus
	case FactorInsiderActivity:
		return w.InsiderActivity
	case FactorInstitutional:
		return w.Institutional
	case FactorNewsSentiment:
		return w.NewsSentiment
	case FactorTechnical:
		return w.Technical
	case FactorEarningsRevisions:
		return w.EarningsRevisions
	case FactorHistoricalValuation:
		return w.HistoricalValuation
	case FactorDividendQuality:
		return w.DividendQuality
	}
	return 0
}

// Set assigns the weight for a factor.
func (w *Weights) Set(f Factor, v float64) {
	switch f {
	case FactorValue:
		w.Value = v
	case FactorGrowth:
		w.Growth = v
	case FactorProfitability:
		w.Profitability = v
	case FactorFinancialHealth:
		w.FinancialHealth = v
	case FactorMomentum:
		w.Momentum = v
	case FactorAnalystConsensus:
		w.AnalystConsensus = v
	case FactorInsiderActivity:
		w.InsiderActivity = v
	case FactorInstitutional:
		w.Institutional = v
	case FactorNewsSentiment:
		w.NewsSentiment = v
	case FactorTechnical:
		w.Technical = v
	case FactorEarningsRevisions:
		w.EarningsRevisions = v
	case FactorHistoricalValuation:
		w.HistoricalValuation = v
	case FactorDividendQuality:
		w.DividendQuality = v
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, f := range AllFactors {
		total += w.Get(f)
	}
	return total
}

// Normalized returns a copy scaled so the weights sum to 1.0.
// A zero-sum input is returned unchanged.
func (w Weights) Normalized() Weights {
	total := w.Sum()
	if total == 0 {
		return w
	}
	var out Weights
	for _, f := range AllFactors {
		out.Set(f, w.Get(f)/total)
	}
	return out
}

// Multiplied returns a copy with each weight scaled by the matching
// multiplier. A multiplier of 1.0 leaves the factor untouched.
func (w Weights) Multiplied(m Weights) Weights {
	var out Weights
	for _, f := range AllFactors {
		out.Set(f, w.Get(f)*m.Get(f))
	}
	return out
}
