package explain

import (
	"fmt"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// Confidence builds the per-factor data-quality breakdown for a score:
// which factors were available, how fresh their underlying data was,
// and why missing ones are missing. latestData maps each factor to the
// newest timestamp of its source data; a zero time or absent key means
// no data at all.
func Confidence(score *contracts.ICScore, latestData map[contracts.Factor]time.Time) contracts.ConfidenceBreakdown {
	factors := make(map[contracts.Factor]contracts.FactorStatus, len(contracts.AllFactors))
	var warnings []string

	for _, f := range contracts.AllFactors {
		if score.Factors.Get(f) == nil {
			factors[f] = contracts.FactorStatus{
				Available: false,
				Freshness: contracts.FreshnessMissing,
				Reason:    missingReason(f),
			}
			continue
		}

		latest := latestData[f]
		freshness := contracts.FreshnessFor(latest, score.Date)
		status := contracts.FactorStatus{
			Available: true,
			Freshness: freshness,
		}
		if !latest.IsZero() {
			days := int(score.Date.Sub(latest).Hours() / 24)
			status.FreshnessDays = &days
			if freshness == contracts.FreshnessStale {
				status.Warning = fmt.Sprintf("Data is %d days old", days)
				warnings = append(warnings, fmt.Sprintf("%s: %s", f, status.Warning))
			}
		}
		factors[f] = status
	}

	return contracts.ConfidenceBreakdown{
		Level:        score.Confidence,
		Completeness: score.DataCompleteness,
		Factors:      factors,
		Warnings:     warnings,
	}
}

func missingReason(f contracts.Factor) string {
	reasons := map[contracts.Factor]string{
		contracts.FactorValue:               "Missing valuation data (P/E, P/B, P/S)",
		contracts.FactorGrowth:              "Insufficient historical financial data",
		contracts.FactorProfitability:       "Missing profitability metrics",
		contracts.FactorFinancialHealth:     "Missing balance sheet data",
		contracts.FactorMomentum:            "Missing price data",
		contracts.FactorTechnical:           "Missing technical indicators",
		contracts.FactorAnalystConsensus:    "No analyst coverage",
		contracts.FactorInsiderActivity:     "No insider trades reported",
		contracts.FactorInstitutional:       "No institutional holdings data",
		contracts.FactorNewsSentiment:       "No recent news articles",
		contracts.FactorEarningsRevisions:   "No estimate revision history",
		contracts.FactorHistoricalValuation: "Insufficient valuation history",
		contracts.FactorDividendQuality:     "No dividend record",
	}
	if r, ok := reasons[f]; ok {
		return r
	}
	return "Data not available"
}
