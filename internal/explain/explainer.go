// Package explain turns two consecutive score rows into a
// human-readable account of what moved and why: per-factor
// contributions ranked by impact, templated explanations, and a
// one-sentence summary.
package explain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

// Explainer builds score change explanations.
type Explainer struct {
	params scoringconfig.ExplainParams
}

// New builds an Explainer from the loaded parameter set.
func New(cfg *scoringconfig.Config) *Explainer {
	return &Explainer{params: cfg.Explain}
}

// Explain compares two consecutive score rows for the same ticker.
// events should cover the window between the two calculation dates;
// anything outside it is filtered here.
func (e *Explainer) Explain(prev, curr *contracts.ICScore, events []contracts.ScoreEvent) *contracts.ScoreChange {
	delta := curr.OverallScore - prev.OverallScore

	// Per-factor contributions, only for factors present in both
	// snapshots: a factor appearing or vanishing is a data event, not
	// a movement.
	drivers := make([]contracts.FactorChange, 0, len(contracts.AllFactors))
	for _, f := range contracts.AllFactors {
		pv := prev.Factors.Get(f)
		cv := curr.Factors.Get(f)
		if pv == nil || cv == nil {
			continue
		}

		factorDelta := *cv - *pv
		if math.Abs(factorDelta) < e.params.SignificantDelta {
			continue
		}

		weight := curr.WeightsUsed.Get(f)
		drivers = append(drivers, contracts.FactorChange{
			Factor:       f,
			Previous:     pv,
			Current:      cv,
			Delta:        round2(factorDelta),
			Weight:       weight,
			Contribution: round2(factorDelta * weight),
			Explanation:  explanationFor(f, factorDelta),
		})
	}

	sort.Slice(drivers, func(i, j int) bool {
		ai, aj := math.Abs(drivers[i].Contribution), math.Abs(drivers[j].Contribution)
		if ai != aj {
			return ai > aj
		}
		return drivers[i].Factor < drivers[j].Factor
	})
	if len(drivers) > e.params.TopDrivers {
		drivers = drivers[:e.params.TopDrivers]
	}

	return &contracts.ScoreChange{
		Ticker:           curr.Ticker,
		FromDate:         prev.Date,
		ToDate:           curr.Date,
		PreviousScore:    prev.OverallScore,
		CurrentScore:     curr.OverallScore,
		Delta:            round2(delta),
		Significant:      math.Abs(delta) >= e.params.SignificantDelta,
		TopDrivers:       drivers,
		Summary:          e.summary(curr.Ticker, delta, drivers),
		TriggerEvents:    eventsBetween(events, prev.Date, curr.Date),
		SmoothingApplied: curr.SmoothingApplied,
		CreatedAt:        time.Now().UTC(),
	}
}

func (e *Explainer) summary(ticker string, delta float64, drivers []contracts.FactorChange) string {
	if len(drivers) == 0 {
		switch {
		case math.Abs(delta) < 0.5:
			return fmt.Sprintf("%s's IC Score is unchanged", ticker)
		case delta > 0:
			return fmt.Sprintf("%s's IC Score improved slightly", ticker)
		default:
			return fmt.Sprintf("%s's IC Score declined slightly", ticker)
		}
	}

	var direction string
	switch {
	case delta > e.params.SignificantDelta:
		direction = "improved significantly"
	case delta > 0:
		direction = "improved"
	case delta < -e.params.SignificantDelta:
		direction = "declined significantly"
	default:
		direction = "declined"
	}

	top := drivers[0]
	return fmt.Sprintf("%s's IC Score %s (%+.1f points), primarily due to %s (%+.1f)",
		ticker, direction, delta, strings.ReplaceAll(string(top.Factor), "_", " "), top.Delta)
}

// eventsBetween keeps events with prev < occurred_at <= curr.
func eventsBetween(events []contracts.ScoreEvent, from, to time.Time) []contracts.ScoreEvent {
	var out []contracts.ScoreEvent
	for _, ev := range events {
		if ev.OccurredAt.After(from) && !ev.OccurredAt.After(to) {
			out = append(out, ev)
		}
	}
	return out
}

// explanationFor returns the templated one-liner for a factor move.
func explanationFor(f contracts.Factor, delta float64) string {
	tpl, ok := explanations[f]
	if !ok {
		name := strings.ReplaceAll(string(f), "_", " ")
		if delta > 0 {
			return fmt.Sprintf("%s improved", name)
		}
		return fmt.Sprintf("%s declined", name)
	}
	if delta > 0 {
		return tpl.positive
	}
	return tpl.negative
}

type template struct {
	positive string
	negative string
}

var explanations = map[contracts.Factor]template{
	contracts.FactorValue: {
		"Stock appears more undervalued vs sector peers",
		"Stock appears more overvalued vs sector peers",
	},
	contracts.FactorGrowth: {
		"Revenue and earnings growth improved",
		"Growth metrics declined",
	},
	contracts.FactorProfitability: {
		"Profitability margins improved",
		"Profitability margins contracted",
	},
	contracts.FactorFinancialHealth: {
		"Balance sheet strength improved",
		"Debt or liquidity metrics worsened",
	},
	contracts.FactorMomentum: {
		"Price momentum strengthened",
		"Price momentum weakened",
	},
	contracts.FactorTechnical: {
		"Technical indicators turned bullish",
		"Technical indicators turned bearish",
	},
	contracts.FactorAnalystConsensus: {
		"Analyst ratings upgraded",
		"Analyst ratings downgraded",
	},
	contracts.FactorInsiderActivity: {
		"Insider buying increased",
		"Insider selling increased",
	},
	contracts.FactorInstitutional: {
		"Institutional ownership increased",
		"Institutional ownership decreased",
	},
	contracts.FactorNewsSentiment: {
		"News sentiment improved",
		"News sentiment worsened",
	},
	contracts.FactorEarningsRevisions: {
		"Earnings estimates revised upward",
		"Earnings estimates revised downward",
	},
	contracts.FactorHistoricalValuation: {
		"Valuation cheap vs own history",
		"Valuation stretched vs own history",
	},
	contracts.FactorDividendQuality: {
		"Dividend coverage and growth improved",
		"Dividend quality deteriorated",
	},
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
