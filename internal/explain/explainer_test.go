package explain

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

func f(v float64) *float64 { return &v }

func day(d int) time.Time {
	return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC)
}

func scoreRow(date time.Time, overall float64, fs contracts.FactorScores) *contracts.ICScore {
	cfg := scoringconfig.Default()
	return &contracts.ICScore{
		Ticker:       "AAPL",
		Date:         date,
		OverallScore: overall,
		RawScore:     overall,
		Rating:       contracts.RatingFor(overall),
		Factors:      fs,
		WeightsUsed:  cfg.Weights.StageWeights(contracts.StageMature),
		Lifecycle:    contracts.StageMature,
	}
}

func TestExplainMomentumDrivesChange(t *testing.T) {
	e := New(scoringconfig.Default())

	// Momentum rises 60 -> 90 while everything else holds at 70.
	prevFactors := contracts.FactorScores{
		Value: f(70), Growth: f(70), Profitability: f(70),
		FinancialHealth: f(70), Momentum: f(60),
	}
	currFactors := contracts.FactorScores{
		Value: f(70), Growth: f(70), Profitability: f(70),
		FinancialHealth: f(70), Momentum: f(90),
	}

	prev := scoreRow(day(27), 70, prevFactors)
	curr := scoreRow(day(28), 75, currFactors)
	// Pin the momentum weight so the contribution is exact.
	curr.WeightsUsed.Momentum = 0.08

	change := e.Explain(prev, curr, nil)

	if change.Delta != 5 {
		t.Errorf("delta = %v, want 5", change.Delta)
	}
	if !change.Significant {
		t.Error("a 5 point move should be significant")
	}
	if len(change.TopDrivers) != 1 {
		t.Fatalf("drivers = %d, want 1 (only momentum moved >= 3)", len(change.TopDrivers))
	}

	top := change.TopDrivers[0]
	if top.Factor != contracts.FactorMomentum {
		t.Errorf("top driver = %s, want momentum", top.Factor)
	}
	if math.Abs(top.Contribution-2.4) > 1e-9 {
		t.Errorf("contribution = %v, want 2.4 (30 x 0.08)", top.Contribution)
	}
	if top.Explanation != "Price momentum strengthened" {
		t.Errorf("explanation = %q", top.Explanation)
	}
	if !strings.Contains(change.Summary, "momentum") {
		t.Errorf("summary should name momentum: %q", change.Summary)
	}
	if !strings.Contains(change.Summary, "improved significantly") {
		t.Errorf("summary should read significantly improved: %q", change.Summary)
	}
}

func TestExplainIgnoresSubThresholdMoves(t *testing.T) {
	e := New(scoringconfig.Default())

	prev := scoreRow(day(27), 70, contracts.FactorScores{Value: f(70), Growth: f(70)})
	curr := scoreRow(day(28), 70.5, contracts.FactorScores{Value: f(71), Growth: f(72)})

	change := e.Explain(prev, curr, nil)
	if len(change.TopDrivers) != 0 {
		t.Errorf("moves under 3 points should not appear, got %d drivers", len(change.TopDrivers))
	}
	if change.Significant {
		t.Error("a 0.5 overall move is not significant")
	}
	if !strings.Contains(change.Summary, "improved slightly") {
		t.Errorf("summary = %q", change.Summary)
	}
}

func TestExplainSkipsFactorsNotInBothSnapshots(t *testing.T) {
	e := New(scoringconfig.Default())

	// Analyst consensus appears for the first time: a data event, not
	// a movement.
	prev := scoreRow(day(27), 70, contracts.FactorScores{Value: f(70)})
	curr := scoreRow(day(28), 72, contracts.FactorScores{Value: f(70), AnalystConsensus: f(90)})

	change := e.Explain(prev, curr, nil)
	for _, d := range change.TopDrivers {
		if d.Factor == contracts.FactorAnalystConsensus {
			t.Error("factor present in only one snapshot must not be a driver")
		}
	}
}

func TestExplainRanksByAbsoluteContribution(t *testing.T) {
	e := New(scoringconfig.Default())

	prevFactors := contracts.FactorScores{
		Value: f(70), Growth: f(70), Momentum: f(70), NewsSentiment: f(70),
	}
	currFactors := contracts.FactorScores{
		Value: f(50), Growth: f(78), Momentum: f(75), NewsSentiment: f(66),
	}

	prev := scoreRow(day(27), 70, prevFactors)
	curr := scoreRow(day(28), 67, currFactors)

	change := e.Explain(prev, curr, nil)
	if len(change.TopDrivers) < 2 {
		t.Fatalf("expected multiple drivers, got %d", len(change.TopDrivers))
	}
	for i := 1; i < len(change.TopDrivers); i++ {
		if math.Abs(change.TopDrivers[i].Contribution) > math.Abs(change.TopDrivers[i-1].Contribution) {
			t.Error("drivers must be ordered by descending absolute contribution")
		}
	}
	// Value fell 20 points with the largest weight x delta product.
	if change.TopDrivers[0].Factor != contracts.FactorValue {
		t.Errorf("top driver = %s, want value", change.TopDrivers[0].Factor)
	}
	if change.TopDrivers[0].Delta >= 0 {
		t.Error("value delta should be negative")
	}
}

func TestExplainCapsDrivers(t *testing.T) {
	e := New(scoringconfig.Default())

	var prevFactors, currFactors contracts.FactorScores
	for _, factor := range contracts.AllFactors {
		prevFactors.Set(factor, f(50))
		currFactors.Set(factor, f(60))
	}

	prev := scoreRow(day(27), 50, prevFactors)
	curr := scoreRow(day(28), 60, currFactors)

	change := e.Explain(prev, curr, nil)
	if len(change.TopDrivers) != 5 {
		t.Errorf("drivers = %d, want capped at 5", len(change.TopDrivers))
	}
}

func TestExplainTriggerEventWindow(t *testing.T) {
	e := New(scoringconfig.Default())

	prev := scoreRow(day(20), 70, contracts.FactorScores{Value: f(70)})
	curr := scoreRow(day(28), 72, contracts.FactorScores{Value: f(72)})

	events := []contracts.ScoreEvent{
		{Ticker: "AAPL", Type: contracts.EventEarningsRelease, OccurredAt: day(25)},
		{Ticker: "AAPL", Type: contracts.EventGuidanceUpdate, OccurredAt: day(10)}, // before window
		{Ticker: "AAPL", Type: contracts.EventAnalystRatingChange, OccurredAt: day(29)}, // after window
	}

	change := e.Explain(prev, curr, events)
	if len(change.TriggerEvents) != 1 {
		t.Fatalf("trigger events = %d, want 1", len(change.TriggerEvents))
	}
	if change.TriggerEvents[0].Type != contracts.EventEarningsRelease {
		t.Errorf("trigger = %s, want earnings_release", change.TriggerEvents[0].Type)
	}
}

func TestConfidenceBreakdown(t *testing.T) {
	score := scoreRow(day(28), 70, contracts.FactorScores{
		Value:    f(70),
		Growth:   f(65),
		Momentum: f(60),
	})
	score.DataCompleteness = 3.0 / 13.0
	score.Confidence = contracts.ConfidenceFor(score.DataCompleteness)

	latest := map[contracts.Factor]time.Time{
		contracts.FactorValue:    day(28),               // fresh
		contracts.FactorGrowth:   day(23),               // recent
		contracts.FactorMomentum: day(28).AddDate(0, 0, -20), // stale
	}

	br := Confidence(score, latest)

	if br.Level != contracts.ConfidenceLow {
		t.Errorf("level = %s, want low", br.Level)
	}
	if br.Factors[contracts.FactorValue].Freshness != contracts.FreshnessFresh {
		t.Errorf("value freshness = %s, want fresh", br.Factors[contracts.FactorValue].Freshness)
	}
	if br.Factors[contracts.FactorGrowth].Freshness != contracts.FreshnessRecent {
		t.Errorf("growth freshness = %s, want recent", br.Factors[contracts.FactorGrowth].Freshness)
	}
	if br.Factors[contracts.FactorMomentum].Freshness != contracts.FreshnessStale {
		t.Errorf("momentum freshness = %s, want stale", br.Factors[contracts.FactorMomentum].Freshness)
	}
	if len(br.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1 (stale momentum)", len(br.Warnings))
	}

	missing := br.Factors[contracts.FactorAnalystConsensus]
	if missing.Available {
		t.Error("analyst consensus should be unavailable")
	}
	if missing.Freshness != contracts.FreshnessMissing {
		t.Errorf("missing freshness = %s", missing.Freshness)
	}
	if missing.Reason != "No analyst coverage" {
		t.Errorf("missing reason = %q", missing.Reason)
	}
}
