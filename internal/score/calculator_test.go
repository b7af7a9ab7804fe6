package score

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
)

func f(v float64) *float64 { return &v }

func testDate() time.Time {
	return time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
}

// fullFactors returns a FactorScores with every factor set to v.
func fullFactors(v float64) contracts.FactorScores {
	var fs contracts.FactorScores
	for _, factor := range contracts.AllFactors {
		fs.Set(factor, f(v))
	}
	return fs
}

func matureClassification() contracts.LifecycleClassification {
	cfg := scoringconfig.Default()
	return contracts.LifecycleClassification{
		Ticker:         "TEST",
		Stage:          contracts.StageMature,
		Confidence:     0.8,
		WeightsApplied: cfg.Weights.StageWeights(contracts.StageMature),
		ClassifiedAt:   testDate(),
	}
}

func TestCalculateWeightedMeanAllFactors(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())

	// Every factor at 70: the weighted mean must be exactly 70
	// whatever the weights are.
	in := Input{
		Ticker:        "KO",
		Date:          testDate(),
		Sector:        "Consumer Staples",
		Factors:       fullFactors(70),
		Lifecycle:     matureClassification(),
		DividendPayer: true,
	}

	got, err := c.Calculate(in)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if math.Abs(got.RawScore-70) > 1e-9 {
		t.Errorf("raw score = %v, want 70", got.RawScore)
	}
	if got.OverallScore != got.RawScore {
		t.Errorf("no previous score: overall %v should equal raw %v", got.OverallScore, got.RawScore)
	}
	if got.SmoothingApplied {
		t.Error("smoothing_applied should be false without history")
	}
	if math.Abs(got.DataCompleteness-1.0) > 1e-9 {
		t.Errorf("completeness = %v, want 1.0", got.DataCompleteness)
	}
	if got.Confidence != contracts.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", got.Confidence)
	}
}

func TestCalculateExactWeightedAverage(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())
	cls := matureClassification()

	fs := fullFactors(50)
	fs.Growth = f(90)

	in := Input{
		Ticker: "AAPL", Date: testDate(), Sector: "Technology",
		Factors: fs, Lifecycle: cls, DividendPayer: true,
	}
	got, err := c.Calculate(in)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// Hand-computed weighted mean over all 13 factors.
	want := 0.0
	total := 0.0
	for _, factor := range contracts.AllFactors {
		w := cls.WeightsApplied.Get(factor)
		want += *fs.Get(factor) * w
		total += w
	}
	want /= total

	if math.Abs(got.RawScore-want) > 1e-9 {
		t.Errorf("raw score = %v, want %v", got.RawScore, want)
	}
}

func TestCalculateMissingFactorStillValidMean(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())

	full := Input{
		Ticker: "MSFT", Date: testDate(), Sector: "Technology",
		Factors: fullFactors(70), Lifecycle: matureClassification(), DividendPayer: true,
	}
	withGap := full
	withGap.Factors = fullFactors(70)
	withGap.Factors.NewsSentiment = nil

	fullScore, err := c.Calculate(full)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	gapScore, err := c.Calculate(withGap)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	// All present factors are 70, so the restricted mean is still 70.
	if math.Abs(gapScore.RawScore-70) > 1e-9 {
		t.Errorf("raw score = %v, want 70", gapScore.RawScore)
	}
	if gapScore.DataCompleteness >= fullScore.DataCompleteness {
		t.Error("dropping a factor must lower completeness")
	}
}

func TestCalculateNoFactors(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())

	_, err := c.Calculate(Input{
		Ticker: "EMPTY", Date: testDate(),
		Lifecycle: matureClassification(), DividendPayer: true,
	})
	if !errors.Is(err, ErrNoFactors) {
		t.Errorf("want ErrNoFactors, got %v", err)
	}
}

func TestCalculateCompletenessGate(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())

	// Only 3 of 13 factors (~23%): below the 40% gate.
	var fs contracts.FactorScores
	fs.Value = f(60)
	fs.Growth = f(55)
	fs.Momentum = f(70)

	_, err := c.Calculate(Input{
		Ticker: "THIN", Date: testDate(),
		Factors: fs, Lifecycle: matureClassification(), DividendPayer: true,
	})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("want ErrInsufficientData, got %v", err)
	}
}

func TestCalculateCoreFactorGate(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())

	// Plenty of factors but only one core factor (value).
	var fs contracts.FactorScores
	fs.Value = f(60)
	fs.Momentum = f(70)
	fs.AnalystConsensus = f(65)
	fs.NewsSentiment = f(50)
	fs.Technical = f(55)
	fs.EarningsRevisions = f(45)

	_, err := c.Calculate(Input{
		Ticker: "NOCORE", Date: testDate(),
		Factors: fs, Lifecycle: matureClassification(), DividendPayer: true,
	})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("want ErrInsufficientData, got %v", err)
	}
}

func TestCompletenessExcludesDividendForNonPayers(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())

	fs := fullFactors(60)
	fs.DividendQuality = nil

	payer := Input{
		Ticker: "P", Date: testDate(),
		Factors: fs, Lifecycle: matureClassification(), DividendPayer: true,
	}
	nonPayer := payer
	nonPayer.DividendPayer = false

	payerScore, err := c.Calculate(payer)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	nonPayerScore, err := c.Calculate(nonPayer)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if math.Abs(nonPayerScore.DataCompleteness-1.0) > 1e-9 {
		t.Errorf("non-payer completeness = %v, want 1.0", nonPayerScore.DataCompleteness)
	}
	if payerScore.DataCompleteness >= 1.0 {
		t.Errorf("payer missing dividend quality should have completeness < 1, got %v", payerScore.DataCompleteness)
	}
}

func TestRatingBandBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  contracts.Rating
	}{
		{100, contracts.RatingStrongBuy},
		{80.0, contracts.RatingStrongBuy},
		{79.99, contracts.RatingBuy},
		{65.0, contracts.RatingBuy},
		{64.99, contracts.RatingHold},
		{50.0, contracts.RatingHold},
		{49.99, contracts.RatingUnderperform},
		{35.0, contracts.RatingUnderperform},
		{34.99, contracts.RatingSell},
		{1, contracts.RatingSell},
	}
	for _, tt := range tests {
		if got := contracts.RatingFor(tt.score); got != tt.want {
			t.Errorf("RatingFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCalculateRatingFromPublishedScore(t *testing.T) {
	c := NewCalculator(scoringconfig.Default())

	// Raw 82 smoothed against previous 70: published =
	// 0.7*82 + 0.3*70 = 78.4, which is Buy, not Strong Buy.
	in := Input{
		Ticker: "SMTH", Date: testDate(), Sector: "Technology",
		Factors:       fullFactors(82),
		Lifecycle:     matureClassification(),
		Previous:      &PreviousScore{Score: 70, Date: testDate().AddDate(0, 0, -1)},
		DividendPayer: true,
	}
	got, err := c.Calculate(in)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if math.Abs(got.OverallScore-78.4) > 1e-9 {
		t.Errorf("overall = %v, want 78.4", got.OverallScore)
	}
	if got.Rating != contracts.RatingBuy {
		t.Errorf("rating = %s, want Buy (from published, not raw)", got.Rating)
	}
	if math.Abs(got.RawScore-82) > 1e-9 {
		t.Errorf("raw = %v, want 82 preserved", got.RawScore)
	}
	if !got.SmoothingApplied {
		t.Error("smoothing_applied should be true")
	}
}

func TestConfidenceLevels(t *testing.T) {
	tests := []struct {
		completeness float64
		want         contracts.ConfidenceLevel
	}{
		{1.0, contracts.ConfidenceHigh},
		{0.8, contracts.ConfidenceHigh},
		{0.79, contracts.ConfidenceMedium},
		{0.5, contracts.ConfidenceMedium},
		{0.49, contracts.ConfidenceLow},
	}
	for _, tt := range tests {
		if got := contracts.ConfidenceFor(tt.completeness); got != tt.want {
			t.Errorf("ConfidenceFor(%v) = %s, want %s", tt.completeness, got, tt.want)
		}
	}
}
