package backtest

import (
	"fmt"
	"math"
	"reflect"
	"testing"
)

func TestFormDecilesEvenSplit(t *testing.T) {
	scores := make(map[string]float64, 100)
	for i := 0; i < 100; i++ {
		scores[fmt.Sprintf("T%03d", i)] = float64(i)
	}

	deciles := FormDeciles(scores)

	total := 0
	for d, bucket := range deciles {
		if len(bucket) != 10 {
			t.Errorf("decile %d has %d tickers, want 10", d+1, len(bucket))
		}
		total += len(bucket)
	}
	if total != 100 {
		t.Errorf("partition covers %d tickers, want 100", total)
	}

	// Highest scores land in decile 1.
	if deciles[0][0] != "T099" {
		t.Errorf("top of decile 1 = %s, want T099", deciles[0][0])
	}
	if deciles[9][len(deciles[9])-1] != "T000" {
		t.Errorf("bottom of decile 10 = %s, want T000", deciles[9][len(deciles[9])-1])
	}
}

func TestFormDecilesRemainderSpread(t *testing.T) {
	scores := make(map[string]float64, 103)
	for i := 0; i < 103; i++ {
		scores[fmt.Sprintf("T%03d", i)] = float64(i)
	}

	deciles := FormDeciles(scores)

	total := 0
	for d, bucket := range deciles {
		want := 10
		if d < 3 {
			want = 11
		}
		if len(bucket) != want {
			t.Errorf("decile %d has %d tickers, want %d", d+1, len(bucket), want)
		}
		total += len(bucket)
	}
	if total != 103 {
		t.Errorf("partition covers %d tickers, want 103", total)
	}
}

func TestFormDecilesFewerTickersThanBuckets(t *testing.T) {
	scores := map[string]float64{"A": 90, "B": 80, "C": 70}

	deciles := FormDeciles(scores)

	total := 0
	for _, bucket := range deciles {
		total += len(bucket)
	}
	if total != 3 {
		t.Errorf("partition covers %d tickers, want 3", total)
	}
	if len(deciles[0]) != 1 || deciles[0][0] != "A" {
		t.Errorf("decile 1 = %v, want [A]", deciles[0])
	}
}

func TestFormDecilesTieBreakDeterministic(t *testing.T) {
	scores := map[string]float64{
		"ZZZ": 50, "AAA": 50, "MMM": 50, "BBB": 50, "CCC": 50,
		"DDD": 50, "EEE": 50, "FFF": 50, "GGG": 50, "HHH": 50,
	}

	first := FormDeciles(scores)
	for i := 0; i < 20; i++ {
		again := FormDeciles(scores)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("identical scores must bucket identically every time")
		}
	}
	// Ties order by ticker ascending.
	if first[0][0] != "AAA" {
		t.Errorf("first ticker = %s, want AAA", first[0][0])
	}
}

func TestTurnover(t *testing.T) {
	tests := []struct {
		name     string
		previous []string
		current  []string
		want     float64
	}{
		{"first period is full turnover", nil, []string{"A", "B"}, 1.0},
		{"identical holdings", []string{"A", "B"}, []string{"A", "B"}, 0.0},
		{"complete replacement", []string{"A", "B"}, []string{"C", "D"}, 1.0},
		{"half replaced", []string{"A", "B", "C", "D"}, []string{"A", "B", "E", "F"}, 0.5},
		{"shrinking portfolio", []string{"A", "B", "C", "D"}, []string{"A", "B"}, 0.5},
		{"current empty", []string{"A", "B"}, nil, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Turnover(tt.previous, tt.current); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Turnover = %v, want %v", got, tt.want)
			}
		})
	}
}
