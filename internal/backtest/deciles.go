package backtest

import (
	"sort"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// FormDeciles buckets tickers into 10 score-ranked portfolios.
// Decile 0 of the returned array holds the highest scores (published
// as decile 1). Sorting is score descending with ticker ascending as
// the tie-break, so identical inputs always produce identical buckets.
// When the universe does not divide evenly, the first
// (len mod 10) buckets get one extra name; every ticker lands in
// exactly one bucket.
func FormDeciles(scores map[string]float64) [contracts.NumDeciles][]string {
	type ranked struct {
		ticker string
		score  float64
	}

	all := make([]ranked, 0, len(scores))
	for ticker, score := range scores {
		all = append(all, ranked{ticker, score})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].ticker < all[j].ticker
	})

	var deciles [contracts.NumDeciles][]string
	n := len(all)
	base := n / contracts.NumDeciles
	extra := n % contracts.NumDeciles

	idx := 0
	for d := 0; d < contracts.NumDeciles; d++ {
		size := base
		if d < extra {
			size++
		}
		for i := 0; i < size; i++ {
			deciles[d] = append(deciles[d], all[idx].ticker)
			idx++
		}
	}

	return deciles
}

// Turnover measures how much of a portfolio changed versus its
// previous composition: 1 - |prev ∩ curr| / max(|prev|, |curr|).
// An initial portfolio is full turnover.
func Turnover(previous, current []string) float64 {
	if len(previous) == 0 {
		return 1.0
	}
	if len(current) == 0 {
		return 0.0
	}

	prevSet := make(map[string]bool, len(previous))
	for _, t := range previous {
		prevSet[t] = true
	}
	unchanged := 0
	for _, t := range current {
		if prevSet[t] {
			unchanged++
		}
	}

	total := len(previous)
	if len(current) > total {
		total = len(current)
	}
	return 1 - float64(unchanged)/float64(total)
}
