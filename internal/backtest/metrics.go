package backtest

import (
	"math"
	"sort"
)

// compound chains period returns into a total return.
func compound(returns []float64) float64 {
	total := 1.0
	for _, r := range returns {
		total *= 1 + r
	}
	return total - 1
}

// annualize converts a total return over `years` into a yearly rate.
func annualize(total, years float64) float64 {
	if years <= 0 {
		return 0
	}
	return math.Pow(1+total, 1/years) - 1
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdev is the sample standard deviation of period returns.
func stdev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// sharpe is the mean period return over its stdev, scaled to yearly.
func sharpe(returns []float64, periodsPerYear float64) float64 {
	sd := stdev(returns)
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(periodsPerYear)
}

// maxDrawdown is the largest peak-to-trough loss on the cumulative
// return series, as a positive fraction.
func maxDrawdown(returns []float64) float64 {
	cumulative, peak, maxDD := 1.0, 1.0, 0.0
	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (peak - cumulative) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// spearman is the rank correlation between two equal-length series,
// in [-1, 1]. Ties get averaged ranks.
func spearman(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0
	}
	rx := ranks(xs)
	ry := ranks(ys)

	// Pearson correlation on the ranks handles ties correctly.
	mx, my := mean(rx), mean(ry)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := rx[i]-mx, ry[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// ranks assigns 1-based ranks, averaging over ties.
func ranks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// Members of a tie group share the average rank.
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// informationRatio compares a portfolio against its benchmark:
// annualized excess return over annualized tracking error.
func informationRatio(portfolioAnn, benchmarkAnn float64, portfolioReturns, benchmarkReturns []float64, periodsPerYear float64) float64 {
	if len(portfolioReturns) != len(benchmarkReturns) || len(portfolioReturns) < 2 {
		return 0
	}
	diffs := make([]float64, len(portfolioReturns))
	for i := range portfolioReturns {
		diffs[i] = portfolioReturns[i] - benchmarkReturns[i]
	}
	te := stdev(diffs) * math.Sqrt(periodsPerYear)
	if te == 0 {
		return 0
	}
	return (portfolioAnn - benchmarkAnn) / te
}
