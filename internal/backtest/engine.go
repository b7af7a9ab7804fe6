// Package backtest measures whether the score actually predicts
// returns: it forms score-ranked decile portfolios at historical
// rebalance dates using only data available at each date, holds them
// through the period, and aggregates the per-decile performance.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

var (
	// ErrLookAhead means a score source handed back data stamped
	// after the as-of date. The whole run is invalid, not just the
	// period: fail loudly.
	ErrLookAhead = errors.New("look-ahead bias: data newer than as-of date")

	// ErrNoPeriods means the requested range produced no rebalance
	// windows.
	ErrNoPeriods = errors.New("date range produced no rebalance periods")

	// ErrEmptyUniverse means a rebalance date had no eligible scored
	// tickers. The whole run fails; periods are never silently
	// skipped.
	ErrEmptyUniverse = errors.New("no eligible scores in universe for period")
)

// ScoreObservation is one ticker's point-in-time score snapshot.
type ScoreObservation struct {
	Ticker       string
	Score        float64 // published (smoothed)
	RawScore     float64
	Sector       string
	MarketCap    float64
	CalculatedAt time.Time
}

// ScoreSource serves point-in-time scores: every observation returned
// for asOf must have been calculated on or before asOf.
type ScoreSource interface {
	ScoresAsOf(ctx context.Context, asOf time.Time) ([]ScoreObservation, error)
}

// ReturnSource serves holding-period total returns.
type ReturnSource interface {
	// PeriodReturn returns the total return of ticker over
	// [start, end]. ok is false when price data is missing; the
	// ticker is then excluded from the portfolio for that period.
	PeriodReturn(ctx context.Context, ticker string, start, end time.Time) (ret float64, ok bool, err error)
}

// ProgressFunc is called after each completed period.
type ProgressFunc func(done, total int)

// Engine runs backtests against injected score and return sources.
type Engine struct {
	scores  ScoreSource
	returns ReturnSource
	log     *logger.Logger
}

// NewEngine builds an Engine.
func NewEngine(scores ScoreSource, returns ReturnSource, log *logger.Logger) *Engine {
	return &Engine{scores: scores, returns: returns, log: log}
}

// Run executes one backtest. Cancelling ctx stops the run between
// periods; the partial work is discarded.
func (e *Engine) Run(ctx context.Context, cfg contracts.BacktestConfig, progress ProgressFunc) (*contracts.BacktestSummary, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	periods := GeneratePeriods(cfg.StartDate, cfg.EndDate, cfg.Frequency)
	if len(periods) == 0 {
		return nil, ErrNoPeriods
	}

	e.log.WithFields(map[string]interface{}{
		"start":     cfg.StartDate.Format("2006-01-02"),
		"end":       cfg.EndDate.Format("2006-01-02"),
		"frequency": cfg.Frequency,
		"periods":   len(periods),
	}).Info("backtest started")

	var (
		results      []contracts.PeriodResult
		prevHoldings [contracts.NumDeciles][]string
	)

	for i, period := range periods {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest cancelled at period %d: %w", i+1, err)
		}

		result, holdings, err := e.runPeriod(ctx, cfg, period, prevHoldings)
		if err != nil {
			return nil, err
		}

		results = append(results, *result)
		prevHoldings = holdings

		if progress != nil {
			progress(i+1, len(periods))
		}
	}

	summary := e.aggregate(cfg, results)

	e.log.WithFields(map[string]interface{}{
		"periods_used": len(results),
		"monotonicity": summary.Monotonicity,
		"hit_rate":     summary.HitRate,
	}).Info("backtest complete")

	return summary, nil
}

func (e *Engine) runPeriod(ctx context.Context, cfg contracts.BacktestConfig, period Period, prevHoldings [contracts.NumDeciles][]string) (*contracts.PeriodResult, [contracts.NumDeciles][]string, error) {
	var empty [contracts.NumDeciles][]string

	observations, err := e.scores.ScoresAsOf(ctx, period.Start)
	if err != nil {
		return nil, empty, fmt.Errorf("scores as of %s: %w", period.Start.Format("2006-01-02"), err)
	}

	eligible := make(map[string]float64)
	for _, obs := range observations {
		if obs.CalculatedAt.After(period.Start) {
			return nil, empty, fmt.Errorf("%s calculated %s, as of %s: %w",
				obs.Ticker, obs.CalculatedAt.Format("2006-01-02"),
				period.Start.Format("2006-01-02"), ErrLookAhead)
		}
		if !eligibleObservation(cfg, obs) {
			continue
		}
		score := obs.Score
		if !cfg.UseSmoothed {
			score = obs.RawScore
		}
		eligible[obs.Ticker] = score
	}

	if len(eligible) == 0 {
		return nil, empty, fmt.Errorf("period starting %s: %w",
			period.Start.Format("2006-01-02"), ErrEmptyUniverse)
	}

	deciles := FormDeciles(eligible)

	result := contracts.PeriodResult{
		Start:        period.Start,
		End:          period.End,
		UniverseSize: len(eligible),
	}

	costPerTurnover := cfg.CostPerUnitTurnover()
	for d := 0; d < contracts.NumDeciles; d++ {
		holdings := deciles[d]

		gross := 0.0
		counted := 0
		for _, ticker := range holdings {
			ret, ok, err := e.returns.PeriodReturn(ctx, ticker, period.Start, period.End)
			if err != nil {
				return nil, empty, fmt.Errorf("return for %s: %w", ticker, err)
			}
			if !ok {
				continue
			}
			gross += ret
			counted++
		}
		if counted > 0 {
			gross /= float64(counted)
		}

		turnover := Turnover(prevHoldings[d], holdings)
		result.Returns[d] = gross - costPerTurnover*turnover
		result.Turnover[d] = turnover
		if len(holdings) > 0 {
			scoreTotal := 0.0
			for _, t := range holdings {
				scoreTotal += eligible[t]
			}
			result.AvgScores[d] = scoreTotal / float64(len(holdings))
		}
	}

	if cfg.BenchmarkTicker != "" {
		bench, ok, err := e.returns.PeriodReturn(ctx, cfg.BenchmarkTicker, period.Start, period.End)
		if err != nil {
			return nil, empty, fmt.Errorf("benchmark return: %w", err)
		}
		if ok {
			result.Benchmark = bench
		}
	}

	return &result, deciles, nil
}

func eligibleObservation(cfg contracts.BacktestConfig, obs ScoreObservation) bool {
	if len(cfg.Universe) > 0 {
		found := false
		for _, t := range cfg.Universe {
			if t == obs.Ticker {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if cfg.MarketCapMin > 0 && obs.MarketCap < cfg.MarketCapMin {
		return false
	}
	if cfg.MarketCapMax > 0 && obs.MarketCap > cfg.MarketCapMax {
		return false
	}
	for _, s := range cfg.ExcludeSectors {
		if s == obs.Sector {
			return false
		}
	}
	return true
}

func (e *Engine) aggregate(cfg contracts.BacktestConfig, periods []contracts.PeriodResult) *contracts.BacktestSummary {
	summary := &contracts.BacktestSummary{
		Config:      cfg,
		Periods:     periods,
		GeneratedAt: time.Now().UTC(),
	}

	years := cfg.EndDate.Sub(cfg.StartDate).Hours() / 24 / 365.25
	ppy := cfg.Frequency.PeriodsPerYear()

	benchmarkReturns := make([]float64, len(periods))
	for i, p := range periods {
		benchmarkReturns[i] = p.Benchmark
	}

	annualized := make([]float64, contracts.NumDeciles)
	decileRank := make([]float64, contracts.NumDeciles)

	for d := 0; d < contracts.NumDeciles; d++ {
		returns := make([]float64, len(periods))
		turnoverSum, scoreSum := 0.0, 0.0
		for i, p := range periods {
			returns[i] = p.Returns[d]
			turnoverSum += p.Turnover[d]
			scoreSum += p.AvgScores[d]
		}

		total := compound(returns)
		perf := contracts.DecilePerformance{
			Decile:           d + 1,
			TotalReturn:      total,
			AnnualizedReturn: annualize(total, years),
			Volatility:       stdev(returns) * math.Sqrt(ppy),
			Sharpe:           sharpe(returns, ppy),
			MaxDrawdown:      maxDrawdown(returns),
			PeriodCount:      len(periods),
			PeriodReturns:    returns,
		}
		if len(periods) > 0 {
			perf.AvgTurnover = turnoverSum / float64(len(periods))
			perf.AvgScore = scoreSum / float64(len(periods))
		}
		summary.Deciles[d] = perf

		annualized[d] = perf.AnnualizedReturn
		decileRank[d] = float64(d + 1)
	}

	// Spearman between decile number and return is -1 when decile 1
	// strictly beats decile 2 beats decile 3...; flip the sign so +1
	// means "the score ladder works".
	if len(periods) > 0 {
		summary.Monotonicity = -spearman(decileRank, annualized)
	}

	hits, comparable := 0, 0
	for _, p := range periods {
		comparable++
		if p.Returns[0] > p.Returns[contracts.NumDeciles-1] {
			hits++
		}
	}
	if comparable > 0 {
		summary.HitRate = float64(hits) / float64(comparable)
	}

	summary.BenchmarkAnnualized = annualize(compound(benchmarkReturns), years)
	if len(periods) > 0 {
		top := summary.Deciles[0]
		summary.InformationRatio = informationRatio(
			top.AnnualizedReturn, summary.BenchmarkAnnualized,
			top.PeriodReturns, benchmarkReturns, ppy)
	}

	return summary
}

func validateConfig(cfg contracts.BacktestConfig) error {
	if !cfg.StartDate.Before(cfg.EndDate) {
		return fmt.Errorf("start date %s must precede end date %s",
			cfg.StartDate.Format("2006-01-02"), cfg.EndDate.Format("2006-01-02"))
	}
	if !contracts.ValidFrequency(cfg.Frequency) {
		return fmt.Errorf("unknown rebalance frequency %q", cfg.Frequency)
	}
	if cfg.TransactionCostBps < 0 || cfg.SlippageBps < 0 {
		return fmt.Errorf("costs must be non-negative")
	}
	return nil
}
