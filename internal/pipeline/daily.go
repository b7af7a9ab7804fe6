// Package pipeline orchestrates the daily scoring run: load inputs
// and classify lifecycles in parallel, score every ticker, then rank
// each sector cohort and persist scores, changes, and classifications.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/explain"
	"github.com/investorcenter/ic-engine/internal/lifecycle"
	"github.com/investorcenter/ic-engine/internal/score"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// TickerData is one ticker's scoring input for a run date.
type TickerData struct {
	Ticker        string
	Sector        string
	DividendPayer bool
	Factors       contracts.FactorScores
	Metrics       contracts.LifecycleMetrics
}

// DataSource serves the universe and per-ticker scoring inputs.
type DataSource interface {
	Universe(ctx context.Context, asOf time.Time) ([]string, error)
	TickerData(ctx context.Context, ticker string, asOf time.Time) (*TickerData, error)
}

// ScoreStore persists run output and serves scoring history.
type ScoreStore interface {
	LatestScore(ctx context.Context, ticker string, before time.Time) (*contracts.ICScore, error)
	EventsSince(ctx context.Context, ticker string, since time.Time) ([]contracts.ScoreEvent, error)
	SaveClassifications(ctx context.Context, rows []*contracts.LifecycleClassification) error
	SaveScores(ctx context.Context, rows []*contracts.ICScore) error
	SaveChanges(ctx context.Context, rows []*contracts.ScoreChange) error
}

// RunStats summarizes one daily run.
type RunStats struct {
	Universe int
	Scored   int
	Skipped  int // gated out: no factors or insufficient data
	Failed   int // data/source errors
	Changes  int
	Elapsed  time.Duration
}

// Pipeline wires the scoring stages together.
type Pipeline struct {
	cfg        *scoringconfig.Config
	configHash string
	data       DataSource
	store      ScoreStore
	classifier *lifecycle.Classifier
	calculator *score.Calculator
	explainer  *explain.Explainer
	workers    int
	log        *logger.Logger
}

// New builds a Pipeline. workers caps scoring concurrency.
func New(cfg *scoringconfig.Config, data DataSource, store ScoreStore, workers int, log *logger.Logger) *Pipeline {
	hash, err := scoringconfig.Hash(cfg)
	if err != nil {
		hash = "unknown"
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		cfg:        cfg,
		configHash: hash,
		data:       data,
		store:      store,
		classifier: lifecycle.New(cfg),
		calculator: score.NewCalculator(cfg),
		explainer:  explain.New(cfg),
		workers:    workers,
		log:        log,
	}
}

type tickerResult struct {
	score          *contracts.ICScore
	change         *contracts.ScoreChange
	classification *contracts.LifecycleClassification
	skipped        bool
	err            error
}

// ComputeDailyScores runs the full scoring pass for one date: one
// ICScore per eligible ticker plus derived change rows. Per-ticker
// failures are logged and counted, never fatal; the run only fails on
// universe or persistence errors.
func (p *Pipeline) ComputeDailyScores(ctx context.Context, asOf time.Time) (*RunStats, error) {
	started := time.Now()

	// 1. Load the universe
	universe, err := p.data.Universe(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	p.log.WithFields(map[string]interface{}{
		"as_of":    asOf.Format("2006-01-02"),
		"universe": len(universe),
		"workers":  p.workers,
	}).Info("daily scoring started")

	// 2. Score tickers through a worker pool
	tickerCh := make(chan string, len(universe))
	resultCh := make(chan tickerResult, len(universe))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				resultCh <- p.scoreTicker(ctx, ticker, asOf)
			}
		}()
	}
	for _, ticker := range universe {
		tickerCh <- ticker
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// 3. Collect results
	stats := &RunStats{Universe: len(universe)}
	var (
		scores          []*contracts.ICScore
		changes         []*contracts.ScoreChange
		classifications []*contracts.LifecycleClassification
	)
	for res := range resultCh {
		switch {
		case res.err != nil:
			stats.Failed++
		case res.skipped:
			stats.Skipped++
		default:
			scores = append(scores, res.score)
			classifications = append(classifications, res.classification)
			if res.change != nil {
				changes = append(changes, res.change)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("daily scoring cancelled: %w", err)
	}

	// 4. Rank sector cohorts now the whole cross-section exists
	rankSectorCohorts(scores)

	// 5. Persist
	if err := p.store.SaveClassifications(ctx, classifications); err != nil {
		return nil, fmt.Errorf("save classifications: %w", err)
	}
	if err := p.store.SaveScores(ctx, scores); err != nil {
		return nil, fmt.Errorf("save scores: %w", err)
	}
	if err := p.store.SaveChanges(ctx, changes); err != nil {
		return nil, fmt.Errorf("save changes: %w", err)
	}

	stats.Scored = len(scores)
	stats.Changes = len(changes)
	stats.Elapsed = time.Since(started)

	p.log.WithFields(map[string]interface{}{
		"scored":  stats.Scored,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
		"changes": stats.Changes,
		"elapsed": stats.Elapsed.String(),
	}).Info("daily scoring completed")

	return stats, nil
}

func (p *Pipeline) scoreTicker(ctx context.Context, ticker string, asOf time.Time) tickerResult {
	data, err := p.data.TickerData(ctx, ticker, asOf)
	if err != nil {
		p.log.WithError(err).WithField("ticker", ticker).Warn("loading ticker data failed")
		return tickerResult{err: err}
	}

	classification := p.classifier.Classify(ticker, data.Metrics, asOf)

	prevRow, err := p.store.LatestScore(ctx, ticker, asOf)
	if err != nil {
		p.log.WithError(err).WithField("ticker", ticker).Warn("loading previous score failed")
		return tickerResult{err: err}
	}

	var previous *score.PreviousScore
	eventsSince := asOf.AddDate(0, 0, -p.cfg.Smoothing.LookbackDays)
	if prevRow != nil {
		previous = &score.PreviousScore{Score: prevRow.OverallScore, Date: prevRow.Date}
		eventsSince = prevRow.Date
	}

	events, err := p.store.EventsSince(ctx, ticker, eventsSince)
	if err != nil {
		p.log.WithError(err).WithField("ticker", ticker).Warn("loading events failed")
		return tickerResult{err: err}
	}

	row, err := p.calculator.Calculate(score.Input{
		Ticker:        ticker,
		Date:          asOf,
		Sector:        data.Sector,
		Factors:       data.Factors,
		Lifecycle:     classification,
		Previous:      previous,
		Events:        events,
		DividendPayer: data.DividendPayer,
	})
	if err != nil {
		if errors.Is(err, score.ErrNoFactors) || errors.Is(err, score.ErrInsufficientData) {
			return tickerResult{skipped: true}
		}
		p.log.WithError(err).WithField("ticker", ticker).Warn("scoring failed")
		return tickerResult{err: err}
	}
	row.Metadata = map[string]any{"config_hash": p.configHash}

	var change *contracts.ScoreChange
	if prevRow != nil {
		change = p.explainer.Explain(prevRow, row, events)
	}

	return tickerResult{
		score:          row,
		change:         change,
		classification: &classification,
	}
}

// rankSectorCohorts assigns sector_rank, sector_total, and
// sector_percentile by ranking overall_score within each sector of
// this run. Ties break by ticker for determinism.
func rankSectorCohorts(scores []*contracts.ICScore) {
	bySector := make(map[string][]*contracts.ICScore)
	for _, s := range scores {
		bySector[s.Sector] = append(bySector[s.Sector], s)
	}

	for _, cohort := range bySector {
		sort.Slice(cohort, func(i, j int) bool {
			if cohort[i].OverallScore != cohort[j].OverallScore {
				return cohort[i].OverallScore > cohort[j].OverallScore
			}
			return cohort[i].Ticker < cohort[j].Ticker
		})
		total := len(cohort)
		for i, s := range cohort {
			rank := i + 1
			s.SectorRank = &rank
			s.SectorTotal = &total
			pct := float64(total-rank) / float64(total) * 100
			s.SectorPercentile = &pct
		}
	}
}
