// Package data wires the scoring and backtest engines to PostgreSQL,
// Redis, and the external market data API.
package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investorcenter/ic-engine/internal/backtest"
	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/data/repos"
	"github.com/investorcenter/ic-engine/internal/pipeline"
)

// DBDataSource serves the scoring universe and per-ticker inputs from
// PostgreSQL. Implements pipeline.DataSource.
type DBDataSource struct {
	pool *pgxpool.Pool
}

// NewDBDataSource creates a new database-backed data source.
func NewDBDataSource(pool *pgxpool.Pool) *DBDataSource {
	return &DBDataSource{pool: pool}
}

// Universe returns every active ticker that has at least one factor
// score dated at or before asOf.
func (d *DBDataSource) Universe(ctx context.Context, asOf time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT c.ticker
		FROM companies c
		JOIN factor_scores f ON f.ticker = c.ticker AND f.date <= $1
		WHERE c.active
		ORDER BY c.ticker
	`
	rows, err := d.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan universe row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TickerData loads one ticker's scoring inputs as of a date: company
// facts, lifecycle fundamentals, and the latest value per factor.
func (d *DBDataSource) TickerData(ctx context.Context, ticker string, asOf time.Time) (*pipeline.TickerData, error) {
	td := &pipeline.TickerData{Ticker: ticker}

	companyQuery := `
		SELECT COALESCE(c.sector, ''), c.pays_dividend,
		       c.revenue_growth, c.net_margin, c.pe_ratio, c.market_cap,
		       sp.p50
		FROM companies c
		LEFT JOIN sector_percentiles sp
		       ON sp.sector = c.sector AND sp.metric = 'pe_ratio'
		WHERE c.ticker = $1
	`
	err := d.pool.QueryRow(ctx, companyQuery, ticker).Scan(
		&td.Sector, &td.DividendPayer,
		&td.Metrics.RevenueGrowth, &td.Metrics.NetMargin,
		&td.Metrics.PERatio, &td.Metrics.MarketCap,
		&td.Metrics.SectorPEMedian,
	)
	if err != nil {
		return nil, fmt.Errorf("query company %s: %w", ticker, err)
	}

	factorQuery := `
		SELECT DISTINCT ON (factor) factor, score
		FROM factor_scores
		WHERE ticker = $1 AND date <= $2
		ORDER BY factor, date DESC
	`
	rows, err := d.pool.Query(ctx, factorQuery, ticker, asOf)
	if err != nil {
		return nil, fmt.Errorf("query factor scores for %s: %w", ticker, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			factor string
			score  float64
		)
		if err := rows.Scan(&factor, &score); err != nil {
			return nil, fmt.Errorf("scan factor score: %w", err)
		}
		// Unknown factor names are ignored: an upstream pipeline may
		// write factors this release does not score yet.
		td.Factors.Set(contracts.Factor(factor), contracts.Float(score))
	}
	return td, rows.Err()
}

// SectorMetricValues returns the latest value per ticker for one
// metric, grouped by sector. Feeds the sector percentile refresh.
func (d *DBDataSource) SectorMetricValues(ctx context.Context, metric string, asOf time.Time) (map[string][]float64, error) {
	query := `
		SELECT COALESCE(c.sector, ''), m.value
		FROM (
			SELECT DISTINCT ON (ticker) ticker, value
			FROM company_metrics
			WHERE metric = $1 AND date <= $2
			ORDER BY ticker, date DESC
		) m
		JOIN companies c ON c.ticker = m.ticker
		WHERE c.active
	`
	rows, err := d.pool.Query(ctx, query, metric, asOf)
	if err != nil {
		return nil, fmt.Errorf("query metric values for %s: %w", metric, err)
	}
	defer rows.Close()

	out := make(map[string][]float64)
	for rows.Next() {
		var (
			sector string
			value  float64
		)
		if err := rows.Scan(&sector, &value); err != nil {
			return nil, fmt.Errorf("scan metric value: %w", err)
		}
		out[sector] = append(out[sector], value)
	}
	return out, rows.Err()
}

// Store bundles the per-table repositories into the single persistence
// surface the daily pipeline writes through. Implements
// pipeline.ScoreStore.
type Store struct {
	Scores    *repos.ScoreRepository
	Changes   *repos.ChangeRepository
	Events    *repos.EventRepository
	Lifecycle *repos.LifecycleRepository
}

// NewStore creates a Store over one connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Scores:    repos.NewScoreRepository(pool),
		Changes:   repos.NewChangeRepository(pool),
		Events:    repos.NewEventRepository(pool),
		Lifecycle: repos.NewLifecycleRepository(pool),
	}
}

func (s *Store) LatestScore(ctx context.Context, ticker string, before time.Time) (*contracts.ICScore, error) {
	return s.Scores.LatestScore(ctx, ticker, before)
}

func (s *Store) EventsSince(ctx context.Context, ticker string, since time.Time) ([]contracts.ScoreEvent, error) {
	return s.Events.EventsSince(ctx, ticker, since)
}

func (s *Store) SaveClassifications(ctx context.Context, rows []*contracts.LifecycleClassification) error {
	return s.Lifecycle.SaveClassifications(ctx, rows)
}

func (s *Store) SaveScores(ctx context.Context, rows []*contracts.ICScore) error {
	return s.Scores.SaveScores(ctx, rows)
}

func (s *Store) SaveChanges(ctx context.Context, rows []*contracts.ScoreChange) error {
	return s.Changes.SaveChanges(ctx, rows)
}

// ScoreSource adapts the score repository to the backtest engine's
// point-in-time read. Implements backtest.ScoreSource.
type ScoreSource struct {
	repo *repos.ScoreRepository
}

// NewScoreSource creates a backtest score source over the score
// repository.
func NewScoreSource(repo *repos.ScoreRepository) *ScoreSource {
	return &ScoreSource{repo: repo}
}

func (s *ScoreSource) ScoresAsOf(ctx context.Context, asOf time.Time) ([]backtest.ScoreObservation, error) {
	rows, err := s.repo.ScoresAsOf(ctx, asOf)
	if err != nil {
		return nil, err
	}
	out := make([]backtest.ScoreObservation, 0, len(rows))
	for _, r := range rows {
		out = append(out, backtest.ScoreObservation{
			Ticker:       r.Ticker,
			Score:        r.Score,
			RawScore:     r.RawScore,
			Sector:       r.Sector,
			MarketCap:    r.MarketCap,
			CalculatedAt: r.CalculatedAt,
		})
	}
	return out, nil
}
