package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// ScoreRepository persists and serves IC Score rows.
// SSOT: every read and write of ic_scores goes through here.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new score repository.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

const scoreColumns = `
	ticker, date, overall_score, raw_score, rating, lifecycle_stage,
	value_score, growth_score, profitability_score, financial_health_score,
	momentum_score, analyst_consensus_score, insider_activity_score,
	institutional_score, news_sentiment_score, technical_score,
	earnings_revisions_score, historical_valuation_score, dividend_quality_score,
	weights_used, sector, sector_rank, sector_total, sector_percentile,
	confidence_level, data_completeness, previous_score, smoothing_applied,
	reset_reason, metadata, calculated_at`

// SaveScores inserts one run's score rows in a single batch. Rows are
// immutable once calculated: a conflicting (ticker, date) insert is an
// error, not an upsert.
func (r *ScoreRepository) SaveScores(ctx context.Context, rows []*contracts.ICScore) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO ic_scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24,
		        $25, $26, $27, $28, $29, $30, $31)
	`

	batch := &pgx.Batch{}
	for _, s := range rows {
		weights, err := json.Marshal(s.WeightsUsed)
		if err != nil {
			return fmt.Errorf("marshal weights for %s: %w", s.Ticker, err)
		}
		metadata, err := json.Marshal(s.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", s.Ticker, err)
		}

		batch.Queue(query,
			s.Ticker, s.Date, s.OverallScore, s.RawScore, string(s.Rating), string(s.Lifecycle),
			s.Factors.Value, s.Factors.Growth, s.Factors.Profitability, s.Factors.FinancialHealth,
			s.Factors.Momentum, s.Factors.AnalystConsensus, s.Factors.InsiderActivity,
			s.Factors.Institutional, s.Factors.NewsSentiment, s.Factors.Technical,
			s.Factors.EarningsRevisions, s.Factors.HistoricalValuation, s.Factors.DividendQuality,
			weights, s.Sector, s.SectorRank, s.SectorTotal, s.SectorPercentile,
			string(s.Confidence), s.DataCompleteness, s.PreviousScore, s.SmoothingApplied,
			s.ResetReason, metadata, s.CalculatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert score batch: %w", err)
		}
	}
	return nil
}

// GetScore returns one ticker's score for an exact date, or nil.
func (r *ScoreRepository) GetScore(ctx context.Context, ticker string, date time.Time) (*contracts.ICScore, error) {
	query := `SELECT ` + scoreColumns + ` FROM ic_scores WHERE ticker = $1 AND date = $2`
	return r.queryOne(ctx, query, ticker, date)
}

// LatestScore returns the most recent score strictly before a date,
// or nil when the ticker has no history.
func (r *ScoreRepository) LatestScore(ctx context.Context, ticker string, before time.Time) (*contracts.ICScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM ic_scores
		WHERE ticker = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`
	return r.queryOne(ctx, query, ticker, before)
}

// History returns a ticker's scores newest first, capped at limit.
func (r *ScoreRepository) History(ctx context.Context, ticker string, limit int) ([]*contracts.ICScore, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM ic_scores
		WHERE ticker = $1
		ORDER BY date DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	var out []*contracts.ICScore
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PointInTimeRow is a score joined with the company facts a backtest
// filters on.
type PointInTimeRow struct {
	Ticker       string
	Score        float64
	RawScore     float64
	Sector       string
	MarketCap    float64
	CalculatedAt time.Time
}

// ScoresAsOf returns the latest score per ticker with date <= asOf.
// Point-in-time by construction; the backtest engine still re-checks.
func (r *ScoreRepository) ScoresAsOf(ctx context.Context, asOf time.Time) ([]PointInTimeRow, error) {
	query := `
		SELECT DISTINCT ON (s.ticker)
			s.ticker, s.overall_score, s.raw_score,
			COALESCE(s.sector, ''), COALESCE(c.market_cap, 0), s.date
		FROM ic_scores s
		LEFT JOIN companies c ON c.ticker = s.ticker
		WHERE s.date <= $1
		ORDER BY s.ticker, s.date DESC
	`
	rows, err := r.pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("query scores as of %s: %w", asOf.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var out []PointInTimeRow
	for rows.Next() {
		var row PointInTimeRow
		if err := rows.Scan(&row.Ticker, &row.Score, &row.RawScore,
			&row.Sector, &row.MarketCap, &row.CalculatedAt); err != nil {
			return nil, fmt.Errorf("scan point-in-time row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *ScoreRepository) queryOne(ctx context.Context, query string, args ...any) (*contracts.ICScore, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query score: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return scanScore(rows)
}

func scanScore(rows pgx.Rows) (*contracts.ICScore, error) {
	var (
		s            contracts.ICScore
		rating       string
		stage        string
		confidence   string
		weightsJSON  []byte
		metadataJSON []byte
	)
	err := rows.Scan(
		&s.Ticker, &s.Date, &s.OverallScore, &s.RawScore, &rating, &stage,
		&s.Factors.Value, &s.Factors.Growth, &s.Factors.Profitability, &s.Factors.FinancialHealth,
		&s.Factors.Momentum, &s.Factors.AnalystConsensus, &s.Factors.InsiderActivity,
		&s.Factors.Institutional, &s.Factors.NewsSentiment, &s.Factors.Technical,
		&s.Factors.EarningsRevisions, &s.Factors.HistoricalValuation, &s.Factors.DividendQuality,
		&weightsJSON, &s.Sector, &s.SectorRank, &s.SectorTotal, &s.SectorPercentile,
		&confidence, &s.DataCompleteness, &s.PreviousScore, &s.SmoothingApplied,
		&s.ResetReason, &metadataJSON, &s.CalculatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan score row: %w", err)
	}

	s.Rating = contracts.Rating(rating)
	s.Lifecycle = contracts.Stage(stage)
	s.Confidence = contracts.ConfidenceLevel(confidence)

	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &s.WeightsUsed); err != nil {
			return nil, fmt.Errorf("unmarshal weights: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &s, nil
}

// ErrNotFound is returned by lookups that require a row.
var ErrNotFound = errors.New("not found")
