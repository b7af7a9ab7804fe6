package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// LifecycleRepository persists stage classifications.
type LifecycleRepository struct {
	pool *pgxpool.Pool
}

// NewLifecycleRepository creates a new lifecycle repository.
func NewLifecycleRepository(pool *pgxpool.Pool) *LifecycleRepository {
	return &LifecycleRepository{pool: pool}
}

// SaveClassifications upserts one run's classifications. A ticker keeps
// a single current row; history lives in ic_scores.lifecycle_stage.
func (r *LifecycleRepository) SaveClassifications(ctx context.Context, rows []*contracts.LifecycleClassification) error {
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO lifecycle_classifications (
			ticker, stage, confidence, metrics, weights_applied, classified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker) DO UPDATE SET
			stage = EXCLUDED.stage,
			confidence = EXCLUDED.confidence,
			metrics = EXCLUDED.metrics,
			weights_applied = EXCLUDED.weights_applied,
			classified_at = EXCLUDED.classified_at
	`

	batch := &pgx.Batch{}
	for _, c := range rows {
		metrics, err := json.Marshal(c.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics for %s: %w", c.Ticker, err)
		}
		weights, err := json.Marshal(c.WeightsApplied)
		if err != nil {
			return fmt.Errorf("marshal weights for %s: %w", c.Ticker, err)
		}
		batch.Queue(query, c.Ticker, string(c.Stage), c.Confidence, metrics, weights, c.ClassifiedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert classification batch: %w", err)
		}
	}
	return nil
}

// Latest returns a ticker's current classification, or nil.
func (r *LifecycleRepository) Latest(ctx context.Context, ticker string) (*contracts.LifecycleClassification, error) {
	query := `
		SELECT ticker, stage, confidence, metrics, weights_applied, classified_at
		FROM lifecycle_classifications
		WHERE ticker = $1
	`
	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query classification: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var (
		c           contracts.LifecycleClassification
		stage       string
		metricsJSON []byte
		weightsJSON []byte
	)
	if err := rows.Scan(&c.Ticker, &stage, &c.Confidence, &metricsJSON, &weightsJSON, &c.ClassifiedAt); err != nil {
		return nil, fmt.Errorf("scan classification row: %w", err)
	}
	c.Stage = contracts.Stage(stage)
	if err := json.Unmarshal(metricsJSON, &c.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(weightsJSON, &c.WeightsApplied); err != nil {
		return nil, fmt.Errorf("unmarshal weights: %w", err)
	}
	return &c, nil
}

// StageCounts returns how many tickers currently sit in each stage.
func (r *LifecycleRepository) StageCounts(ctx context.Context) (map[contracts.Stage]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT stage, COUNT(*) FROM lifecycle_classifications GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("query stage counts: %w", err)
	}
	defer rows.Close()

	out := make(map[contracts.Stage]int)
	for rows.Next() {
		var (
			stage string
			n     int
		)
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		out[contracts.Stage(stage)] = n
	}
	return out, rows.Err()
}
