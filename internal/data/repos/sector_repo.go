package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/pkg/redis"
)

const sectorStatsTTL = 24 * time.Hour

// SectorStatsRepository persists sector metric distributions with a
// read-through Redis cache. The cache may be nil (cache disabled).
type SectorStatsRepository struct {
	pool  *pgxpool.Pool
	cache *redis.Cache
}

// NewSectorStatsRepository creates a new sector stats repository.
func NewSectorStatsRepository(pool *pgxpool.Pool, cache *redis.Cache) *SectorStatsRepository {
	return &SectorStatsRepository{pool: pool, cache: cache}
}

// SaveStats upserts one refresh run's distributions and invalidates
// the cache so readers pick up the new quantiles.
func (r *SectorStatsRepository) SaveStats(ctx context.Context, stats []*contracts.SectorStats) error {
	if len(stats) == 0 {
		return nil
	}

	query := `
		INSERT INTO sector_percentiles (
			sector, metric, min_value, p10, p25, p50, p75, p90, max_value,
			mean, std_dev, sample_count, calculated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (sector, metric) DO UPDATE SET
			min_value = EXCLUDED.min_value,
			p10 = EXCLUDED.p10,
			p25 = EXCLUDED.p25,
			p50 = EXCLUDED.p50,
			p75 = EXCLUDED.p75,
			p90 = EXCLUDED.p90,
			max_value = EXCLUDED.max_value,
			mean = EXCLUDED.mean,
			std_dev = EXCLUDED.std_dev,
			sample_count = EXCLUDED.sample_count,
			calculated_at = EXCLUDED.calculated_at
	`

	batch := &pgx.Batch{}
	for _, s := range stats {
		batch.Queue(query,
			s.Sector, s.Metric, s.Min, s.P10, s.P25, s.P50, s.P75, s.P90, s.Max,
			s.Mean, s.StdDev, s.SampleCount, s.CalculatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range stats {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert sector stats batch: %w", err)
		}
	}

	if r.cache != nil {
		if err := r.cache.DeletePattern(ctx, "sector_stats:*"); err != nil {
			return fmt.Errorf("invalidate sector stats cache: %w", err)
		}
	}
	return nil
}

// Stats returns one sector/metric distribution, or nil when the sector
// has never been refreshed for that metric.
func (r *SectorStatsRepository) Stats(ctx context.Context, sector, metric string) (*contracts.SectorStats, error) {
	key := fmt.Sprintf("sector_stats:%s:%s", sector, metric)
	if r.cache != nil {
		var cached contracts.SectorStats
		hit, err := r.cache.Get(ctx, key, &cached)
		if err == nil && hit {
			return &cached, nil
		}
	}

	query := `
		SELECT sector, metric, min_value, p10, p25, p50, p75, p90, max_value,
		       mean, std_dev, sample_count, calculated_at
		FROM sector_percentiles
		WHERE sector = $1 AND metric = $2
	`
	rows, err := r.pool.Query(ctx, query, sector, metric)
	if err != nil {
		return nil, fmt.Errorf("query sector stats: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var s contracts.SectorStats
	if err := rows.Scan(&s.Sector, &s.Metric, &s.Min, &s.P10, &s.P25, &s.P50,
		&s.P75, &s.P90, &s.Max, &s.Mean, &s.StdDev, &s.SampleCount, &s.CalculatedAt); err != nil {
		return nil, fmt.Errorf("scan sector stats row: %w", err)
	}

	if r.cache != nil {
		// Best effort: a cold cache just means another DB read.
		_ = r.cache.Set(ctx, key, &s, sectorStatsTTL)
	}
	return &s, nil
}

// Sectors lists the distinct sectors that currently have stats.
func (r *SectorStatsRepository) Sectors(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT sector FROM sector_percentiles ORDER BY sector`)
	if err != nil {
		return nil, fmt.Errorf("query sectors: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan sector: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
