package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investorcenter/ic-engine/internal/contracts"
)

// ChangeRepository persists score-change explanations.
type ChangeRepository struct {
	pool *pgxpool.Pool
}

// NewChangeRepository creates a new change repository.
func NewChangeRepository(pool *pgxpool.Pool) *ChangeRepository {
	return &ChangeRepository{pool: pool}
}

// SaveChanges inserts one run's change explanations in a batch.
func (r *ChangeRepository) SaveChanges(ctx context.Context, changes []*contracts.ScoreChange) error {
	if len(changes) == 0 {
		return nil
	}

	query := `
		INSERT INTO ic_score_changes (
			ticker, from_date, to_date, previous_score, current_score,
			delta, significant, top_drivers, summary, trigger_events,
			smoothing_applied, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	batch := &pgx.Batch{}
	for _, c := range changes {
		drivers, err := json.Marshal(c.TopDrivers)
		if err != nil {
			return fmt.Errorf("marshal top drivers for %s: %w", c.Ticker, err)
		}
		events, err := json.Marshal(c.TriggerEvents)
		if err != nil {
			return fmt.Errorf("marshal trigger events for %s: %w", c.Ticker, err)
		}
		batch.Queue(query,
			c.Ticker, c.FromDate, c.ToDate, c.PreviousScore, c.CurrentScore,
			c.Delta, c.Significant, drivers, c.Summary, events,
			c.SmoothingApplied, c.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range changes {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert change batch: %w", err)
		}
	}
	return nil
}

// Changes returns a ticker's change history newest first, capped at
// limit. Pass significantOnly to drop sub-threshold moves.
func (r *ChangeRepository) Changes(ctx context.Context, ticker string, limit int, significantOnly bool) ([]*contracts.ScoreChange, error) {
	query := `
		SELECT ticker, from_date, to_date, previous_score, current_score,
		       delta, significant, top_drivers, summary, trigger_events,
		       smoothing_applied, created_at
		FROM ic_score_changes
		WHERE ticker = $1 AND ($2 = false OR significant)
		ORDER BY to_date DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, ticker, significantOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("query score changes: %w", err)
	}
	defer rows.Close()

	var out []*contracts.ScoreChange
	for rows.Next() {
		var (
			c           contracts.ScoreChange
			driversJSON []byte
			eventsJSON  []byte
		)
		if err := rows.Scan(&c.Ticker, &c.FromDate, &c.ToDate, &c.PreviousScore,
			&c.CurrentScore, &c.Delta, &c.Significant, &driversJSON, &c.Summary,
			&eventsJSON, &c.SmoothingApplied, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan change row: %w", err)
		}
		if err := json.Unmarshal(driversJSON, &c.TopDrivers); err != nil {
			return nil, fmt.Errorf("unmarshal top drivers: %w", err)
		}
		if len(eventsJSON) > 0 {
			if err := json.Unmarshal(eventsJSON, &c.TriggerEvents); err != nil {
				return nil, fmt.Errorf("unmarshal trigger events: %w", err)
			}
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// EventRepository persists ticker events consumed by the smoothing
// reset logic and the change explainer.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new event repository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// SaveEvent records one event.
func (r *EventRepository) SaveEvent(ctx context.Context, ev contracts.ScoreEvent) error {
	query := `
		INSERT INTO ic_score_events (ticker, event_type, occurred_at, detail)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.pool.Exec(ctx, query, ev.Ticker, string(ev.Type), ev.OccurredAt, ev.Detail); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// EventsSince returns a ticker's events at or after since, oldest
// first.
func (r *EventRepository) EventsSince(ctx context.Context, ticker string, since time.Time) ([]contracts.ScoreEvent, error) {
	query := `
		SELECT ticker, event_type, occurred_at, COALESCE(detail, '')
		FROM ic_score_events
		WHERE ticker = $1 AND occurred_at >= $2
		ORDER BY occurred_at
	`
	rows, err := r.pool.Query(ctx, query, ticker, since)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []contracts.ScoreEvent
	for rows.Next() {
		var (
			ev contracts.ScoreEvent
			et string
		)
		if err := rows.Scan(&ev.Ticker, &et, &ev.OccurredAt, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		ev.Type = contracts.EventType(et)
		out = append(out, ev)
	}
	return out, rows.Err()
}
