package data

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/investorcenter/ic-engine/internal/backtest"
)

// PriceReturnSource computes holding-period returns from stored daily
// prices. Implements backtest.ReturnSource.
type PriceReturnSource struct {
	pool *pgxpool.Pool
}

// NewPriceReturnSource creates a price-based return source.
func NewPriceReturnSource(pool *pgxpool.Pool) *PriceReturnSource {
	return &PriceReturnSource{pool: pool}
}

// PeriodReturn computes the total return over [start, end] from the
// last adjusted close at or before each endpoint. ok is false when
// either endpoint has no price, or when the only price available for
// the start predates it by more than a week (a delisted or brand-new
// ticker, not a weekend gap).
func (p *PriceReturnSource) PeriodReturn(ctx context.Context, ticker string, start, end time.Time) (float64, bool, error) {
	startPrice, startDate, ok, err := p.closeAt(ctx, ticker, start)
	if err != nil {
		return 0, false, err
	}
	if !ok || startPrice <= 0 || start.Sub(startDate) > 7*24*time.Hour {
		return 0, false, nil
	}

	endPrice, _, ok, err := p.closeAt(ctx, ticker, end)
	if err != nil {
		return 0, false, err
	}
	if !ok || endPrice <= 0 {
		return 0, false, nil
	}

	return endPrice/startPrice - 1, true, nil
}

func (p *PriceReturnSource) closeAt(ctx context.Context, ticker string, at time.Time) (price float64, date time.Time, ok bool, err error) {
	query := `
		SELECT adjusted_close, date
		FROM stock_prices
		WHERE ticker = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`
	rows, err := p.pool.Query(ctx, query, ticker, at)
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("query price for %s: %w", ticker, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, time.Time{}, false, rows.Err()
	}
	if err := rows.Scan(&price, &date); err != nil {
		return 0, time.Time{}, false, fmt.Errorf("scan price row: %w", err)
	}
	return price, date, true, nil
}

// FallbackReturnSource tries the primary source first and falls back
// to the secondary when the primary has no data. Used to serve
// benchmark tickers from the market data API when they are not in the
// local price table.
type FallbackReturnSource struct {
	Primary   backtest.ReturnSource
	Secondary backtest.ReturnSource
}

func (f *FallbackReturnSource) PeriodReturn(ctx context.Context, ticker string, start, end time.Time) (float64, bool, error) {
	ret, ok, err := f.Primary.PeriodReturn(ctx, ticker, start, end)
	if err != nil || ok {
		return ret, ok, err
	}
	if f.Secondary == nil {
		return 0, false, nil
	}
	return f.Secondary.PeriodReturn(ctx, ticker, start, end)
}
