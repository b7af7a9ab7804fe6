package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/investorcenter/ic-engine/pkg/config"
	"github.com/investorcenter/ic-engine/pkg/httputil"
	"github.com/investorcenter/ic-engine/pkg/logger"
	"github.com/investorcenter/ic-engine/pkg/redis"
)

const benchmarkCacheTTL = 12 * time.Hour

// MarketDataClient fetches daily closes from the external market data
// API. Used for benchmark tickers that are not in the local price
// table. Responses are cached in Redis per ticker and window; the
// API's free tier is rate limited, so the HTTP client carries a token
// bucket.
type MarketDataClient struct {
	http    *httputil.Client
	cache   *redis.Cache
	baseURL string
	apiKey  string
	log     *logger.Logger
}

// NewMarketDataClient creates a client from the market data config.
func NewMarketDataClient(cfg config.MarketDataConfig, cache *redis.Cache, log *logger.Logger) *MarketDataClient {
	httpClient := httputil.New(log).
		WithTimeout(20 * time.Second).
		WithRateLimit(cfg.RatePerSecond, cfg.Burst)

	return &MarketDataClient{
		http:    httpClient,
		cache:   cache,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		log:     log,
	}
}

type aggsResponse struct {
	Ticker  string `json:"ticker"`
	Results []struct {
		Close     float64 `json:"c"`
		Timestamp int64   `json:"t"` // ms since epoch
	} `json:"results"`
	Status string `json:"status"`
}

// PeriodReturn computes the total return over [start, end] from the
// API's daily aggregate bars. Implements backtest.ReturnSource.
func (m *MarketDataClient) PeriodReturn(ctx context.Context, ticker string, start, end time.Time) (float64, bool, error) {
	closes, err := m.dailyCloses(ctx, ticker, start, end)
	if err != nil {
		return 0, false, err
	}
	if len(closes) < 2 || closes[0] <= 0 {
		return 0, false, nil
	}
	return closes[len(closes)-1]/closes[0] - 1, true, nil
}

func (m *MarketDataClient) dailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]float64, error) {
	key := fmt.Sprintf("bench:%s:%s:%s", ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if m.cache != nil {
		var cached []float64
		if hit, err := m.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&apiKey=%s",
		m.baseURL, url.PathEscape(ticker),
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		url.QueryEscape(m.apiKey))

	resp, err := m.http.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("market data API returned %d for %s: %s", resp.StatusCode, ticker, string(body))
	}

	var parsed aggsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode daily bars for %s: %w", ticker, err)
	}

	closes := make([]float64, 0, len(parsed.Results))
	for _, bar := range parsed.Results {
		closes = append(closes, bar.Close)
	}

	if m.cache != nil {
		_ = m.cache.Set(ctx, key, closes, benchmarkCacheTTL)
	}
	return closes, nil
}
