package sector

import (
	"context"
	"errors"
	"time"

	"github.com/investorcenter/ic-engine/internal/contracts"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
	"github.com/investorcenter/ic-engine/pkg/logger"
)

// MetricSource serves the raw metric values a distribution is built
// from, keyed by sector.
type MetricSource interface {
	SectorMetricValues(ctx context.Context, metric string, asOf time.Time) (map[string][]float64, error)
}

// StatsStore persists computed distributions.
type StatsStore interface {
	SaveStats(ctx context.Context, stats []*contracts.SectorStats) error
}

// Refresher rebuilds every sector/metric distribution from current
// fundamentals. Runs before daily scoring so percentile lookups see
// fresh quantiles.
type Refresher struct {
	calc    *Calculator
	metrics []string
	source  MetricSource
	store   StatsStore
	log     *logger.Logger
}

// NewRefresher creates a Refresher for the configured metric set.
func NewRefresher(cfg *scoringconfig.Config, source MetricSource, store StatsStore, log *logger.Logger) *Refresher {
	return &Refresher{
		calc:    New(cfg),
		metrics: cfg.Sector.Metrics,
		source:  source,
		store:   store,
		log:     log,
	}
}

// Refresh recomputes all distributions as of a date and returns how
// many were saved. Sectors below the minimum sample size are skipped,
// not failed: a thin sector must not block the rest of the refresh.
func (r *Refresher) Refresh(ctx context.Context, asOf time.Time) (int, error) {
	var out []*contracts.SectorStats

	for _, metric := range r.metrics {
		bySector, err := r.source.SectorMetricValues(ctx, metric, asOf)
		if err != nil {
			return 0, err
		}

		for sec, values := range bySector {
			if sec == "" {
				continue // unclassified tickers have no peer group
			}
			stats, err := r.calc.ComputeStats(sec, metric, values, asOf)
			if err != nil {
				if errors.Is(err, ErrInsufficientSample) {
					r.log.WithFields(map[string]interface{}{
						"sector": sec,
						"metric": metric,
						"count":  len(values),
					}).Warn("Skipping sector with insufficient sample")
					continue
				}
				return 0, err
			}
			out = append(out, stats)
		}
	}

	if err := r.store.SaveStats(ctx, out); err != nil {
		return 0, err
	}

	r.log.WithFields(map[string]interface{}{
		"distributions": len(out),
		"metrics":       len(r.metrics),
	}).Info("Sector percentile refresh completed")

	return len(out), nil
}
