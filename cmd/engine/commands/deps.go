package commands

import (
	"fmt"

	"github.com/investorcenter/ic-engine/internal/backtest"
	"github.com/investorcenter/ic-engine/internal/data"
	"github.com/investorcenter/ic-engine/internal/data/repos"
	"github.com/investorcenter/ic-engine/internal/pipeline"
	"github.com/investorcenter/ic-engine/internal/scoringconfig"
	"github.com/investorcenter/ic-engine/internal/sector"
	"github.com/investorcenter/ic-engine/pkg/config"
	"github.com/investorcenter/ic-engine/pkg/database"
	"github.com/investorcenter/ic-engine/pkg/logger"
	"github.com/investorcenter/ic-engine/pkg/redis"
)

// app bundles the wired components every command starts from.
// SSOT: dependency wiring happens here only.
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB
	redis      *redis.Client
	cache      *redis.Cache
	scoringCfg *scoringconfig.Config
	configHash string

	store     *data.Store
	source    *data.DBDataSource
	sectors   *repos.SectorStatsRepository
	backtests *repos.BacktestRepository

	pipeline  *pipeline.Pipeline
	refresher *sector.Refresher
	runner    *backtest.Runner
}

// newApp loads config, connects infrastructure, and wires the engine.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if weightsPath != "" {
		cfg.Engine.WeightsPath = weightsPath
	}

	log := logger.New(cfg)

	// 1. Scoring parameters
	scoringCfg, _, err := scoringconfig.Load(cfg.Engine.WeightsPath)
	if err != nil {
		return nil, fmt.Errorf("load weights %s: %w", cfg.Engine.WeightsPath, err)
	}
	hash, err := scoringconfig.Hash(scoringCfg)
	if err != nil {
		return nil, fmt.Errorf("hash weights: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"path": cfg.Engine.WeightsPath,
		"hash": hash[:12],
	}).Info("Loaded scoring parameters")

	// 2. Database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 3. Redis (optional)
	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without cache")
		redisClient = nil
	}
	var cache *redis.Cache
	if redisClient != nil && redisClient.Enabled() {
		cache = redis.NewCache(redisClient, "ic-engine")
	}

	// 4. Data layer
	store := data.NewStore(db.Pool)
	source := data.NewDBDataSource(db.Pool)
	sectors := repos.NewSectorStatsRepository(db.Pool, cache)
	backtests := repos.NewBacktestRepository(db.Pool)

	// 5. Engine components
	p := pipeline.New(scoringCfg, source, store, cfg.Engine.Workers, log)
	refresher := sector.NewRefresher(scoringCfg, source, sectors, log)

	marketData := data.NewMarketDataClient(cfg.MarketData, cache, log)
	returns := &data.FallbackReturnSource{
		Primary:   data.NewPriceReturnSource(db.Pool),
		Secondary: marketData,
	}
	engine := backtest.NewEngine(data.NewScoreSource(store.Scores), returns, log)
	runner := backtest.NewRunner(engine, backtests, log)

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      redisClient,
		cache:      cache,
		scoringCfg: scoringCfg,
		configHash: hash,
		store:      store,
		source:     source,
		sectors:    sectors,
		backtests:  backtests,
		pipeline:   p,
		refresher:  refresher,
		runner:     runner,
	}, nil
}

// Close releases infrastructure connections.
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.db.Close()
}
