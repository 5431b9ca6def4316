package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/external/nasdaqtrader"
	"github.com/wonny/rsrank/internal/external/wikipedia"
	"github.com/wonny/rsrank/internal/external/yahoo"
	"github.com/wonny/rsrank/internal/rankconfig"
	"github.com/wonny/rsrank/internal/ranking"
	"github.com/wonny/rsrank/internal/report"
	"github.com/wonny/rsrank/internal/s0_data"
	"github.com/wonny/rsrank/internal/s0_data/collector"
	"github.com/wonny/rsrank/internal/s1_universe"
	"github.com/wonny/rsrank/internal/selection"
	"github.com/wonny/rsrank/pkg/config"
	"github.com/wonny/rsrank/pkg/database"
	"github.com/wonny/rsrank/pkg/httputil"
	"github.com/wonny/rsrank/pkg/logger"
	"github.com/wonny/rsrank/pkg/metrics"
	"github.com/wonny/rsrank/pkg/redis"
)

// keyPrefix namespaces every Redis key written by rsrank
const keyPrefix = "rsrank"

// app holds the wired dependencies shared by all commands
type app struct {
	cfg     *config.Config
	rankCfg *rankconfig.Config
	logger  *logger.Logger
	metrics *metrics.Registry

	redis *redis.Client
	db    *database.DB

	store     contracts.TickerStore
	universes *s1_universe.Repository // nil without DATABASE_URL
	runs      *selection.Repository   // nil without DATABASE_URL

	collector    *collector.Collector
	orchestrator *ranking.Orchestrator
	pipeline     *ranking.Pipeline
	writer       *report.CSVWriter
}

// loadConfig applies the global flags over the environment
func loadConfig() (*config.Config, error) {
	if env != "" {
		os.Setenv("ENV", env)
	}
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if configFile != "" {
		cfg.RankingConfigPath = configFile
	}
	return cfg, nil
}

// loadRankingConfig reads the YAML thresholds, falling back to defaults when the file is absent
func loadRankingConfig(cfg *config.Config, log *logger.Logger) (*rankconfig.Config, error) {
	rankCfg, err := rankconfig.Load(cfg.RankingConfigPath)
	if errors.Is(err, os.ErrNotExist) && configFile == "" {
		log.WithField("path", cfg.RankingConfigPath).Warn("Ranking config not found, using defaults")
		rankCfg = rankconfig.Default()
		err = nil
	}
	if err != nil {
		return nil, err
	}

	if cfg.OutputDir != "" {
		rankCfg.OutputDir = cfg.OutputDir
	}

	for _, w := range rankconfig.Warn(rankCfg) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Ranking config warning")
	}

	return rankCfg, nil
}

// newApp wires config, storage, sources and the pipeline
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	rankCfg, err := loadRankingConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, rankCfg: rankCfg, logger: log}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// Redis (캐시 + 공유 레이트 리밋, 비활성 시 no-op)
	a.redis, err = redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// Storage: Postgres 설정 시 DB, 아니면 JSON 스냅샷 파일
	if err := a.initStorage(ctx); err != nil {
		a.close()
		return nil, err
	}

	// External sources
	limiter := redis.NewRateLimiter(a.redis, keyPrefix)
	yahooHTTP := httputil.New(log).WithRateLimiter(limiter, yahooRateLimit(cfg.Yahoo))
	wikiHTTP := httputil.New(log).WithRateLimiter(limiter, redis.WikipediaRateLimit)
	directoryHTTP := httputil.New(log).WithRateLimiter(limiter, redis.NasdaqTraderRateLimit)

	yahooClient := yahoo.NewClient(yahooHTTP, cfg.Yahoo, a.metrics, log)
	wikiClient := wikipedia.NewClient(wikiHTTP, cfg.Wikipedia, log)
	directory := nasdaqtrader.NewClient(directoryHTTP, cfg.NasdaqTrader, log)
	cache := redis.NewCache(a.redis, keyPrefix)

	a.collector = collector.NewCollector(yahooClient, wikiClient, directory, cache, a.store, a.metrics, log)

	// Ranking
	a.writer = report.NewCSVWriter(rankCfg.OutputDir, log)
	a.orchestrator = ranking.NewOrchestrator(rankCfg, a.metrics, log).WithWriter(a.writer)
	if a.universes != nil && a.runs != nil {
		a.orchestrator.WithStores(a.universes, a.runs)
	}
	a.pipeline = ranking.NewPipeline(a.collector, a.store, a.orchestrator, log)

	return a, nil
}

// yahooRateLimit scales the shared Yahoo window to YAHOO_REQUESTS_PER_SEC
func yahooRateLimit(cfg config.YahooConfig) redis.RateLimitConfig {
	limit := redis.YahooRateLimit
	if n := int(math.Ceil(cfg.RequestsPerSec)); n > 0 {
		limit.Limit = n
	}
	return limit
}

func (a *app) initStorage(ctx context.Context) error {
	if !a.cfg.Database.Enabled() {
		a.store = s0_data.NewFileStore(a.cfg.DataDir, a.logger)
		a.logger.WithField("path", a.cfg.DataDir).Debug("Using file snapshot store")
		return nil
	}

	db, err := database.New(a.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	a.store = s0_data.NewPriceRepository(db.Pool)
	a.universes = s1_universe.NewRepository(db.Pool)
	a.runs = selection.NewRepository(db.Pool)

	a.logger.Info("Connected to database")
	return nil
}

// runStore returns the run repository as an interface (nil-safe)
func (a *app) runStore() contracts.RunStore {
	if a.runs == nil {
		return nil
	}
	return a.runs
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close redis")
		}
	}
}
