package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/rankconfig"
	"github.com/wonny/rsrank/internal/s0_data"
	"github.com/wonny/rsrank/internal/s0_data/quality"
	"github.com/wonny/rsrank/internal/s2_rs"
	"github.com/wonny/rsrank/pkg/logger"
	"github.com/wonny/rsrank/pkg/metrics"
	"github.com/wonny/rsrank/pkg/redis"
)

// MarketData provides daily bars and company profiles
type MarketData interface {
	FetchHistory(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error)
	FetchProfile(ctx context.Context, symbol string) (*contracts.Profile, error)
	FetchQuotes(ctx context.Context, symbols []string) ([]contracts.Profile, error)
}

// ConstituentSource lists the members of an index
type ConstituentSource interface {
	Constituents(ctx context.Context, set contracts.IndexSet) ([]contracts.Constituent, error)
}

// SymbolDirectory lists every exchange-listed common stock
type SymbolDirectory interface {
	ListedSymbols(ctx context.Context) ([]string, error)
}

// Cache stores fetched payloads between runs (pkg/redis.Cache)
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Collector orchestrates data collection from external sources
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	market       MarketData
	constituents ConstituentSource
	directory    SymbolDirectory
	cache        Cache
	store        contracts.TickerStore
	metrics      *metrics.Registry
	logger       *logger.Logger
	now          func() time.Time
}

// NewCollector creates a new Collector instance
// cache, directory and metrics may be nil.
func NewCollector(
	market MarketData,
	constituents ConstituentSource,
	directory SymbolDirectory,
	cache Cache,
	store contracts.TickerStore,
	m *metrics.Registry,
	log *logger.Logger,
) *Collector {
	return &Collector{
		market:       market,
		constituents: constituents,
		directory:    directory,
		cache:        cache,
		store:        store,
		metrics:      m,
		logger:       log.Component("collector"),
		now:          time.Now,
	}
}

// Candidate is one symbol to fetch and where it came from
type Candidate struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string
	Indexes  []contracts.IndexSet
	Quote    *contracts.Profile // 시가총액 후보만 보유
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Symbol     string
	PriceCount int
	Ticker     *contracts.Ticker
	Error      error
}

// Result is the outcome of one collection
type Result struct {
	Tickers []contracts.Ticker
	Fetches []FetchResult
	Quality *quality.Snapshot
}

// Failed returns the symbols that could not be fetched
func (r *Result) Failed() []string {
	var failed []string
	for _, f := range r.Fetches {
		if f.Error != nil {
			failed = append(failed, f.Symbol)
		}
	}
	return failed
}

// Candidates builds the sorted, de-duplicated symbol list for a run:
// every member of the enabled indexes, the top market-cap listings when enabled, and the benchmark.
func (c *Collector) Candidates(ctx context.Context, cfg *rankconfig.Config) ([]Candidate, error) {
	bySymbol := make(map[string]*Candidate)

	// 1. 지수 구성종목
	for _, set := range cfg.EnabledIndexes() {
		members, err := c.fetchConstituents(ctx, set)
		if err != nil {
			c.metrics.RecordFetchError("wikipedia")
			c.logger.WithError(err).WithField("index", string(set)).Warn("Failed to fetch index constituents")
			continue
		}

		for _, m := range members {
			cand, ok := bySymbol[m.Symbol]
			if !ok {
				cand = &Candidate{Symbol: m.Symbol, Name: m.Name, Sector: m.Sector, Industry: m.Industry}
				bySymbol[m.Symbol] = cand
			}
			cand.Indexes = append(cand.Indexes, set)
		}

		c.logger.WithFields(map[string]interface{}{
			"index": string(set),
			"count": len(members),
		}).Info("Index constituents collected")
	}

	// 2. 시가총액 기준 확장
	if cfg.IncludeByMarketCap && c.directory != nil {
		capOnly, err := c.capCandidates(ctx, cfg, bySymbol)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to collect market-cap candidates")
		}
		for i := range capOnly {
			bySymbol[capOnly[i].Symbol] = &capOnly[i]
		}
	}

	// 3. 벤치마크는 항상 포함
	bench := contracts.NormalizeSymbol(cfg.ReferenceTicker)
	if _, ok := bySymbol[bench]; !ok {
		bySymbol[bench] = &Candidate{Symbol: bench}
	}

	candidates := make([]Candidate, 0, len(bySymbol))
	for _, cand := range bySymbol {
		candidates = append(candidates, *cand)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Symbol < candidates[j].Symbol })

	return candidates, nil
}

// capCandidates keeps the largest listed non-index symbols at or above MIN_MARKET_CAP.
// Trimmed to MAX_TICKERS_BY_CAP here so the fetch stays bounded; the universe filter re-checks.
func (c *Collector) capCandidates(ctx context.Context, cfg *rankconfig.Config, indexed map[string]*Candidate) ([]Candidate, error) {
	listed, err := c.directory.ListedSymbols(ctx)
	if err != nil {
		c.metrics.RecordFetchError("nasdaqtrader")
		return nil, fmt.Errorf("list symbols: %w", err)
	}

	var symbols []string
	for _, s := range listed {
		if _, ok := indexed[s]; !ok {
			symbols = append(symbols, s)
		}
	}

	quotes, err := c.market.FetchQuotes(ctx, symbols)
	if err != nil {
		c.metrics.RecordFetchError("yahoo")
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	var candidates []Candidate
	for i := range quotes {
		q := quotes[i]
		if q.MarketCap < cfg.MinMarketCap {
			continue
		}
		candidates = append(candidates, Candidate{Symbol: q.Symbol, Name: q.Name, Quote: &q})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Quote.MarketCap != candidates[j].Quote.MarketCap {
			return candidates[i].Quote.MarketCap > candidates[j].Quote.MarketCap
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})
	if cfg.MaxTickersByCap > 0 && len(candidates) > cfg.MaxTickersByCap {
		candidates = candidates[:cfg.MaxTickersByCap]
	}

	c.logger.WithFields(map[string]interface{}{
		"listed":   len(listed),
		"quoted":   len(quotes),
		"selected": len(candidates),
	}).Info("Market-cap candidates collected")

	return candidates, nil
}

// Collect fetches history and profiles for every candidate and saves the snapshot
func (c *Collector) Collect(ctx context.Context, cfg *rankconfig.Config) (*Result, error) {
	timer := c.metrics.StartStepTimer(string(contracts.StageData))

	candidates, err := c.Candidates(ctx, cfg)
	if err != nil {
		timer.Stop("error")
		return nil, fmt.Errorf("collect candidates: %w", err)
	}

	to := c.now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -cfg.HistoryDays)

	fetches := c.fetchAll(ctx, candidates, from, to, cfg.Workers)

	result := &Result{Fetches: fetches}
	bench := contracts.NormalizeSymbol(cfg.ReferenceTicker)
	benchFetched := false
	shortHistory, lowVolume := 0, 0

	for _, f := range fetches {
		if f.Error != nil {
			continue
		}
		t := *f.Ticker
		if t.Symbol == bench {
			benchFetched = true
		}

		// 사전 점검 (로그만, 제외는 유니버스 필터가 결정)
		if t.HistoryLength() < cfg.MinTradingDays {
			shortHistory++
		}
		if t.MeanVolume() < cfg.MinAvgVolume {
			lowVolume++
		}

		result.Tickers = append(result.Tickers, t)
	}

	if !benchFetched {
		timer.Stop("error")
		return nil, fmt.Errorf("collect %s: %w", bench, contracts.ErrBenchmarkMissing)
	}

	result.Quality = quality.NewQualityGate(quality.DefaultConfig(s2_rs.RequiredCloses)).Check(result.Tickers)

	c.logger.WithFields(map[string]interface{}{
		"candidates":    len(candidates),
		"collected":     len(result.Tickers),
		"failed":        len(fetches) - len(result.Tickers),
		"short_history": shortHistory,
		"low_volume":    lowVolume,
		"quality_score": result.Quality.QualityScore,
		"stale":         len(result.Quality.Stale),
	}).Info("Collection completed")

	if !result.Quality.Passed {
		c.logger.WithField("coverage", result.Quality.Coverage).Warn("Data quality below threshold")
	}

	if err := c.store.SaveTickers(ctx, result.Tickers); err != nil {
		timer.Stop("error")
		return nil, fmt.Errorf("save tickers: %w", err)
	}

	c.metrics.SetTickers("collected", len(result.Tickers))
	timer.Stop("success")

	return result, nil
}

// fetchAll runs the worker pool; results come back sorted by symbol
func (c *Collector) fetchAll(ctx context.Context, candidates []Candidate, from, to time.Time, workers int) []FetchResult {
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker_count": len(candidates),
		"from":         from.Format("2006-01-02"),
		"to":           to.Format("2006-01-02"),
		"workers":      workers,
	}).Info("Starting price collection")

	resultCh := make(chan FetchResult, len(candidates))
	candidateCh := make(chan Candidate, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.worker(ctx, workerID, candidateCh, resultCh, from, to)
		}(i)
	}

	for _, cand := range candidates {
		candidateCh <- cand
	}
	close(candidateCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]FetchResult, 0, len(candidates))
	for r := range resultCh {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })

	return results
}

func (c *Collector) worker(ctx context.Context, workerID int, candidateCh <-chan Candidate, resultCh chan<- FetchResult, from, to time.Time) {
	for cand := range candidateCh {
		select {
		case <-ctx.Done():
			resultCh <- FetchResult{Symbol: cand.Symbol, Error: ctx.Err()}
			continue
		default:
		}

		ticker, err := c.fetchTicker(ctx, cand, from, to)
		if err != nil {
			c.metrics.RecordFetchError("yahoo")
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"ticker": cand.Symbol,
			}).Warn("Failed to fetch ticker")
			resultCh <- FetchResult{Symbol: cand.Symbol, Error: err}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker": workerID,
			"ticker": cand.Symbol,
			"count":  ticker.Series.Len(),
		}).Debug("Fetched prices")

		resultCh <- FetchResult{Symbol: cand.Symbol, PriceCount: ticker.Series.Len(), Ticker: ticker}
	}
}

func (c *Collector) fetchTicker(ctx context.Context, cand Candidate, from, to time.Time) (*contracts.Ticker, error) {
	series, err := c.fetchHistory(ctx, cand.Symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	profile := cand.Quote
	if profile == nil {
		profile, err = c.fetchProfile(ctx, cand.Symbol)
		if err != nil {
			// 프로필 실패는 치명적이지 않음: 지수 표의 GICS 분류 사용
			c.logger.WithError(err).WithField("ticker", cand.Symbol).Debug("Profile unavailable")
			profile = &contracts.Profile{Symbol: cand.Symbol}
		}
	}

	return &contracts.Ticker{
		Symbol:      cand.Symbol,
		Name:        pick(profile.Name, cand.Name),
		Sector:      pick(profile.Sector, cand.Sector),
		Industry:    pick(profile.Industry, cand.Industry),
		Exchange:    pick(profile.Exchange, ""),
		MarketCap:   profile.MarketCap,
		AvgVolume:   profile.AvgVolume,
		TradingDays: series.Len(),
		Indexes:     cand.Indexes,
		Series:      series,
	}, nil
}

func (c *Collector) fetchHistory(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error) {
	key := redis.SeriesKey(symbol, to.Format("2006-01-02"))

	var series contracts.PriceSeries
	if c.cacheGet(ctx, "series", key, &series) {
		return series, nil
	}

	series, err := c.market.FetchHistory(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	series = s0_data.SortSeries(series)

	c.cacheSet(ctx, key, series, redis.TTLSeries)
	return series, nil
}

func (c *Collector) fetchProfile(ctx context.Context, symbol string) (*contracts.Profile, error) {
	key := redis.ProfileKey(symbol)

	var profile contracts.Profile
	if c.cacheGet(ctx, "profile", key, &profile) {
		return &profile, nil
	}

	p, err := c.market.FetchProfile(ctx, symbol)
	if err != nil {
		return nil, err
	}

	c.cacheSet(ctx, key, p, redis.TTLProfile)
	return p, nil
}

func (c *Collector) fetchConstituents(ctx context.Context, set contracts.IndexSet) ([]contracts.Constituent, error) {
	key := redis.ConstituentsKey(string(set))

	var members []contracts.Constituent
	if c.cacheGet(ctx, "constituents", key, &members) {
		return members, nil
	}

	members, err := c.constituents.Constituents(ctx, set)
	if err != nil {
		return nil, err
	}

	c.cacheSet(ctx, key, members, redis.TTLConstituents)
	return members, nil
}

func (c *Collector) cacheGet(ctx context.Context, cacheType, key string, dest interface{}) bool {
	if c.cache == nil {
		return false
	}

	found, err := c.cache.Get(ctx, key, dest)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
	}
	if found {
		c.metrics.RecordCacheHit(cacheType)
		return true
	}
	c.metrics.RecordCacheMiss(cacheType)
	return false
}

func (c *Collector) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value, ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// pick prefers the fetched value unless it is missing
func pick(fetched, fallback string) string {
	if fetched != "" && fetched != "Unknown" {
		return fetched
	}
	if fallback != "" {
		return fallback
	}
	if fetched != "" {
		return fetched
	}
	return "Unknown"
}
