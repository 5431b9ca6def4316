package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/rankconfig"
	"github.com/wonny/rsrank/internal/s0_data/collector"
	"github.com/wonny/rsrank/pkg/logger"
)

// ErrRunInProgress is returned when a pipeline run is already executing
var ErrRunInProgress = errors.New("ranking run already in progress")

// Collector fetches and stores a fresh ticker snapshot
type Collector interface {
	Collect(ctx context.Context, cfg *rankconfig.Config) (*collector.Result, error)
}

// Pipeline runs collect → rank as one unit; at most one run at a time
type Pipeline struct {
	collector    Collector
	store        contracts.TickerStore
	orchestrator *Orchestrator
	logger       *logger.Logger
	mu           sync.Mutex
}

// NewPipeline creates a pipeline. collector may be nil to rank the stored snapshot only.
func NewPipeline(c Collector, store contracts.TickerStore, o *Orchestrator, log *logger.Logger) *Pipeline {
	return &Pipeline{
		collector:    c,
		store:        store,
		orchestrator: o,
		logger:       log.Component("pipeline"),
	}
}

// Run collects (when a collector is configured) and ranks
func (p *Pipeline) Run(ctx context.Context) (*contracts.RankingRun, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	cfg := p.orchestrator.Config()

	// 설정 오류는 수집 전에 중단
	if err := rankconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	var tickers map[string]contracts.Ticker
	if p.collector != nil {
		result, err := p.collector.Collect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("collect: %w", err)
		}
		tickers = ToMap(result.Tickers)
	} else {
		loaded, err := p.store.LoadTickers(ctx)
		if err != nil {
			return nil, fmt.Errorf("load tickers: %w", err)
		}
		tickers = loaded
	}

	return p.orchestrator.Run(ctx, tickers)
}

// Rank ranks the stored snapshot without collecting
func (p *Pipeline) Rank(ctx context.Context) (*contracts.RankingRun, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	tickers, err := p.store.LoadTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tickers: %w", err)
	}
	return p.orchestrator.Run(ctx, tickers)
}

// ToMap indexes tickers by symbol
func ToMap(tickers []contracts.Ticker) map[string]contracts.Ticker {
	out := make(map[string]contracts.Ticker, len(tickers))
	for _, t := range tickers {
		out[t.Symbol] = t
	}
	return out
}
