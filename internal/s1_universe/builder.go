package s1_universe

import (
	"sort"
	"time"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/logger"
)

// Builder constructs the admitted universe
type Builder struct {
	filter *Filter
	logger *logger.Logger
}

// NewBuilder creates a new Universe Builder
func NewBuilder(filter *Filter, log *logger.Logger) *Builder {
	return &Builder{
		filter: filter,
		logger: log.Component(string(contracts.StageUniverse)),
	}
}

// Build runs the filter over every ticker
// ⭐ SSOT: S1 → S2 유니버스 생성
func (b *Builder) Build(asOf time.Time, tickers map[string]contracts.Ticker) *contracts.Universe {
	universe := &contracts.Universe{
		AsOf:       asOf,
		Admitted:   make([]string, 0, len(tickers)),
		Excluded:   make(map[string]contracts.RejectReason),
		TotalCount: len(tickers),
	}

	ranks := b.CapRanks(tickers)

	symbols := make([]string, 0, len(tickers))
	for symbol := range tickers {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		decision := b.filter.Check(tickers[symbol], ranks[symbol])
		if !decision.Admitted {
			universe.Excluded[symbol] = decision.Reason
			continue
		}
		universe.Admitted = append(universe.Admitted, symbol)
	}

	fields := map[string]interface{}{
		"as_of":    asOf.Format("2006-01-02"),
		"total":    universe.TotalCount,
		"admitted": universe.Count(),
		"excluded": len(universe.Excluded),
	}
	for reason, n := range universe.ExclusionCounts() {
		fields[string(reason)] = n
	}
	b.logger.WithFields(fields).Info("Universe built")

	return universe
}

// CapRanks assigns 1-based market-cap positions to cap-only candidates
// 시가총액 내림차순, 동률은 심볼 오름차순
func (b *Builder) CapRanks(tickers map[string]contracts.Ticker) map[string]int {
	candidates := make([]contracts.Ticker, 0)
	for _, t := range tickers {
		if b.filter.IsCapOnly(t) {
			candidates = append(candidates, t)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].MarketCap != candidates[j].MarketCap {
			return candidates[i].MarketCap > candidates[j].MarketCap
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})

	ranks := make(map[string]int, len(candidates))
	for i, t := range candidates {
		ranks[t.Symbol] = i + 1
	}
	return ranks
}
