package selection

import (
	"sort"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/logger"
)

// MaxPercentile is the percentile of the top-scoring entry
const MaxPercentile = 99

// PercentileRanker implements S3: RawScore → 0~99 percentile
// ⭐ SSOT: 백분위 계산은 여기서만
type PercentileRanker struct {
	logger *logger.Logger
}

// NewPercentileRanker creates a new ranker
func NewPercentileRanker(log *logger.Logger) *PercentileRanker {
	return &PercentileRanker{
		logger: log.Component(string(contracts.StageRank)),
	}
}

// Rank assigns percentiles over the full admitted set and returns the table
// ordered by RawScore descending, ties by ascending symbol.
// attrs supplies the pass-through columns (sector, market cap...) and may be nil.
func (r *PercentileRanker) Rank(scored []contracts.ScoredTicker, attrs map[string]contracts.Ticker) []contracts.RankedEntry {
	n := len(scored)
	if n == 0 {
		return []contracts.RankedEntry{}
	}

	asc := make([]contracts.ScoredTicker, n)
	copy(asc, scored)
	sort.Slice(asc, func(i, j int) bool {
		if asc[i].RawScore != asc[j].RawScore {
			return asc[i].RawScore < asc[j].RawScore
		}
		return asc[i].Symbol < asc[j].Symbol
	})

	percentiles := Percentiles(asc)

	entries := make([]contracts.RankedEntry, n)
	for i, s := range asc {
		attr := attrs[s.Symbol]
		entries[i] = contracts.RankedEntry{
			Symbol:     s.Symbol,
			RawScore:   s.RawScore,
			Percentile: percentiles[i],
			Strength:   s.Strength,
			Sector:     attr.Sector,
			Industry:   attr.Industry,
			Exchange:   attr.Exchange,
			MarketCap:  attr.MarketCap,
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].RawScore != entries[j].RawScore {
			return entries[i].RawScore > entries[j].RawScore
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	r.logger.WithFields(map[string]interface{}{
		"count":     n,
		"top":       entries[0].Symbol,
		"top_score": entries[0].RawScore,
	}).Info("Percentiles assigned")

	return entries
}

// Percentiles maps ascending-sorted scores to floor(i*99/(N-1)).
// A tie group shares the percentile of its first position, so a tie at
// the top never reaches MaxPercentile.
func Percentiles(asc []contracts.ScoredTicker) []int {
	n := len(asc)
	out := make([]int, n)
	if n == 1 {
		out[0] = MaxPercentile
		return out
	}

	for i := range asc {
		if i > 0 && asc[i].RawScore == asc[i-1].RawScore {
			out[i] = out[i-1]
			continue
		}
		out[i] = i * MaxPercentile / (n - 1)
	}
	return out
}

// FilterByPercentile returns the display table: entries at or above min, order and ranks kept
func FilterByPercentile(entries []contracts.RankedEntry, min int) []contracts.RankedEntry {
	table := make([]contracts.RankedEntry, 0, len(entries))
	for _, e := range entries {
		if e.Percentile >= min {
			table = append(table, e)
		}
	}
	return table
}

// FilterBySector keeps entries of one sector (case-sensitive, as reported by the data source)
func FilterBySector(entries []contracts.RankedEntry, sector string) []contracts.RankedEntry {
	out := make([]contracts.RankedEntry, 0)
	for _, e := range entries {
		if e.Sector == sector {
			out = append(out, e)
		}
	}
	return out
}

// Top returns at most n leading entries
func Top(entries []contracts.RankedEntry, n int) []contracts.RankedEntry {
	if n < len(entries) {
		return entries[:n]
	}
	return entries
}
