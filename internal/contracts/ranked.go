package contracts

import (
	"time"

	"github.com/google/uuid"
)

// ScoredTicker is the scorer output for one admitted ticker
// ⭐ SSOT: S2 → S3 RS 점수 전달
type ScoredTicker struct {
	Symbol   string  `json:"symbol"`
	RawScore float64 `json:"raw_score"` // P / B * Scale
	Strength float64 `json:"strength"`  // 가중 성과 P
}

// RankedEntry is one row of the ranked table
// ⭐ SSOT: S3 → S4 랭킹 결과 전달
type RankedEntry struct {
	Rank       int     `json:"rank"` // 1-based, RawScore 내림차순
	Symbol     string  `json:"symbol"`
	RawScore   float64 `json:"raw_score"`
	Percentile int     `json:"percentile"` // 0 ~ 99
	Strength   float64 `json:"strength"`
	Sector     string  `json:"sector"`
	Industry   string  `json:"industry"`
	Exchange   string  `json:"exchange"`
	MarketCap  float64 `json:"market_cap"`
}

// IsTopRanked checks if the entry is in top N ranks
func (r *RankedEntry) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}

// ScoreFault records a ticker dropped during scoring
type ScoreFault struct {
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"` // insufficient_history, invalid_price
	Detail string `json:"detail"`
}

// RankingRun is the complete result of one ranking run
type RankingRun struct {
	RunID      uuid.UUID     `json:"run_id"`
	AsOf       time.Time     `json:"as_of"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Benchmark  string        `json:"benchmark"`
	ConfigHash string        `json:"config_hash"`
	Universe   *Universe     `json:"universe"`
	Entries    []RankedEntry `json:"entries"` // 전체 admitted 집합
	Table      []RankedEntry `json:"table"`   // MIN_PERCENTILE 적용 후
	Faults     []ScoreFault  `json:"faults,omitempty"`
}

// Duration returns how long the run took
func (r *RankingRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Find returns the entry for a symbol from the full ranked set
func (r *RankingRun) Find(symbol string) (RankedEntry, bool) {
	for _, e := range r.Entries {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return RankedEntry{}, false
}
