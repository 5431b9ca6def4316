package contracts

import (
	"sort"
	"time"
)

// RejectReason is the code recorded for a ticker the universe filter excludes
type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonInsufficientHistory RejectReason = "insufficient_history"
	ReasonLowVolume           RejectReason = "low_volume"
	ReasonLowMarketCap        RejectReason = "low_market_cap"
	ReasonNotInUniverse       RejectReason = "not_in_universe"
	ReasonBeyondCapLimit      RejectReason = "beyond_cap_limit"
)

// Universe represents the admitted set passed from S1 to S2
// ⭐ SSOT: S1 → S2 스코어링 대상 종목 전달
type Universe struct {
	AsOf       time.Time               `json:"as_of"`
	Admitted   []string                `json:"admitted"`              // 정렬된 심볼
	Excluded   map[string]RejectReason `json:"excluded"`              // 제외 종목: 사유
	TotalCount int                     `json:"total_count,omitempty"` // 전체 종목 수
}

// Contains checks if a symbol was admitted
func (u *Universe) Contains(symbol string) bool {
	i := sort.SearchStrings(u.Admitted, symbol)
	return i < len(u.Admitted) && u.Admitted[i] == symbol
}

// IsExcluded checks if a symbol is excluded with reason
func (u *Universe) IsExcluded(symbol string) (bool, RejectReason) {
	reason, exists := u.Excluded[symbol]
	return exists, reason
}

// Count returns the number of admitted tickers
func (u *Universe) Count() int {
	return len(u.Admitted)
}

// ExclusionCounts groups excluded tickers by reason
func (u *Universe) ExclusionCounts() map[RejectReason]int {
	counts := make(map[RejectReason]int)
	for _, reason := range u.Excluded {
		counts[reason]++
	}
	return counts
}
