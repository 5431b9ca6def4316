package s1_universe

import (
	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/internal/rankconfig"
)

// Decision is the outcome of one filter check
type Decision struct {
	Admitted bool
	Reason   contracts.RejectReason   // 첫 번째 실패 규칙
	Reasons  []contracts.RejectReason // 실패한 모든 규칙 (진단용)
}

// Filter decides universe membership
// ⭐ SSOT: 순수 함수, 부작용/에러 없음
type Filter struct {
	minTradingDays  int
	minAvgVolume    float64
	minMarketCap    float64
	includeByCap    bool
	maxTickersByCap int
	indexes         []contracts.IndexSet
	benchmark       string
}

// NewFilter creates a Filter from the run thresholds
func NewFilter(cfg *rankconfig.Config) *Filter {
	return &Filter{
		minTradingDays:  cfg.MinTradingDays,
		minAvgVolume:    cfg.MinAvgVolume,
		minMarketCap:    cfg.MinMarketCap,
		includeByCap:    cfg.IncludeByMarketCap,
		maxTickersByCap: cfg.MaxTickersByCap,
		indexes:         cfg.EnabledIndexes(),
		benchmark:       contracts.NormalizeSymbol(cfg.ReferenceTicker),
	}
}

// Check applies the rules in order. capRank is the ticker's 1-based market-cap
// position among cap-only candidates (see CapRanks) and is ignored for index members.
func (f *Filter) Check(t contracts.Ticker, capRank int) Decision {
	var reasons []contracts.RejectReason

	// 1. 거래일 수 미달
	if t.HistoryLength() < f.minTradingDays {
		reasons = append(reasons, contracts.ReasonInsufficientHistory)
	}

	// 2. 평균 거래량 미달
	if t.MeanVolume() < f.minAvgVolume {
		reasons = append(reasons, contracts.ReasonLowVolume)
	}

	// 벤치마크는 기준 시계열: 시가총액/편입 규칙 제외
	if t.Symbol != f.benchmark {
		indexMember := f.InEnabledIndex(t)

		// 3. 시가총액 미달 (지수 편입 종목은 면제)
		if !indexMember && t.MarketCap < f.minMarketCap {
			reasons = append(reasons, contracts.ReasonLowMarketCap)
		}

		// 4. 시가총액 기준 편입 (상위 N개)
		if !indexMember {
			switch {
			case !f.includeByCap:
				reasons = append(reasons, contracts.ReasonNotInUniverse)
			case capRank > f.maxTickersByCap:
				reasons = append(reasons, contracts.ReasonBeyondCapLimit)
			}
		}
	}

	if len(reasons) == 0 {
		return Decision{Admitted: true}
	}
	return Decision{Admitted: false, Reason: reasons[0], Reasons: reasons}
}

// InEnabledIndex reports whether t belongs to any enabled index set
func (f *Filter) InEnabledIndex(t contracts.Ticker) bool {
	for _, set := range f.indexes {
		if t.InIndex(set) {
			return true
		}
	}
	return false
}

// IsCapOnly reports whether t can only enter the universe through market-cap rank
func (f *Filter) IsCapOnly(t contracts.Ticker) bool {
	return t.Symbol != f.benchmark && !f.InEnabledIndex(t)
}

// Benchmark returns the reference symbol the filter exempts
func (f *Filter) Benchmark() string {
	return f.benchmark
}
