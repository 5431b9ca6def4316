package quality

import (
	"sort"
	"time"

	"github.com/wonny/rsrank/internal/contracts"
)

// Coverage keys
const (
	CoveragePrice     = "price"
	CoverageHistory   = "history"
	CoverageVolume    = "volume"
	CoverageAligned   = "aligned"
	CoverageProfile   = "profile"
	CoverageMarketCap = "market_cap"
)

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage   float64 `yaml:"min_price_coverage"`   // 0.95
	MinHistoryCoverage float64 `yaml:"min_history_coverage"` // 0.80
	RequiredCloses     int     `yaml:"required_closes"`      // 253
}

// DefaultConfig returns the thresholds used after each collection
func DefaultConfig(requiredCloses int) Config {
	return Config{
		MinPriceCoverage:   0.95,
		MinHistoryCoverage: 0.80,
		RequiredCloses:     requiredCloses,
	}
}

// Snapshot summarizes how complete a collected ticker set is
type Snapshot struct {
	AsOf         time.Time          `json:"as_of"`
	TotalTickers int                `json:"total_tickers"`
	ValidTickers int                `json:"valid_tickers"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
	Stale        []string           `json:"stale,omitempty"` // AsOf 불일치 종목
}

// QualityGate validates a collected snapshot before ranking
// Never removes tickers; the universe filter decides admission.
type QualityGate struct {
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check computes coverage ratios over the ticker set
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(tickers []contracts.Ticker) *Snapshot {
	snapshot := &Snapshot{
		TotalTickers: len(tickers),
		Coverage:     make(map[string]float64),
	}
	if len(tickers) == 0 {
		return snapshot
	}

	// 1. 기준일: 가장 최근 거래일
	for _, t := range tickers {
		if asOf := t.Series.AsOf(); asOf.After(snapshot.AsOf) {
			snapshot.AsOf = asOf
		}
	}

	// 2. 커버리지 집계
	counts := make(map[string]int)
	for _, t := range tickers {
		if t.Series.Len() > 0 {
			counts[CoveragePrice]++
		}
		if t.Series.Len() >= g.config.RequiredCloses {
			counts[CoverageHistory]++
			snapshot.ValidTickers++
		}
		if t.MeanVolume() > 0 {
			counts[CoverageVolume]++
		}
		if t.Series.Len() > 0 {
			if t.Series.AsOf().Equal(snapshot.AsOf) {
				counts[CoverageAligned]++
			} else {
				snapshot.Stale = append(snapshot.Stale, t.Symbol)
			}
		}
		if t.Sector != "" && t.Sector != "Unknown" {
			counts[CoverageProfile]++
		}
		if t.MarketCap > 0 {
			counts[CoverageMarketCap]++
		}
	}

	total := float64(len(tickers))
	for _, key := range []string{CoveragePrice, CoverageHistory, CoverageVolume, CoverageAligned, CoverageProfile, CoverageMarketCap} {
		snapshot.Coverage[key] = float64(counts[key]) / total
	}
	sort.Strings(snapshot.Stale)

	// 3. 품질 점수 계산
	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.Coverage[CoveragePrice] >= g.config.MinPriceCoverage &&
		snapshot.Coverage[CoverageHistory] >= g.config.MinHistoryCoverage

	return snapshot
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		CoveragePrice:     0.30, // 가격 데이터 필수
		CoverageHistory:   0.25, // 1년 이상 이력
		CoverageVolume:    0.15, // 거래량
		CoverageAligned:   0.15, // 기준일 일치
		CoverageProfile:   0.10, // 섹터/업종
		CoverageMarketCap: 0.05, // 시가총액
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
