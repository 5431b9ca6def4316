package contracts

import (
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PricePoint is one daily bar (close and volume only)
type PricePoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is a ticker's daily history, ascending by date
// ⭐ SSOT: 결측일은 허용, 정렬 순서는 항상 오름차순
type PriceSeries []PricePoint

// Len returns the number of trading days in the series
func (s PriceSeries) Len() int {
	return len(s)
}

// Last returns the most recent point
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// AsOf returns the date of the most recent point (zero when empty)
func (s PriceSeries) AsOf() time.Time {
	last, ok := s.Last()
	if !ok {
		return time.Time{}
	}
	return last.Date
}

// Closes returns the closing prices in series order
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Volumes returns the daily volumes as floats
func (s PriceSeries) Volumes() []float64 {
	volumes := make([]float64, len(s))
	for i, p := range s {
		volumes[i] = float64(p.Volume)
	}
	return volumes
}

// IsSorted reports whether dates are strictly ascending
func (s PriceSeries) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if !s[i-1].Date.Before(s[i].Date) {
			return false
		}
	}
	return true
}

// IndexSet names an index universe a ticker can belong to
type IndexSet string

const (
	IndexNQ100 IndexSet = "NQ100"
	IndexSP500 IndexSet = "SP500"
	IndexSP400 IndexSet = "SP400"
	IndexSP600 IndexSet = "SP600"
	IndexR2000 IndexSet = "R2000"
)

// AllIndexSets returns every known index set
func AllIndexSets() []IndexSet {
	return []IndexSet{IndexNQ100, IndexSP500, IndexSP400, IndexSP600, IndexR2000}
}

// Ticker is one equity (or the benchmark) as loaded for a run
// ⭐ SSOT: S0 → S1/S2 종목 데이터 전달, 실행 중 불변
type Ticker struct {
	Symbol      string      `json:"ticker"`
	Name        string      `json:"name,omitempty"`
	Sector      string      `json:"sector"`
	Industry    string      `json:"industry"`
	Exchange    string      `json:"exchange"`
	MarketCap   float64     `json:"market_cap"`
	AvgVolume   float64     `json:"avg_volume,omitempty"` // 프로필 평균 거래량 (시계열 없을 때)
	TradingDays int         `json:"trading_days,omitempty"`
	Indexes     []IndexSet  `json:"indexes,omitempty"`
	Series      PriceSeries `json:"prices"`
}

// HistoryLength returns the number of trading days available
func (t *Ticker) HistoryLength() int {
	if len(t.Series) > 0 {
		return len(t.Series)
	}
	return t.TradingDays
}

// MeanVolume returns the mean daily volume over the series
func (t *Ticker) MeanVolume() float64 {
	if len(t.Series) == 0 {
		return t.AvgVolume
	}

	volumes := t.Series.Volumes()
	total := 0.0
	for _, v := range volumes {
		total += v
	}
	if total == 0 && t.AvgVolume > 0 {
		return t.AvgVolume
	}

	return stat.Mean(volumes, nil)
}

// InIndex reports whether the ticker is a member of the given index set
func (t *Ticker) InIndex(set IndexSet) bool {
	for _, s := range t.Indexes {
		if s == set {
			return true
		}
	}
	return false
}

// Profile is the descriptive/market data of a ticker without its series
type Profile struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Sector    string  `json:"sector"`
	Industry  string  `json:"industry"`
	Exchange  string  `json:"exchange"`
	MarketCap float64 `json:"market_cap"`
	AvgVolume float64 `json:"avg_volume"`
}

// Constituent is an index member as listed by the index source
type Constituent struct {
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name,omitempty"`
	Sector   string   `json:"sector,omitempty"`
	Industry string   `json:"industry,omitempty"`
	Index    IndexSet `json:"index"`
}

// NormalizeSymbol converts share-class dots to the dash form used by price sources (BRK.B → BRK-B)
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(symbol), ".", "-"))
}
