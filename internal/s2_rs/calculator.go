package s2_rs

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/logger"
)

// Benchmark is the reference performance shared read-only by every Score call
type Benchmark struct {
	Symbol      string
	AsOf        time.Time
	Performance float64 // B
}

// Calculator computes RS scores against one benchmark
// ⭐ SSOT: RS 점수 계산은 여기서만
type Calculator struct {
	logger *logger.Logger
}

// NewCalculator creates a new RS calculator
func NewCalculator(log *logger.Logger) *Calculator {
	return &Calculator{
		logger: log.Component(string(contracts.StageScore)),
	}
}

// Benchmark computes B once per run
func (c *Calculator) Benchmark(t contracts.Ticker) (*Benchmark, error) {
	ratios, err := LookbackRatios(t.Symbol, t.Series)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", t.Symbol, err)
	}

	b := WeightedPerformance(ratios)

	c.logger.WithFields(map[string]interface{}{
		"benchmark":   t.Symbol,
		"as_of":       t.Series.AsOf().Format("2006-01-02"),
		"performance": b,
	}).Info("Benchmark performance computed")

	return &Benchmark{Symbol: t.Symbol, AsOf: t.Series.AsOf(), Performance: b}, nil
}

// Score composes ratios → P → P/B for one ticker
func (c *Calculator) Score(t contracts.Ticker, bench *Benchmark) (contracts.ScoredTicker, error) {
	// 기준일 불일치 = as-of 시점 가격 결측
	if asOf := t.Series.AsOf(); !asOf.Equal(bench.AsOf) {
		return contracts.ScoredTicker{}, &contracts.InvalidPriceFault{Symbol: t.Symbol, Offset: 0, Price: math.NaN()}
	}

	ratios, err := LookbackRatios(t.Symbol, t.Series)
	if err != nil {
		return contracts.ScoredTicker{}, err
	}

	p := WeightedPerformance(ratios)
	raw := Relative(p, bench.Performance)

	c.logger.WithFields(map[string]interface{}{
		"symbol":    t.Symbol,
		"ratios":    ratios,
		"strength":  p,
		"raw_score": raw,
	}).Debug("Calculated RS score")

	return contracts.ScoredTicker{Symbol: t.Symbol, RawScore: raw, Strength: p}, nil
}
