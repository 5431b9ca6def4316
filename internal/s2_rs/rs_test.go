package s2_rs

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/logger"
)

var start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// linearSeries grows the close by step per day starting at base
func linearSeries(n int, base, step float64) contracts.PriceSeries {
	s := make(contracts.PriceSeries, n)
	for i := range s {
		s[i] = contracts.PricePoint{Date: start.AddDate(0, 0, i), Close: base + step*float64(i), Volume: 1_000_000}
	}
	return s
}

func TestLookbackRatios(t *testing.T) {
	s := linearSeries(RequiredCloses, 100, 1) // close[252] = 352

	ratios, err := LookbackRatios("LIN", s)
	require.NoError(t, err)
	require.Len(t, ratios, 4)

	assert.InDelta(t, 352.0/289.0, ratios[0], 1e-12) // 352-63
	assert.InDelta(t, 352.0/226.0, ratios[1], 1e-12)
	assert.InDelta(t, 352.0/163.0, ratios[2], 1e-12)
	assert.InDelta(t, 352.0/100.0, ratios[3], 1e-12)
}

func TestLookbackRatios_Faults(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		_, err := LookbackRatios("SHORT", linearSeries(252, 100, 1))

		var fault *contracts.InsufficientHistoryFault
		require.True(t, errors.As(err, &fault))
		assert.Equal(t, 252, fault.Have)
		assert.Equal(t, RequiredCloses, fault.Need)
	})

	tests := []struct {
		name   string
		index  int // 시계열 내 위치
		price  float64
		offset int
	}{
		{"zero as-of close", 252, 0, 0},
		{"negative quarter close", 252 - 63, -5, 63},
		{"nan year-ago close", 0, math.NaN(), 252},
		{"zero three-quarter close", 252 - 189, 0, 189},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := linearSeries(RequiredCloses, 100, 1)
			s[tt.index].Close = tt.price

			_, err := LookbackRatios("BAD", s)

			var fault *contracts.InvalidPriceFault
			require.True(t, errors.As(err, &fault))
			assert.Equal(t, tt.offset, fault.Offset)
		})
	}

	t.Run("bad price off the offsets is ignored", func(t *testing.T) {
		s := linearSeries(RequiredCloses, 100, 1)
		s[10].Close = -1
		_, err := LookbackRatios("GAP", s)
		assert.NoError(t, err)
	})
}

func TestWeightedPerformance(t *testing.T) {
	assert.InDelta(t, 1.0, WeightedPerformance([]float64{1, 1, 1, 1}), 1e-12)
	assert.InDelta(t, 0.4*2+0.2*3+0.2*4+0.2*5, WeightedPerformance([]float64{2, 3, 4, 5}), 1e-12)

	// 최근 분기 가중치는 다른 분기의 두 배
	base := WeightedPerformance([]float64{1, 1, 1, 1})
	recent := WeightedPerformance([]float64{1.1, 1, 1, 1}) - base
	older := WeightedPerformance([]float64{1, 1.1, 1, 1}) - base
	assert.InDelta(t, 2*older, recent, 1e-12)
}

func TestRelative(t *testing.T) {
	assert.Equal(t, Scale, Relative(1.25, 1.25))
	assert.InDelta(t, 120.0, Relative(1.2, 1.0), 1e-12)
	assert.InDelta(t, 80.0, Relative(0.8, 1.0), 1e-12)
}

func TestCalculator_IdenticalSeriesEqualsScale(t *testing.T) {
	calc := NewCalculator(logger.Nop())
	s := linearSeries(300, 50, 0.37)

	bench, err := calc.Benchmark(contracts.Ticker{Symbol: "SPY", Series: s})
	require.NoError(t, err)

	scored, err := calc.Score(contracts.Ticker{Symbol: "CLONE", Series: s}, bench)
	require.NoError(t, err)
	assert.Equal(t, Scale, scored.RawScore)
	assert.Equal(t, bench.Performance, scored.Strength)

	self, err := calc.Score(contracts.Ticker{Symbol: "SPY", Series: s}, bench)
	require.NoError(t, err)
	assert.Equal(t, Scale, self.RawScore)
}

func TestCalculator_RecentQuarterSensitivity(t *testing.T) {
	calc := NewCalculator(logger.Nop())
	bench, err := calc.Benchmark(contracts.Ticker{Symbol: "SPY", Series: linearSeries(RequiredCloses, 100, 0.5)})
	require.NoError(t, err)

	prev := math.Inf(-1)
	for _, quarterStart := range []float64{300, 250, 200, 150} {
		s := linearSeries(RequiredCloses, 100, 1)
		// close[asOf-63] 하락 = 최근 분기 수익률 상승 (다른 분기 고정)
		s[RequiredCloses-1-63].Close = quarterStart

		scored, err := calc.Score(contracts.Ticker{Symbol: "T", Series: s}, bench)
		require.NoError(t, err)
		assert.Greater(t, scored.RawScore, prev)
		prev = scored.RawScore
	}
}

func TestCalculator_AsOfMismatch(t *testing.T) {
	calc := NewCalculator(logger.Nop())
	bench, err := calc.Benchmark(contracts.Ticker{Symbol: "SPY", Series: linearSeries(300, 100, 1)})
	require.NoError(t, err)

	// 하루 일찍 끝나는 시계열
	stale := linearSeries(299, 100, 1)
	_, err = calc.Score(contracts.Ticker{Symbol: "STALE", Series: stale}, bench)

	var fault *contracts.InvalidPriceFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, 0, fault.Offset)
	assert.True(t, contracts.IsTickerFault(err))
}

func TestCalculator_BenchmarkFault(t *testing.T) {
	calc := NewCalculator(logger.Nop())
	_, err := calc.Benchmark(contracts.Ticker{Symbol: "SPY", Series: linearSeries(100, 100, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "benchmark SPY")

	var fault *contracts.InsufficientHistoryFault
	assert.True(t, errors.As(err, &fault))
}
