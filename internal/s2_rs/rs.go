package s2_rs

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/rsrank/internal/contracts"
)

// Lookbacks are the quarter offsets in trading days, most recent first
var Lookbacks = []int{63, 126, 189, 252}

// Weights double the most recent quarter (IBD convention)
var Weights = []float64{0.4, 0.2, 0.2, 0.2}

// Scale turns the P/B ratio into display magnitude
const Scale = 100.0

// RequiredCloses is the longest lookback plus the as-of close
const RequiredCloses = 252 + 1

// LookbackRatios returns close[asOf]/close[asOf-k] for every lookback k, by position from the last point
func LookbackRatios(symbol string, series contracts.PriceSeries) ([]float64, error) {
	n := series.Len()
	if n < RequiredCloses {
		return nil, &contracts.InsufficientHistoryFault{Symbol: symbol, Have: n, Need: RequiredCloses}
	}

	last := series[n-1].Close
	if !validPrice(last) {
		return nil, &contracts.InvalidPriceFault{Symbol: symbol, Offset: 0, Price: last}
	}

	ratios := make([]float64, len(Lookbacks))
	for i, k := range Lookbacks {
		past := series[n-1-k].Close
		if !validPrice(past) {
			return nil, &contracts.InvalidPriceFault{Symbol: symbol, Offset: k, Price: past}
		}
		ratios[i] = last / past
	}

	return ratios, nil
}

// WeightedPerformance returns P = 0.4*r63 + 0.2*r126 + 0.2*r189 + 0.2*r252
func WeightedPerformance(ratios []float64) float64 {
	return floats.Dot(Weights, ratios)
}

// Relative returns p / b scaled for display
func Relative(p, b float64) float64 {
	return p / b * Scale
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
