package market

import (
	"math"

	"github.com/montanaflynn/stats"

	"autonomity/src/datamodels"
)

const (
	smaShortWindow   = 20
	smaLongWindow    = 50
	bollingerWindow  = 20
	bollingerWidth   = 2.0
	volatilityWindow = 20
)

// ComputeIndicators returns a copy of bars with SMA20, SMA50, Bollinger bands
// and volatility filled in. Each window uses whatever bars are available
// (minimum one); a statistic that is undefined for the available data is 0.
func ComputeIndicators(bars []datamodels.Bar) []datamodels.Bar {
	out := make([]datamodels.Bar, len(bars))
	copy(out, bars)

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	// logReturns[i] is the return from bar i-1 to bar i; index 0 has none
	logReturns := make([]float64, len(bars))
	validReturn := make([]bool, len(bars))
	for i := 1; i < len(bars); i++ {
		if closes[i-1] > 0 && closes[i] > 0 {
			logReturns[i] = math.Log(closes[i] / closes[i-1])
			validReturn[i] = true
		}
	}

	for i := range out {
		out[i].SMA20 = finiteOrZero(mean(trailing(closes, i, smaShortWindow)))
		out[i].SMA50 = finiteOrZero(mean(trailing(closes, i, smaLongWindow)))

		std := sampleStd(trailing(closes, i, bollingerWindow))
		out[i].BBMid = out[i].SMA20
		if math.IsNaN(std) {
			out[i].BBUpper = 0
			out[i].BBLower = 0
		} else {
			out[i].BBUpper = finiteOrZero(out[i].SMA20 + bollingerWidth*std)
			out[i].BBLower = finiteOrZero(out[i].SMA20 - bollingerWidth*std)
		}

		start := i - volatilityWindow + 1
		if start < 0 {
			start = 0
		}
		window := make([]float64, 0, volatilityWindow)
		for j := start; j <= i; j++ {
			if validReturn[j] {
				window = append(window, logReturns[j])
			}
		}
		out[i].Volatility = finiteOrZero(sampleStd(window))
	}

	return out
}

func trailing(values []float64, i int, window int) []float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	return values[start : i+1]
}

func mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return math.NaN()
	}
	return m
}

// sampleStd is NaN with fewer than two observations
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return math.NaN()
	}
	return sd
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
