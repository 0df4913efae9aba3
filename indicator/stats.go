// Package indicator implements the numerical routines used by the analysis
// engine. Unless noted otherwise, series are ordered most recent first, the
// same ordering the storage layer returns historical windows in.
package indicator

import "math"

// EMA computes an exponential moving average over the provided series with
// smoothing factor 2/(period+1), seeded with the first value.
func EMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}

	alpha := 2.0 / float64(period+1)
	ema := values[0]
	for _, value := range values[1:] {
		ema = value*alpha + ema*(1-alpha)
	}

	return ema
}

// EMASeries computes the running exponential moving average at every index
// of the provided series as a single incremental filter pass.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 || period <= 0 {
		return nil
	}

	alpha := 2.0 / float64(period+1)
	series := make([]float64, len(values))
	series[0] = values[0]
	for i := 1; i < len(values); i++ {
		series[i] = values[i]*alpha + series[i-1]*(1-alpha)
	}

	return series
}

// SMA computes a simple moving average over the first period samples of the
// provided series.
func SMA(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}

	var sum float64
	for _, value := range values[:period] {
		sum += value
	}

	return sum / float64(period)
}

// StdDev computes the population standard deviation over the first period
// samples of the provided series.
func StdDev(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}

	mean := SMA(values, period)
	var variance float64
	for _, value := range values[:period] {
		diff := value - mean
		variance += diff * diff
	}
	variance /= float64(period)

	return math.Sqrt(variance)
}
