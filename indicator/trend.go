package indicator

import (
	"math"

	"github.com/draylan/candlefeed/shared"
)

// trendDeadBand is the relative EMA separation below which the trend
// direction is considered neutral.
const trendDeadBand = 0.001

// directionalMovement derives the per-bar true range and directional
// movement series from the provided window.
func directionalMovement(data []*shared.MarketData) (tr, plusDM, minusDM []float64) {
	tr = make([]float64, 0, len(data)-1)
	plusDM = make([]float64, 0, len(data)-1)
	minusDM = make([]float64, 0, len(data)-1)

	for i := 1; i < len(data); i++ {
		high, low := data[i].High, data[i].Low
		prevHigh, prevLow := data[i-1].High, data[i-1].Low
		prevClose := data[i-1].Close

		tr = append(tr, max(high-low, math.Abs(high-prevClose), math.Abs(low-prevClose)))

		upMove := high - prevHigh
		downMove := prevLow - low
		switch {
		case upMove > downMove && upMove > 0:
			plusDM = append(plusDM, upMove)
			minusDM = append(minusDM, 0)
		case downMove > upMove && downMove > 0:
			plusDM = append(plusDM, 0)
			minusDM = append(minusDM, downMove)
		default:
			plusDM = append(plusDM, 0)
			minusDM = append(minusDM, 0)
		}
	}

	return tr, plusDM, minusDM
}

// ADX computes the average directional index of the provided window using
// Wilder-style smoothing of the true range and directional movement. It is
// zero when the window holds fewer than twice the period.
func ADX(data []*shared.MarketData, period int) float64 {
	if period <= 0 || len(data) < period*2 {
		return 0
	}

	tr, plusDM, minusDM := directionalMovement(data)

	var smoothedTR, smoothedPlusDM, smoothedMinusDM float64
	for i := 0; i < period; i++ {
		smoothedTR += tr[i]
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
	}

	dx := make([]float64, 0, len(tr)-period)
	for i := period; i < len(tr); i++ {
		smoothedTR = smoothedTR - smoothedTR/float64(period) + tr[i]
		smoothedPlusDM = smoothedPlusDM - smoothedPlusDM/float64(period) + plusDM[i]
		smoothedMinusDM = smoothedMinusDM - smoothedMinusDM/float64(period) + minusDM[i]

		if smoothedTR == 0 {
			dx = append(dx, 0)
			continue
		}

		plusDI := 100 * smoothedPlusDM / smoothedTR
		minusDI := 100 * smoothedMinusDM / smoothedTR
		if plusDI+minusDI == 0 {
			dx = append(dx, 0)
			continue
		}

		dx = append(dx, 100*math.Abs(plusDI-minusDI)/(plusDI+minusDI))
	}

	return EMA(dx, period)
}

// DMI computes the positive and negative directional indicators of the
// provided window.
func DMI(data []*shared.MarketData, period int) (float64, float64) {
	if period <= 0 || len(data) < 2 {
		return 0, 0
	}

	tr, plusDM, minusDM := directionalMovement(data)
	smoothedTR := EMA(tr, period)
	if smoothedTR == 0 {
		return 0, 0
	}

	plusDI := EMA(plusDM, period) / smoothedTR * 100
	minusDI := EMA(minusDM, period) / smoothedTR * 100

	return plusDI, minusDI
}

// TrendDirection compares a short EMA against a long EMA over the first
// period samples of the provided window and reports 1 for an uptrend, -1
// for a downtrend, and 0 when the averages sit within the dead band. The
// averages are evaluated in chronological order so recent bars carry the
// most weight.
func TrendDirection(data []*shared.MarketData, period int) int {
	if period <= 0 || len(data) < period {
		return 0
	}

	closes := make([]float64, period)
	for i := 0; i < period; i++ {
		closes[i] = data[period-1-i].Close
	}

	shortMA := EMA(closes, period/4)
	longMA := EMA(closes, period)
	if longMA == 0 {
		return 0
	}

	switch {
	case math.Abs(shortMA-longMA)/longMA < trendDeadBand:
		return 0
	case shortMA > longMA:
		return 1
	default:
		return -1
	}
}
