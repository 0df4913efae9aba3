package indicator

import (
	"math"
	"time"

	"github.com/draylan/candlefeed/shared"
)

const (
	// depthImbalancePeriod is the averaging window of the depth-imbalance proxy.
	depthImbalancePeriod = 24
	// tradingDaysPerYear is the annualization base for realized volatility.
	tradingDaysPerYear = 252
)

// Bollinger computes the upper, middle and lower Bollinger bands over the
// first period samples of the provided close series.
func Bollinger(closes []float64, period int, mult float64) (float64, float64, float64) {
	sma := SMA(closes, period)
	std := StdDev(closes, period)

	return sma + mult*std, sma, sma - mult*std
}

// ATR computes the average true range of the provided window as the EMA of
// per-bar true ranges.
func ATR(data []*shared.MarketData, period int) float64 {
	if len(data) < 2 {
		return 0
	}

	tr := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		high := data[i].High
		low := data[i].Low
		prevClose := data[i-1].Close

		r := max(high-low, math.Abs(high-prevClose), math.Abs(low-prevClose))
		tr = append(tr, r)
	}

	return EMA(tr, period)
}

// Volatility computes the annualized standard deviation of simple returns
// over up to hours*60 samples of the provided close series.
func Volatility(closes []float64, hours int) float64 {
	if len(closes) < 2 || hours <= 0 {
		return 0
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 0; i < len(closes)-1; i++ {
		if closes[i] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (closes[i+1]-closes[i])/closes[i])
	}

	period := hours * 60
	if len(returns) < period {
		period = len(returns)
	}

	return StdDev(returns, period) * math.Sqrt(tradingDaysPerYear*24/float64(hours))
}

// PriceChange computes the percentage change of the closing price relative
// to the closing price at or before now minus the provided hours. It is zero
// when no such data point exists or the reference price is zero.
func PriceChange(data []*shared.MarketData, hours int) float64 {
	return change(data, hours, func(m *shared.MarketData) float64 { return m.Close })
}

// VolumeChange computes the percentage change of volume relative to the
// volume at or before now minus the provided hours. It is zero when no such
// data point exists or the reference volume is zero.
func VolumeChange(data []*shared.MarketData, hours int) float64 {
	return change(data, hours, func(m *shared.MarketData) float64 { return m.Volume })
}

// change computes a percentage change against the newest record older than
// the target time.
func change(data []*shared.MarketData, hours int, value func(*shared.MarketData) float64) float64 {
	if len(data) < 2 || hours <= 0 {
		return 0
	}

	target := data[0].OpenTime.Add(-time.Duration(hours) * time.Hour)
	var old float64
	var found bool
	for _, record := range data {
		if !record.OpenTime.After(target) {
			old = value(record)
			found = true
			break
		}
	}

	if !found || old == 0 {
		return 0
	}

	return (value(data[0]) - old) / old * 100
}

// DepthImbalance computes a liquidity and impact proxy from recent volume
// and price dispersion. The pipeline has no order book access, so this is
// not a true book imbalance.
func DepthImbalance(data []*shared.MarketData) float64 {
	volumes := make([]float64, len(data))
	closes := make([]float64, len(data))
	for i, record := range data {
		volumes[i] = record.Volume
		closes[i] = record.Close
	}

	return SMA(volumes, depthImbalancePeriod) * StdDev(closes, depthImbalancePeriod)
}
