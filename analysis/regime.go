package analysis

import "github.com/draylan/candlefeed/shared"

// minRegimeBars is the minimum window length required to classify a regime.
const minRegimeBars = 20

// ClassifyRegime maps annualized volatility, ADX and trend direction onto a
// market regime. The checks run in strict priority order with the first
// match winning.
func ClassifyRegime(volatility, adx float64, direction int, volThreshold, adxThreshold float64) shared.MarketRegime {
	switch {
	case volatility > volThreshold:
		return shared.HighVolatility
	case volatility < volThreshold*0.5:
		return shared.LowVolatility
	case adx > adxThreshold && direction > 0:
		return shared.TrendingUp
	case adx > adxThreshold && direction < 0:
		return shared.TrendingDown
	default:
		return shared.Ranging
	}
}