package indicator

const (
	// macdFastPeriod is the fast EMA period of the MACD indicator.
	macdFastPeriod = 12
	// macdSlowPeriod is the slow EMA period of the MACD indicator.
	macdSlowPeriod = 26
	// macdSignalPeriod is the signal line EMA period of the MACD indicator.
	macdSignalPeriod = 9
)

// RSI computes the relative strength index over the first period samples of
// the provided close series. An all-flat series scores the neutral 50, a
// series with no losing deltas scores 100.
func RSI(closes []float64, period int) float64 {
	if len(closes) < 2 || period <= 0 {
		return 50
	}

	gains := make([]float64, 1, len(closes))
	losses := make([]float64, 1, len(closes))
	for i := 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gains = append(gains, max(diff, 0))
		losses = append(losses, max(-diff, 0))
	}

	var gainSum, lossSum float64
	for i := 0; i < min(period, len(gains)); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	return 100 - 100/(1+avgGain/avgLoss)
}

// MACD computes the MACD line, signal line and histogram over the provided
// close series. The fast and slow EMAs are maintained incrementally across
// the series, and the signal line is the EMA of the resulting MACD series.
func MACD(closes []float64) (float64, float64, float64) {
	if len(closes) == 0 {
		return 0, 0, 0
	}

	fast := EMASeries(closes, macdFastPeriod)
	slow := EMASeries(closes, macdSlowPeriod)

	macdLines := make([]float64, len(closes))
	for i := range closes {
		macdLines[i] = fast[i] - slow[i]
	}

	line := macdLines[len(macdLines)-1]
	signal := EMA(macdLines, macdSignalPeriod)

	return line, signal, line - signal
}
