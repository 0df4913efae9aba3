package analysis

import (
	"math"

	"github.com/draylan/candlefeed/indicator"
	"github.com/draylan/candlefeed/shared"
)

const (
	// Composite strength weights per component.
	rangeWeight       = 0.25
	volumeWeight      = 0.20
	qualityWeight     = 0.25
	trendWeight       = 0.15
	consistencyWeight = 0.15

	// rangeFloor and rangeCeil bound the relative price range considered
	// meaningful for a pattern.
	rangeFloor = 0.01
	rangeCeil  = 0.1
	// idealPatternBars is the formation length a structural pattern is
	// scored against.
	idealPatternBars = 20
	// volumeSampleBars is the number of leading bars averaged for volume
	// confirmation.
	volumeSampleBars = 3
	// neutralScore is assigned to components with no directional evidence.
	neutralScore = 0.5
	// momentumSpan is the lookback used for the rate-of-change component.
	momentumSpan = 10
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// PatternStrength scores a detected pattern on the most-recent-first window,
// combining price-range magnitude, volume confirmation, formation quality,
// trend context and candle consistency into a composite in [0, 1].
func PatternStrength(data []*shared.MarketData, pattern shared.PricePattern, volumeThreshold float64) float64 {
	window := PatternWindow(data, pattern)
	if len(window) == 0 {
		return 0
	}

	score := rangeWeight*rangeMagnitudeScore(window) +
		volumeWeight*volumeConfirmationScore(data, volumeThreshold) +
		qualityWeight*formationQualityScore(window) +
		trendWeight*trendContextScore(data, pattern) +
		consistencyWeight*consistencyScore(window)

	return clamp01(score)
}

// rangeMagnitudeScore grades the relative price range of the formation,
// damped when background volatility already accounts for the move and scaled
// by how close the formation length is to the ideal.
func rangeMagnitudeScore(window []*shared.MarketData) float64 {
	high := math.Inf(-1)
	low := math.Inf(1)
	closes := make([]float64, len(window))
	for i, bar := range window {
		high = math.Max(high, bar.High)
		low = math.Min(low, bar.Low)
		closes[i] = bar.Close
	}
	if low <= 0 {
		return 0
	}

	rel := (high - low) / low
	base := clamp01((rel - rangeFloor) / (rangeCeil - rangeFloor))

	if vol := returnDeviation(closes); vol > 0 {
		base *= clamp01(rel / (vol * math.Sqrt(float64(len(window)))))
	}

	duration := 1 - clamp01(math.Abs(float64(len(window))-idealPatternBars)/idealPatternBars)

	return clamp01(base * (0.5 + 0.5*duration))
}

// volumeConfirmationScore compares recent volume to the series average and
// maps the ratio onto a stepped confirmation score.
func volumeConfirmationScore(data []*shared.MarketData, threshold float64) float64 {
	if len(data) == 0 {
		return neutralScore
	}

	volumes := make([]float64, len(data))
	for i, bar := range data {
		volumes[i] = bar.Volume
	}

	seriesAvg := indicator.SMA(volumes, len(volumes))
	if seriesAvg == 0 {
		return neutralScore
	}

	ratio := indicator.SMA(volumes, volumeSampleBars) / seriesAvg
	switch {
	case ratio >= threshold:
		return 1
	case ratio >= 1.2:
		return 0.75
	case ratio >= 1.0:
		return 0.5
	case ratio >= 0.8:
		return 0.25
	default:
		return 0.1
	}
}

// formationQualityScore averages price-level alignment, time symmetry of the
// price range around the formation midpoint, and the inverse of normalized
// closing-price noise.
func formationQualityScore(window []*shared.MarketData) float64 {
	if len(window) < 2 {
		return neutralScore
	}

	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	closes := make([]float64, len(window))
	for i, bar := range window {
		highs[i] = bar.High
		lows[i] = bar.Low
		closes[i] = bar.Close
	}

	alignment := 1 - clamp01((relativeDeviation(highs)+relativeDeviation(lows))/2/0.05)

	mid := len(window) / 2
	firstRange := sliceRange(window[:mid])
	secondRange := sliceRange(window[mid:])
	symmetry := neutralScore
	if total := firstRange + secondRange; total > 0 {
		symmetry = 1 - clamp01(math.Abs(firstRange-secondRange)/total)
	}

	noise := 1 - clamp01(returnDeviation(closes)/0.02)

	return (alignment + symmetry + noise) / 3
}

// trendContextScore grades the prevailing trend for reversal patterns. A
// reversal carries more weight against an established trend of ideal length
// with fading momentum. Non-reversal patterns score neutral.
func trendContextScore(data []*shared.MarketData, pattern shared.PricePattern) float64 {
	if !pattern.Reversal() || len(data) < 2 {
		return neutralScore
	}

	adxScore := clamp01(indicator.ADX(data, 14) / 50)

	duration := trendRunLength(data)
	durationScore := 1 - clamp01(math.Abs(float64(duration)-idealPatternBars)/idealPatternBars)

	span := momentumSpan
	if span > len(data)-1 {
		span = len(data) - 1
	}
	momentumScore := neutralScore
	if ref := data[span].Close; ref > 0 {
		momentumScore = clamp01(math.Abs(data[0].Close-ref) / ref / 0.05)
	}

	return (adxScore + durationScore + momentumScore) / 3
}

// trendRunLength counts how many consecutive bars, newest backwards, moved
// in the same direction.
func trendRunLength(data []*shared.MarketData) int {
	if len(data) < 2 {
		return 0
	}

	up := data[0].Close > data[1].Close
	run := 1
	for i := 1; i < len(data)-1; i++ {
		if (data[i].Close > data[i+1].Close) != up {
			break
		}
		run++
	}

	return run
}

// consistencyScore grades how uniform candle bodies and shadows are across
// the formation.
func consistencyScore(window []*shared.MarketData) float64 {
	if len(window) < 2 {
		return neutralScore
	}

	bodies := make([]float64, len(window))
	shadows := make([]float64, len(window))
	for i, bar := range window {
		bodies[i] = bar.Body()
		shadows[i] = bar.UpperShadow() + bar.LowerShadow()
	}

	bodyScore := 1 - clamp01(relativeDeviation(bodies))
	shadowScore := 1 - clamp01(relativeDeviation(shadows))

	return (bodyScore + shadowScore) / 2
}

// relativeDeviation is the population standard deviation normalized by the
// mean, zero when the mean is zero.
func relativeDeviation(values []float64) float64 {
	mean := indicator.SMA(values, len(values))
	if mean == 0 {
		return 0
	}

	return indicator.StdDev(values, len(values)) / math.Abs(mean)
}

// returnDeviation is the population standard deviation of simple bar-to-bar
// returns.
func returnDeviation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 0; i < len(values)-1; i++ {
		if values[i+1] == 0 {
			continue
		}
		returns = append(returns, (values[i]-values[i+1])/values[i+1])
	}

	return indicator.StdDev(returns, len(returns))
}

// sliceRange returns high minus low across the bars.
func sliceRange(bars []*shared.MarketData) float64 {
	if len(bars) == 0 {
		return 0
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	for _, bar := range bars {
		high = math.Max(high, bar.High)
		low = math.Min(low, bar.Low)
	}

	return high - low
}
