package analysis

import (
	"math"

	"github.com/draylan/candlefeed/shared"
)

const (
	// structuralPatternBars is the window length checked by the structural
	// pattern detectors (tops, bottoms, head and shoulders).
	structuralPatternBars = 20
	// dojiBodyRatio is the maximum body-to-range ratio of a doji candle.
	dojiBodyRatio = 0.1
	// extremumSpan is the symmetric span a bar must dominate to count as a
	// local extremum for structural patterns.
	extremumSpan = 2
	// minExtremumDistance is the minimum index distance between the paired
	// extrema of a structural pattern.
	minExtremumDistance = 5
	// peakSimilarityThreshold is the maximum relative price difference
	// between paired peaks or troughs.
	peakSimilarityThreshold = 0.02
	// minInterveningDepth is the minimum relative depth (or height) of the
	// move between paired extrema.
	minInterveningDepth = 0.03
	// shoulderSimilarityThreshold is the maximum relative difference between
	// the shoulders (and troughs) of a head and shoulders formation.
	shoulderSimilarityThreshold = 0.03
	// headProminenceMin is the minimum relative prominence of the head over
	// the shoulder average.
	headProminenceMin = 0.02
)

// extremum is a local price extremum within a window.
type extremum struct {
	idx   int
	price float64
}

// DetectPattern reports whether the provided pattern is present on the
// most-recent-first window. Candlestick patterns inspect the leading bars,
// structural patterns the leading structuralPatternBars.
func DetectPattern(data []*shared.MarketData, pattern shared.PricePattern) bool {
	switch pattern {
	case shared.BullishEngulfing:
		return len(data) >= 2 && isBullishEngulfing(data[0], data[1])
	case shared.BearishEngulfing:
		return len(data) >= 2 && isBearishEngulfing(data[0], data[1])
	case shared.Doji:
		return len(data) >= 1 && isDoji(data[0])
	case shared.MorningStar:
		return len(data) >= 3 && isMorningStar(data[0], data[1], data[2])
	case shared.EveningStar:
		return len(data) >= 3 && isEveningStar(data[0], data[1], data[2])
	case shared.DoubleTop:
		return len(data) >= structuralPatternBars && isDoubleTop(data[:structuralPatternBars])
	case shared.DoubleBottom:
		return len(data) >= structuralPatternBars && isDoubleBottom(data[:structuralPatternBars])
	case shared.HeadAndShoulders:
		return len(data) >= structuralPatternBars && isHeadAndShoulders(data[:structuralPatternBars])
	case shared.InverseHeadAndShoulders:
		return len(data) >= structuralPatternBars && isInverseHeadAndShoulders(data[:structuralPatternBars])
	default:
		return false
	}
}

// PatternWindow returns the sub-slice of the window a pattern is scored on.
func PatternWindow(data []*shared.MarketData, pattern shared.PricePattern) []*shared.MarketData {
	size := structuralPatternBars
	switch pattern {
	case shared.Doji:
		size = 1
	case shared.BullishEngulfing, shared.BearishEngulfing:
		size = 2
	case shared.MorningStar, shared.EveningStar:
		size = 3
	}

	if size > len(data) {
		size = len(data)
	}
	return data[:size]
}

func isBullishEngulfing(curr, prev *shared.MarketData) bool {
	return prev.Bearish() && curr.Bullish() &&
		curr.Open < prev.Close && curr.Close > prev.Open
}

func isBearishEngulfing(curr, prev *shared.MarketData) bool {
	return prev.Bullish() && curr.Bearish() &&
		curr.Open > prev.Close && curr.Close < prev.Open
}

func isDoji(candle *shared.MarketData) bool {
	total := candle.Range()
	if total == 0 {
		return false
	}

	return candle.Body()/total < dojiBodyRatio
}

// isMorningStar checks a bearish day, a doji, then a bullish day, newest
// candle first.
func isMorningStar(third, second, first *shared.MarketData) bool {
	return first.Bearish() && isDoji(second) && third.Bullish()
}

// isEveningStar checks a bullish day, a doji, then a bearish day, newest
// candle first.
func isEveningStar(third, second, first *shared.MarketData) bool {
	return first.Bullish() && isDoji(second) && third.Bearish()
}

// localMaxima returns the bars whose high strictly dominates the
// surrounding extremumSpan bars on both sides.
func localMaxima(data []*shared.MarketData) []extremum {
	var peaks []extremum
	for i := extremumSpan; i < len(data)-extremumSpan; i++ {
		high := data[i].High
		dominant := true
		for j := 1; j <= extremumSpan; j++ {
			if high <= data[i-j].High || high <= data[i+j].High {
				dominant = false
				break
			}
		}
		if dominant {
			peaks = append(peaks, extremum{idx: i, price: high})
		}
	}

	return peaks
}

// localMinima returns the bars whose low strictly dominates the surrounding
// extremumSpan bars on both sides.
func localMinima(data []*shared.MarketData) []extremum {
	var troughs []extremum
	for i := extremumSpan; i < len(data)-extremumSpan; i++ {
		low := data[i].Low
		dominant := true
		for j := 1; j <= extremumSpan; j++ {
			if low >= data[i-j].Low || low >= data[i+j].Low {
				dominant = false
				break
			}
		}
		if dominant {
			troughs = append(troughs, extremum{idx: i, price: low})
		}
	}

	return troughs
}

func isDoubleTop(data []*shared.MarketData) bool {
	peaks := localMaxima(data)
	if len(peaks) < 2 {
		return false
	}

	for i := 0; i < len(peaks)-1; i++ {
		for j := i + 1; j < len(peaks); j++ {
			first, second := peaks[i], peaks[j]
			if second.idx-first.idx < minExtremumDistance {
				continue
			}
			if math.Abs(first.price-second.price)/first.price > peakSimilarityThreshold {
				continue
			}

			minTrough := math.Inf(1)
			for k := first.idx + 1; k < second.idx; k++ {
				minTrough = math.Min(minTrough, data[k].Low)
			}

			avgPeak := (first.price + second.price) / 2
			if (avgPeak-minTrough)/avgPeak >= minInterveningDepth {
				return true
			}
		}
	}

	return false
}

func isDoubleBottom(data []*shared.MarketData) bool {
	troughs := localMinima(data)
	if len(troughs) < 2 {
		return false
	}

	for i := 0; i < len(troughs)-1; i++ {
		for j := i + 1; j < len(troughs); j++ {
			first, second := troughs[i], troughs[j]
			if second.idx-first.idx < minExtremumDistance {
				continue
			}
			if math.Abs(first.price-second.price)/first.price > peakSimilarityThreshold {
				continue
			}

			maxPeak := math.Inf(-1)
			for k := first.idx + 1; k < second.idx; k++ {
				maxPeak = math.Max(maxPeak, data[k].High)
			}

			avgTrough := (first.price + second.price) / 2
			if (maxPeak-avgTrough)/avgTrough >= minInterveningDepth {
				return true
			}
		}
	}

	return false
}

func isHeadAndShoulders(data []*shared.MarketData) bool {
	peaks := localMaxima(data)
	if len(peaks) < 3 {
		return false
	}

	for i := 0; i < len(peaks)-2; i++ {
		for j := i + 1; j < len(peaks)-1; j++ {
			for k := j + 1; k < len(peaks); k++ {
				left, head, right := peaks[i], peaks[j], peaks[k]
				if head.idx-left.idx < minExtremumDistance || right.idx-head.idx < minExtremumDistance {
					continue
				}
				if math.Abs(left.price-right.price)/left.price > shoulderSimilarityThreshold {
					continue
				}

				avgShoulder := (left.price + right.price) / 2
				if (head.price-avgShoulder)/avgShoulder < headProminenceMin {
					continue
				}

				leftTrough := math.Inf(1)
				for idx := left.idx + 1; idx < head.idx; idx++ {
					leftTrough = math.Min(leftTrough, data[idx].Low)
				}
				rightTrough := math.Inf(1)
				for idx := head.idx + 1; idx < right.idx; idx++ {
					rightTrough = math.Min(rightTrough, data[idx].Low)
				}

				if math.Abs(leftTrough-rightTrough)/leftTrough <= shoulderSimilarityThreshold {
					return true
				}
			}
		}
	}

	return false
}

func isInverseHeadAndShoulders(data []*shared.MarketData) bool {
	troughs := localMinima(data)
	if len(troughs) < 3 {
		return false
	}

	for i := 0; i < len(troughs)-2; i++ {
		for j := i + 1; j < len(troughs)-1; j++ {
			for k := j + 1; k < len(troughs); k++ {
				left, head, right := troughs[i], troughs[j], troughs[k]
				if head.idx-left.idx < minExtremumDistance || right.idx-head.idx < minExtremumDistance {
					continue
				}
				if math.Abs(left.price-right.price)/left.price > shoulderSimilarityThreshold {
					continue
				}

				avgShoulder := (left.price + right.price) / 2
				if (avgShoulder-head.price)/avgShoulder < headProminenceMin {
					continue
				}

				leftPeak := math.Inf(-1)
				for idx := left.idx + 1; idx < head.idx; idx++ {
					leftPeak = math.Max(leftPeak, data[idx].High)
				}
				rightPeak := math.Inf(-1)
				for idx := head.idx + 1; idx < right.idx; idx++ {
					rightPeak = math.Max(rightPeak, data[idx].High)
				}

				if math.Abs(leftPeak-rightPeak)/leftPeak <= shoulderSimilarityThreshold {
					return true
				}
			}
		}
	}

	return false
}
