package analysis

import (
	"math"
	"sort"

	"github.com/draylan/candlefeed/shared"
)

// FindSupportResistance scans the provided most-recent-first window for
// local extrema using a symmetric window on both sides, then clusters the
// raw candidates into merged levels. Both level slices are sorted ascending.
func FindSupportResistance(data []*shared.MarketData, window int, threshold float64) ([]float64, []float64) {
	if window <= 0 || len(data) <= window*2 {
		return nil, nil
	}

	var supports, resistances []float64
	for i := window; i < len(data)-window; i++ {
		price := data[i].Close

		isSupport := true
		isResistance := true
		for j := 0; j < window && (isSupport || isResistance); j++ {
			if data[i-j].Low < data[i].Low || data[i+j].Low < data[i].Low {
				isSupport = false
			}
			if data[i-j].High > data[i].High || data[i+j].High > data[i].High {
				isResistance = false
			}
		}

		if isSupport {
			supports = append(supports, price)
		}
		if isResistance {
			resistances = append(resistances, price)
		}
	}

	return clusterLevels(supports, threshold), clusterLevels(resistances, threshold)
}

// clusterLevels merges nearby raw levels. The first ungrouped price seeds a
// cluster, every other candidate within the relative threshold is absorbed,
// and the cluster mean is emitted; the remainder repeats until exhausted.
func clusterLevels(levels []float64, threshold float64) []float64 {
	var clustered []float64

	for len(levels) > 0 {
		base := levels[0]
		var sum float64
		var count int
		remaining := levels[:0:0]

		for _, price := range levels {
			if base != 0 && math.Abs(price-base)/base < threshold {
				sum += price
				count++
				continue
			}
			remaining = append(remaining, price)
		}

		if count > 0 {
			clustered = append(clustered, sum/float64(count))
		} else {
			// The seed itself cannot be absorbed, drop it to guarantee progress.
			remaining = remaining[1:]
		}

		levels = remaining
	}

	sort.Float64s(clustered)
	return clustered
}

// NearestLevels returns the closest support below and the closest
// resistance above the provided price. A zero value means no level exists
// on that side.
func NearestLevels(supports, resistances []float64, price float64) (float64, float64) {
	var nearestSupport, nearestResistance float64

	for _, level := range supports {
		if level < price && level > nearestSupport {
			nearestSupport = level
		}
	}
	for _, level := range resistances {
		if level > price && (nearestResistance == 0 || level < nearestResistance) {
			nearestResistance = level
		}
	}

	return nearestSupport, nearestResistance
}
