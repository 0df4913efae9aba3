package analysis

import (
	"testing"

	"github.com/peterldowns/testy/assert"

	"github.com/draylan/candlefeed/shared"
)

func TestPatternStrengthBounds(t *testing.T) {
	// Ensure every scored formation stays inside the unit interval.
	windows := [][]*shared.MarketData{
		peakWindow(250, 100, map[int]float64{4: 110, 12: 110}),
		troughWindow(250, 100, map[int]float64{3: 95, 9: 90, 15: 95}),
		flatWindow(250, 100),
	}
	patterns := []shared.PricePattern{
		shared.DoubleTop,
		shared.InverseHeadAndShoulders,
		shared.Doji,
		shared.BullishEngulfing,
	}

	for _, window := range windows {
		for _, pattern := range patterns {
			strength := PatternStrength(window, pattern, 1.5)
			assert.GreaterThanOrEqual(t, strength, 0)
			assert.LessThanOrEqual(t, strength, 1)
		}
	}

	// Ensure an empty window scores zero.
	assert.Equal(t, PatternStrength(nil, shared.Doji, 1.5), 0)
}

func TestVolumeConfirmationScore(t *testing.T) {
	// Each window keeps the series average at 100 sized bars while the
	// leading bars carry the recent volume.
	build := func(recent float64) []*shared.MarketData {
		window := flatWindow(60, 100)
		for i := 0; i < volumeSampleBars; i++ {
			window[i].Volume = recent
		}
		return window
	}

	// Ensure the stepped score orders with the volume ratio.
	surge := volumeConfirmationScore(build(400), 1.5)
	lift := volumeConfirmationScore(build(150), 1.5)
	level := volumeConfirmationScore(build(100), 1.5)
	drought := volumeConfirmationScore(build(10), 1.5)

	assert.Equal(t, surge, 1.0)
	assert.GreaterThan(t, surge, lift)
	assert.GreaterThan(t, lift, level)
	assert.GreaterThan(t, level, drought)

	// Ensure a dead series scores neutral.
	dead := flatWindow(10, 100)
	for _, bar := range dead {
		bar.Volume = 0
	}
	assert.Equal(t, volumeConfirmationScore(dead, 1.5), neutralScore)
}

func TestTrendContextScore(t *testing.T) {
	window := flatWindow(250, 100)

	// Ensure non-reversal patterns score neutral regardless of the window.
	assert.Equal(t, trendContextScore(window, shared.Doji), neutralScore)
	assert.Equal(t, trendContextScore(window, shared.BullishEngulfing), neutralScore)

	// Ensure reversal patterns are graded on the prevailing trend.
	trending := make([]*shared.MarketData, 250)
	for i := range trending {
		price := 500 - float64(i)
		trending[i] = candle(i, price, price+1, price-1, price, 100)
	}
	assert.GreaterThan(t, trendContextScore(trending, shared.DoubleTop),
		trendContextScore(window, shared.DoubleTop))
}

func TestConsistencyScore(t *testing.T) {
	// Ensure uniform candles score higher than ragged ones.
	uniform := flatWindow(20, 100)
	ragged := flatWindow(20, 100)
	for i, bar := range ragged {
		if i%2 == 0 {
			bar.Close = bar.Open + 5
			bar.High = bar.Close + 4
		}
	}

	assert.GreaterThan(t, consistencyScore(uniform), consistencyScore(ragged))
}
