package analysis

import (
	"testing"

	"github.com/peterldowns/testy/assert"

	"github.com/draylan/candlefeed/shared"
)

func TestEngulfingPatterns(t *testing.T) {
	// Ensure a green body fully containing the prior red body is a bullish
	// engulfing.
	bullish := []*shared.MarketData{
		candle(0, 94, 102, 93, 101, 100),
		candle(1, 100, 101, 94, 95, 100),
	}
	assert.True(t, DetectPattern(bullish, shared.BullishEngulfing))
	assert.False(t, DetectPattern(bullish, shared.BearishEngulfing))

	// Ensure a red body fully containing the prior green body is a bearish
	// engulfing.
	bearish := []*shared.MarketData{
		candle(0, 101, 102, 93, 94, 100),
		candle(1, 95, 101, 94, 100, 100),
	}
	assert.True(t, DetectPattern(bearish, shared.BearishEngulfing))
	assert.False(t, DetectPattern(bearish, shared.BullishEngulfing))

	// Ensure a body that does not contain the prior body is not engulfing.
	partial := []*shared.MarketData{
		candle(0, 96, 102, 95, 99, 100),
		candle(1, 100, 101, 94, 95, 100),
	}
	assert.False(t, DetectPattern(partial, shared.BullishEngulfing))
}

func TestDoji(t *testing.T) {
	// Ensure a tiny body within a wide range is a doji.
	assert.True(t, DetectPattern([]*shared.MarketData{
		candle(0, 100, 106, 96, 100.5, 100),
	}, shared.Doji))

	// Ensure a full body bar is not a doji.
	assert.False(t, DetectPattern([]*shared.MarketData{
		candle(0, 96, 106, 96, 106, 100),
	}, shared.Doji))

	// Ensure a zero range bar is not a doji.
	assert.False(t, DetectPattern([]*shared.MarketData{
		candle(0, 100, 100, 100, 100, 100),
	}, shared.Doji))
}

func TestStarPatterns(t *testing.T) {
	// Ensure a bearish bar, a doji, then a bullish bar forms a morning
	// star. The window is most recent first, so the bullish bar leads.
	morning := []*shared.MarketData{
		candle(0, 95, 103, 94, 102, 100),
		candle(1, 95, 100, 91, 95.2, 100),
		candle(2, 102, 103, 94, 95, 100),
	}
	assert.True(t, DetectPattern(morning, shared.MorningStar))
	assert.False(t, DetectPattern(morning, shared.EveningStar))

	// Ensure the mirrored sequence forms an evening star.
	evening := []*shared.MarketData{
		candle(0, 102, 103, 94, 95, 100),
		candle(1, 95, 100, 91, 95.2, 100),
		candle(2, 95, 103, 94, 102, 100),
	}
	assert.True(t, DetectPattern(evening, shared.EveningStar))
	assert.False(t, DetectPattern(evening, shared.MorningStar))
}

func TestDoubleTop(t *testing.T) {
	// Ensure two similar peaks far enough apart with a deep trough between
	// them form a double top.
	window := peakWindow(20, 100, map[int]float64{4: 110, 12: 110})
	assert.True(t, DetectPattern(window, shared.DoubleTop))

	// Ensure dissimilar peaks are rejected.
	dissimilar := peakWindow(20, 100, map[int]float64{4: 110, 12: 104})
	assert.False(t, DetectPattern(dissimilar, shared.DoubleTop))

	// Ensure a shallow trough between the peaks is rejected.
	shallow := peakWindow(20, 109, map[int]float64{4: 111, 12: 111})
	assert.False(t, DetectPattern(shallow, shared.DoubleTop))

	// Ensure short windows never match.
	assert.False(t, DetectPattern(window[:10], shared.DoubleTop))
}

func TestDoubleBottom(t *testing.T) {
	// Ensure two similar troughs far enough apart with a high enough peak
	// between them form a double bottom.
	window := troughWindow(20, 100, map[int]float64{4: 90, 12: 90})
	assert.True(t, DetectPattern(window, shared.DoubleBottom))

	// Ensure troughs closer than the minimum distance are rejected.
	crowded := troughWindow(20, 100, map[int]float64{4: 90, 7: 90})
	assert.False(t, DetectPattern(crowded, shared.DoubleBottom))
}

func TestHeadAndShoulders(t *testing.T) {
	// Ensure symmetric shoulders around a prominent head form the pattern.
	window := peakWindow(20, 100, map[int]float64{3: 105, 9: 110, 15: 105})
	assert.True(t, DetectPattern(window, shared.HeadAndShoulders))

	// Ensure a head without prominence over the shoulders is rejected.
	flatHead := peakWindow(20, 100, map[int]float64{3: 105, 9: 105.5, 15: 105})
	assert.False(t, DetectPattern(flatHead, shared.HeadAndShoulders))

	// Ensure asymmetric shoulders are rejected.
	lopsided := peakWindow(20, 100, map[int]float64{3: 105, 9: 112, 15: 95})
	assert.False(t, DetectPattern(lopsided, shared.HeadAndShoulders))
}

func TestInverseHeadAndShoulders(t *testing.T) {
	// Ensure symmetric shoulder troughs around a deeper head form the
	// inverse pattern.
	window := troughWindow(20, 100, map[int]float64{3: 95, 9: 90, 15: 95})
	assert.True(t, DetectPattern(window, shared.InverseHeadAndShoulders))

	// Ensure a head no deeper than the shoulders is rejected.
	flatHead := troughWindow(20, 100, map[int]float64{3: 95, 9: 94.5, 15: 95})
	assert.False(t, DetectPattern(flatHead, shared.InverseHeadAndShoulders))
}

func TestPatternWindow(t *testing.T) {
	window := flatWindow(30, 100)

	// Ensure each pattern is scored on its own formation length.
	assert.Equal(t, len(PatternWindow(window, shared.Doji)), 1)
	assert.Equal(t, len(PatternWindow(window, shared.BullishEngulfing)), 2)
	assert.Equal(t, len(PatternWindow(window, shared.EveningStar)), 3)
	assert.Equal(t, len(PatternWindow(window, shared.DoubleTop)), structuralPatternBars)

	// Ensure the window clamps to the available data.
	assert.Equal(t, len(PatternWindow(window[:5], shared.DoubleTop)), 5)
}
