package analysis

import (
	"time"

	"github.com/draylan/candlefeed/shared"
)

var testOrigin = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// candle builds a one-minute bar i minutes before the test origin. The
// window convention is most recent first, so i doubles as the window index.
func candle(i int, open, high, low, clos, volume float64) *shared.MarketData {
	tf := shared.NewTimeFrame("BTCUSDT", shared.Perpetual, 1)
	start := testOrigin.Add(-time.Duration(i) * time.Minute)

	return shared.NewMarketData(tf, start, start.Add(time.Minute-time.Millisecond),
		open, high, low, clos, volume, 10)
}

// flatWindow builds a most-recent-first window of n identical bars.
func flatWindow(n int, price float64) []*shared.MarketData {
	window := make([]*shared.MarketData, n)
	for i := range window {
		window[i] = candle(i, price, price+1, price-1, price, 100)
	}

	return window
}

// peakWindow builds a most-recent-first window of n bars with a flat base
// price, then raises the high at the provided indices.
func peakWindow(n int, base float64, peaks map[int]float64) []*shared.MarketData {
	window := flatWindow(n, base)
	for idx, high := range peaks {
		window[idx].High = high
	}

	return window
}

// troughWindow builds a most-recent-first window of n bars with a flat base
// price, then lowers the low at the provided indices.
func troughWindow(n int, base float64, troughs map[int]float64) []*shared.MarketData {
	window := flatWindow(n, base)
	for idx, low := range troughs {
		window[idx].Low = low
	}

	return window
}
