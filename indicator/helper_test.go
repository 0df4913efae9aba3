package indicator

import (
	"time"

	"github.com/draylan/candlefeed/shared"
)

// testWindow builds a most-recent-first window of one-minute candles from
// the provided close series, with a one point range around each close.
func testWindow(closes []float64) []*shared.MarketData {
	tf := shared.NewTimeFrame("BTCUSDT", shared.Perpetual, 1)
	newest := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	window := make([]*shared.MarketData, len(closes))
	for i, clos := range closes {
		open := newest.Add(-time.Duration(i) * time.Minute)
		window[i] = shared.NewMarketData(tf, open, open.Add(time.Minute-time.Millisecond),
			clos, clos+1, clos-1, clos, 100, 10)
	}

	return window
}
