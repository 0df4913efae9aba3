package indicator

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestBollinger(t *testing.T) {
	// Ensure a constant series collapses the bands onto the average.
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 500
	}
	upper, middle, lower := Bollinger(flat, 20, 2)
	assert.Equal(t, upper, 500)
	assert.Equal(t, middle, 500)
	assert.Equal(t, lower, 500)

	// Ensure the bands sit two deviations around the average.
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	upper, middle, lower = Bollinger(values, 8, 2)
	assert.Equal(t, middle, 5)
	assert.Equal(t, upper, 9)
	assert.Equal(t, lower, 1)
}

func TestATR(t *testing.T) {
	// Ensure short windows yield zero.
	assert.Equal(t, ATR(testWindow([]float64{100}), 14), 0)

	// Ensure a constant one point range yields a two point true range, since
	// the synthetic candles span close-1 to close+1.
	window := testWindow([]float64{100, 100, 100, 100, 100})
	assert.Equal(t, ATR(window, 14), 2)
}

func TestVolatility(t *testing.T) {
	// Ensure a constant series has no volatility.
	flat := make([]float64, 120)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, Volatility(flat, 1), 0)

	// Ensure a varying series has positive volatility.
	varying := make([]float64, 120)
	for i := range varying {
		varying[i] = 100 + float64(i%5)
	}
	assert.GreaterThan(t, Volatility(varying, 1), 0)

	// Ensure the edge cases yield zero.
	assert.Equal(t, Volatility([]float64{100}, 1), 0)
	assert.Equal(t, Volatility(flat, 0), 0)
}

func TestPriceChange(t *testing.T) {
	// Build two hours of one-minute candles with a linear drift so the
	// close one hour back differs from the current close.
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	window := testWindow(closes)

	// Ensure the change is measured against the close at now minus one hour.
	want := (closes[0] - closes[60]) / closes[60] * 100
	assert.Equal(t, PriceChange(window, 1), want)

	// Ensure a window with no data point at or before the target time
	// yields zero.
	assert.Equal(t, PriceChange(window[:30], 1), 0)

	// Ensure degenerate inputs yield zero.
	assert.Equal(t, PriceChange(window, 0), 0)
	assert.Equal(t, PriceChange(window[:1], 1), 0)
}

func TestVolumeChange(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100
	}
	window := testWindow(closes)

	// Ensure constant volume yields no change.
	assert.Equal(t, VolumeChange(window, 1), 0)

	// Ensure a doubled current volume reports one hundred percent.
	window[0].Volume = 200
	assert.Equal(t, VolumeChange(window, 1), 100)

	// Ensure a zero reference volume yields zero rather than dividing.
	window[60].Volume = 0
	assert.Equal(t, VolumeChange(window, 1), 0)
}

func TestDepthImbalance(t *testing.T) {
	// Ensure constant prices zero the proxy regardless of volume.
	flat := make([]float64, 48)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, DepthImbalance(testWindow(flat)), 0)

	// Ensure price dispersion with volume yields a positive proxy.
	varying := make([]float64, 48)
	for i := range varying {
		varying[i] = 100 + float64(i%7)
	}
	assert.GreaterThan(t, DepthImbalance(testWindow(varying)), 0)
}
