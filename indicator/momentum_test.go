package indicator

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestRSIBoundaries(t *testing.T) {
	// Ensure an all-increasing 15 point series maxes out the index.
	increasing := make([]float64, 15)
	for i := range increasing {
		increasing[i] = 100 + float64(i)
	}
	assert.Equal(t, RSI(increasing, 14), 100)

	// Ensure an all-flat series is neutral.
	flat := make([]float64, 15)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, RSI(flat, 14), 50)

	// Ensure an all-decreasing series bottoms out the index.
	decreasing := make([]float64, 15)
	for i := range decreasing {
		decreasing[i] = 100 - float64(i)
	}
	assert.Equal(t, RSI(decreasing, 14), 0)

	// Ensure short series and degenerate periods are neutral.
	assert.Equal(t, RSI([]float64{100}, 14), 50)
	assert.Equal(t, RSI(increasing, 0), 50)
}

func TestMACD(t *testing.T) {
	// Ensure a constant series yields no divergence.
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 250
	}
	line, signal, hist := MACD(flat)
	assert.Equal(t, line, 0)
	assert.Equal(t, signal, 0)
	assert.Equal(t, hist, 0)

	// Ensure the MACD line is the difference of the incremental fast and
	// slow EMAs at the most recent point.
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)*0.5
	}
	line, signal, hist = MACD(values)
	assert.Equal(t, line, EMA(values, 12)-EMA(values, 26))
	assert.Equal(t, hist, line-signal)

	// Ensure the empty series is handled.
	line, signal, hist = MACD(nil)
	assert.Equal(t, line, 0)
	assert.Equal(t, signal, 0)
	assert.Equal(t, hist, 0)
}
