package indicator

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestEMA(t *testing.T) {
	// Ensure the edge cases yield zero.
	assert.Equal(t, EMA(nil, 14), 0)
	assert.Equal(t, EMA([]float64{1, 2}, 0), 0)

	// Ensure a single sample seeds the average.
	assert.Equal(t, EMA([]float64{42}, 14), 42)

	// Ensure a constant series keeps its value.
	assert.Equal(t, EMA([]float64{5, 5, 5, 5, 5}, 3), 5)

	// Ensure the smoothing factor is 2/(period+1).
	got := EMA([]float64{10, 20}, 3)
	assert.Equal(t, got, 20*0.5+10*0.5)
}

func TestEMASeriesMatchesPrefixRecompute(t *testing.T) {
	values := []float64{12, 11.5, 13, 12.25, 14, 13.5, 15, 14.75, 16, 15.5}
	period := 4

	series := EMASeries(values, period)
	assert.Equal(t, len(series), len(values))

	// Ensure the incremental filter matches recomputing the EMA over each
	// prefix from scratch.
	for i := range values {
		assert.Equal(t, series[i], EMA(values[:i+1], period))
	}
}

func TestSMA(t *testing.T) {
	values := []float64{4, 8, 12, 100}

	// Ensure only the first period samples are averaged.
	assert.Equal(t, SMA(values, 3), 8)

	// Ensure the period clamps to the available samples.
	assert.Equal(t, SMA(values[:2], 3), 6)

	// Ensure the edge cases yield zero.
	assert.Equal(t, SMA(nil, 3), 0)
	assert.Equal(t, SMA(values, 0), 0)
}

func TestStdDev(t *testing.T) {
	// Ensure a constant series has no dispersion.
	assert.Equal(t, StdDev([]float64{7, 7, 7, 7}, 4), 0)

	// Ensure a symmetric spread yields the population deviation.
	assert.Equal(t, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8), 2)

	// Ensure the edge cases yield zero.
	assert.Equal(t, StdDev(nil, 4), 0)
}
