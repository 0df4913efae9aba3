package analysis

import (
	"testing"

	"github.com/peterldowns/testy/assert"

	"github.com/draylan/candlefeed/shared"
)

func TestClassifyRegime(t *testing.T) {
	tests := []struct {
		name       string
		volatility float64
		adx        float64
		direction  int
		want       shared.MarketRegime
	}{{
		name:       "high volatility wins over a strong trend",
		volatility: 0.05,
		adx:        40,
		direction:  1,
		want:       shared.HighVolatility,
	}, {
		name:       "low volatility wins below half the threshold",
		volatility: 0.005,
		adx:        40,
		direction:  1,
		want:       shared.LowVolatility,
	}, {
		name:       "trending up",
		volatility: 0.015,
		adx:        30,
		direction:  1,
		want:       shared.TrendingUp,
	}, {
		name:       "trending down",
		volatility: 0.015,
		adx:        30,
		direction:  -1,
		want:       shared.TrendingDown,
	}, {
		name:       "strong adx without direction ranges",
		volatility: 0.015,
		adx:        30,
		direction:  0,
		want:       shared.Ranging,
	}, {
		name:       "weak adx ranges",
		volatility: 0.015,
		adx:        10,
		direction:  1,
		want:       shared.Ranging,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ClassifyRegime(test.volatility, test.adx, test.direction, 0.02, 25)
			assert.Equal(t, got, test.want)
		})
	}
}
