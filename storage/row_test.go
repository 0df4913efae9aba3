package storage

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"

	"github.com/draylan/candlefeed/shared"
)

func baseRow(id, tfID uuid.UUID) map[string]any {
	return map[string]any{
		"id":              id.String(),
		"timeframe_id":    tfID.String(),
		"symbol":          "BTCUSDT",
		"contract_type":   "PERPETUAL",
		"open_time":       float64(1717243200000),
		"close_time":      float64(1717243259999),
		"open":            100.0,
		"high":            101.5,
		"low":             99.0,
		"close":           100.5,
		"volume":          12.5,
		"trades":          float64(42),
		"created_at":      float64(1717243260000),
		"analyzed":        float64(0),
		"usable_by_model": float64(0),
	}
}

func TestRecordFromRow(t *testing.T) {
	id := uuid.New()
	tfID := uuid.New()

	// Ensure an unanalyzed row maps with no indicator groups attached.
	record, err := recordFromRow(baseRow(id, tfID))
	assert.NoError(t, err)
	assert.Equal(t, record.ID, id)
	assert.Equal(t, record.TimeframeID, tfID)
	assert.Equal(t, record.ContractType, shared.Perpetual)
	assert.Equal(t, record.OpenTime, time.UnixMilli(1717243200000).UTC())
	assert.Equal(t, record.Close, 100.5)
	assert.Equal(t, record.Trades, 42)
	assert.False(t, record.Analyzed)
	assert.Nil(t, record.Oscillators)
	assert.Nil(t, record.Trend)
	assert.Nil(t, record.Levels)
	assert.Nil(t, record.Patterns)
	assert.Nil(t, record.Flows)

	// Ensure an analyzed row reattaches every indicator group.
	row := baseRow(id, tfID)
	row["analyzed"] = float64(1)
	row["usable_by_model"] = float64(1)
	row["rsi_14"] = 55.5
	row["macd_line"] = 1.25
	row["market_regime"] = "trending_up"
	row["adx"] = 32.0
	row["trend_direction"] = float64(1)
	row["support_levels"] = "[99.5,100]"
	row["resistance_levels"] = "[101,102.5]"
	row["nearest_support"] = 100.0
	row["nearest_resistance"] = 101.0
	row["detected_patterns"] = `["doji","double_top"]`
	row["pattern_strength"] = 0.42
	row["depth_imbalance"] = 4.2
	row["volatility_24h"] = 0.015

	record, err = recordFromRow(row)
	assert.NoError(t, err)
	assert.True(t, record.Analyzed)
	assert.True(t, record.UsableByModel)
	assert.NotNil(t, record.Oscillators)
	assert.Equal(t, record.Oscillators.RSI14, 55.5)
	assert.NotNil(t, record.Trend)
	assert.Equal(t, record.Trend.Regime, shared.TrendingUp)
	assert.Equal(t, record.Trend.TrendDirection, 1)
	assert.NotNil(t, record.Levels)
	assert.Equal(t, cmp.Diff([]float64{99.5, 100}, record.Levels.SupportLevels), "")
	assert.NotNil(t, record.Patterns)
	assert.Equal(t, cmp.Diff([]shared.PricePattern{shared.Doji, shared.DoubleTop},
		record.Patterns.Detected), "")
	assert.Equal(t, record.Patterns.Strength, 0.42)
	assert.NotNil(t, record.Flows)
	assert.Equal(t, record.Flows.Volatility24h, 0.015)

	// Ensure malformed identifiers are rejected.
	row = baseRow(id, tfID)
	row["id"] = "not-a-uuid"
	_, err = recordFromRow(row)
	assert.Error(t, err)

	// Ensure unknown pattern tags are rejected.
	row = baseRow(id, tfID)
	row["detected_patterns"] = `["no_such_pattern"]`
	_, err = recordFromRow(row)
	assert.Error(t, err)
}

func TestTimeframeFromRow(t *testing.T) {
	id := uuid.New()
	row := map[string]any{
		"id":               id.String(),
		"symbol":           "ETHUSDT",
		"contract_type":    "CURRENT_QUARTER",
		"interval_minutes": float64(15),
		"created_at":       float64(1717243200000),
	}

	tf, err := timeframeFromRow(row)
	assert.NoError(t, err)
	assert.Equal(t, tf.ID, id)
	assert.Equal(t, tf.Symbol, "ETHUSDT")
	assert.Equal(t, tf.ContractType, shared.CurrentQuarter)
	assert.Equal(t, tf.IntervalMinutes, 15)

	// Ensure unknown contract types are rejected.
	row["contract_type"] = "WEEKLY"
	_, err = timeframeFromRow(row)
	assert.Error(t, err)
}

func TestUpdateParams(t *testing.T) {
	id := uuid.New()

	// Ensure the insufficient history update writes NULL indicator columns
	// and still flips the analyzed flag.
	params, err := updateParams(&shared.IndicatorUpdate{ID: id, Analyzed: true})
	assert.NoError(t, err)
	assert.Equal(t, len(params), 30)
	assert.Nil(t, params[0])
	assert.Nil(t, params[26])
	assert.Equal[any](t, params[27], 1)
	assert.Equal[any](t, params[28], 0)
	assert.Equal[any](t, params[29], id.String())

	// Ensure a full update encodes level and pattern lists as JSON.
	params, err = updateParams(&shared.IndicatorUpdate{
		ID:          id,
		Oscillators: &shared.OscillatorSet{RSI14: 55.5},
		Trend:       &shared.TrendSet{Regime: shared.Ranging, TrendDirection: -1},
		Levels: &shared.LevelSet{
			SupportLevels:    []float64{99.5, 100},
			ResistanceLevels: nil,
		},
		Patterns: &shared.PatternSet{
			Detected: []shared.PricePattern{shared.Doji},
			Strength: 0.5,
		},
		Flows:         &shared.FlowSet{DepthImbalance: 4.2},
		Analyzed:      true,
		UsableByModel: true,
	})
	assert.NoError(t, err)
	assert.Equal[any](t, params[0], 55.5)
	assert.Equal[any](t, params[8], "ranging")
	assert.Equal[any](t, params[13], -1)
	assert.Equal[any](t, params[14], "[99.5,100]")
	assert.Equal[any](t, params[15], "[]")
	assert.Equal[any](t, params[18], `["doji"]`)
	assert.Equal[any](t, params[28], 1)
}
