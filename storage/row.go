package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/draylan/candlefeed/shared"
)

// rowFloat coerces a column value to a float, nil columns read as zero.
func rowFloat(row map[string]any, column string) float64 {
	switch value := row[column].(type) {
	case float64:
		return value
	case int64:
		return float64(value)
	default:
		return 0
	}
}

// rowInt coerces a column value to an integer, nil columns read as zero.
func rowInt(row map[string]any, column string) int64 {
	return int64(rowFloat(row, column))
}

// rowString coerces a column value to a string, nil columns read as empty.
func rowString(row map[string]any, column string) string {
	value, _ := row[column].(string)
	return value
}

// rowTime reads an epoch millisecond column.
func rowTime(row map[string]any, column string) time.Time {
	return time.UnixMilli(rowInt(row, column)).UTC()
}

// rowUUID parses a uuid column.
func rowUUID(row map[string]any, column string) (uuid.UUID, error) {
	id, err := uuid.Parse(rowString(row, column))
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing %s: %w", column, err)
	}

	return id, nil
}

// timeframeFromRow maps an associative timeframe row.
func timeframeFromRow(row map[string]any) (*shared.TimeFrame, error) {
	id, err := rowUUID(row, "id")
	if err != nil {
		return nil, err
	}

	contract, err := shared.ParseContractType(rowString(row, "contract_type"))
	if err != nil {
		return nil, err
	}

	return &shared.TimeFrame{
		ID:              id,
		Symbol:          rowString(row, "symbol"),
		ContractType:    contract,
		IntervalMinutes: int(rowInt(row, "interval_minutes")),
		CreatedAt:       rowTime(row, "created_at"),
	}, nil
}

// recordFromRow maps an associative market data row, reattaching whichever
// indicator groups the row carries.
func recordFromRow(row map[string]any) (*shared.MarketData, error) {
	id, err := rowUUID(row, "id")
	if err != nil {
		return nil, err
	}
	timeframeID, err := rowUUID(row, "timeframe_id")
	if err != nil {
		return nil, err
	}
	contract, err := shared.ParseContractType(rowString(row, "contract_type"))
	if err != nil {
		return nil, err
	}

	record := &shared.MarketData{
		ID:            id,
		TimeframeID:   timeframeID,
		Symbol:        rowString(row, "symbol"),
		ContractType:  contract,
		OpenTime:      rowTime(row, "open_time"),
		CloseTime:     rowTime(row, "close_time"),
		Open:          rowFloat(row, "open"),
		High:          rowFloat(row, "high"),
		Low:           rowFloat(row, "low"),
		Close:         rowFloat(row, "close"),
		Volume:        rowFloat(row, "volume"),
		Trades:        rowInt(row, "trades"),
		CreatedAt:     rowTime(row, "created_at"),
		Analyzed:      rowInt(row, "analyzed") != 0,
		UsableByModel: rowInt(row, "usable_by_model") != 0,
	}

	if row["rsi_14"] != nil {
		record.Oscillators = &shared.OscillatorSet{
			RSI14:         rowFloat(row, "rsi_14"),
			MACDLine:      rowFloat(row, "macd_line"),
			MACDSignal:    rowFloat(row, "macd_signal"),
			MACDHistogram: rowFloat(row, "macd_histogram"),
			BBUpper:       rowFloat(row, "bb_upper"),
			BBMiddle:      rowFloat(row, "bb_middle"),
			BBLower:       rowFloat(row, "bb_lower"),
			ATR14:         rowFloat(row, "atr_14"),
		}
	}

	if row["market_regime"] != nil {
		regime := shared.ParseMarketRegime(rowString(row, "market_regime"))
		record.Trend = &shared.TrendSet{
			Regime:         regime,
			ADX:            rowFloat(row, "adx"),
			DMIPlus:        rowFloat(row, "dmi_plus"),
			DMIMinus:       rowFloat(row, "dmi_minus"),
			TrendStrength:  rowFloat(row, "trend_strength"),
			TrendDirection: int(rowInt(row, "trend_direction")),
		}
	}

	if row["support_levels"] != nil {
		record.Levels = &shared.LevelSet{
			SupportLevels:     parseLevels(rowString(row, "support_levels")),
			ResistanceLevels:  parseLevels(rowString(row, "resistance_levels")),
			NearestSupport:    rowFloat(row, "nearest_support"),
			NearestResistance: rowFloat(row, "nearest_resistance"),
		}
	}

	if row["detected_patterns"] != nil {
		patterns, err := parsePatterns(rowString(row, "detected_patterns"))
		if err != nil {
			return nil, err
		}
		record.Patterns = &shared.PatternSet{
			Detected: patterns,
			Strength: rowFloat(row, "pattern_strength"),
		}
	}

	if row["depth_imbalance"] != nil {
		record.Flows = &shared.FlowSet{
			DepthImbalance:  rowFloat(row, "depth_imbalance"),
			Volatility1h:    rowFloat(row, "volatility_1h"),
			Volatility24h:   rowFloat(row, "volatility_24h"),
			PriceChange1h:   rowFloat(row, "price_change_1h"),
			PriceChange24h:  rowFloat(row, "price_change_24h"),
			VolumeChange1h:  rowFloat(row, "volume_change_1h"),
			VolumeChange24h: rowFloat(row, "volume_change_24h"),
		}
	}

	return record, nil
}

// parseLevels decodes a JSON level list column.
func parseLevels(raw string) []float64 {
	elements := gjson.Parse(raw).Array()
	levels := make([]float64, 0, len(elements))
	for _, element := range elements {
		levels = append(levels, element.Float())
	}

	return levels
}

// parsePatterns decodes a JSON pattern tag list column.
func parsePatterns(raw string) ([]shared.PricePattern, error) {
	elements := gjson.Parse(raw).Array()
	patterns := make([]shared.PricePattern, 0, len(elements))
	for _, element := range elements {
		pattern, ok := shared.ParsePricePattern(element.String())
		if !ok {
			return nil, fmt.Errorf("unknown price pattern: %s", element.String())
		}
		patterns = append(patterns, pattern)
	}

	return patterns, nil
}

// encodeLevels encodes a level list column.
func encodeLevels(levels []float64) (string, error) {
	if levels == nil {
		levels = []float64{}
	}

	b, err := json.Marshal(levels)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// encodePatterns encodes a pattern tag list column.
func encodePatterns(patterns []shared.PricePattern) (string, error) {
	tags := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		tags = append(tags, pattern.String())
	}

	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// boolToInt converts a flag to its column representation.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// updateParams builds the positional parameters for an indicator update.
// Nil groups write NULL columns.
func updateParams(update *shared.IndicatorUpdate) ([]any, error) {
	params := make([]any, 0, 30)

	if osc := update.Oscillators; osc != nil {
		params = append(params, osc.RSI14, osc.MACDLine, osc.MACDSignal,
			osc.MACDHistogram, osc.BBUpper, osc.BBMiddle, osc.BBLower, osc.ATR14)
	} else {
		params = append(params, nil, nil, nil, nil, nil, nil, nil, nil)
	}

	if trend := update.Trend; trend != nil {
		params = append(params, trend.Regime.String(), trend.ADX, trend.DMIPlus,
			trend.DMIMinus, trend.TrendStrength, trend.TrendDirection)
	} else {
		params = append(params, nil, nil, nil, nil, nil, nil)
	}

	if levels := update.Levels; levels != nil {
		supports, err := encodeLevels(levels.SupportLevels)
		if err != nil {
			return nil, err
		}
		resistances, err := encodeLevels(levels.ResistanceLevels)
		if err != nil {
			return nil, err
		}
		params = append(params, supports, resistances, levels.NearestSupport,
			levels.NearestResistance)
	} else {
		params = append(params, nil, nil, nil, nil)
	}

	if patterns := update.Patterns; patterns != nil {
		tags, err := encodePatterns(patterns.Detected)
		if err != nil {
			return nil, err
		}
		params = append(params, tags, patterns.Strength)
	} else {
		params = append(params, nil, nil)
	}

	if flows := update.Flows; flows != nil {
		params = append(params, flows.DepthImbalance, flows.Volatility1h,
			flows.Volatility24h, flows.PriceChange1h, flows.PriceChange24h,
			flows.VolumeChange1h, flows.VolumeChange24h)
	} else {
		params = append(params, nil, nil, nil, nil, nil, nil, nil)
	}

	params = append(params, boolToInt(update.Analyzed), boolToInt(update.UsableByModel),
		update.ID.String())

	return params, nil
}
