package shared

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MarketData represents one candle for a timeframe, enriched with the
// indicator sets derived by the analysis engine. An indicator group is
// either absent (nil) or fully populated.
type MarketData struct {
	ID           uuid.UUID
	TimeframeID  uuid.UUID
	Symbol       string
	ContractType ContractType
	OpenTime     time.Time
	CloseTime    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	Volume       float64
	Trades       int64
	CreatedAt    time.Time

	Oscillators *OscillatorSet
	Trend       *TrendSet
	Levels      *LevelSet
	Patterns    *PatternSet
	Flows       *FlowSet

	// Analyzed is set once the analysis engine has processed the record.
	Analyzed bool
	// UsableByModel is set only when the record had sufficient trailing
	// history at analysis time.
	UsableByModel bool
}

// NewMarketData initializes an unanalyzed market data record.
func NewMarketData(tf *TimeFrame, openTime, closeTime time.Time, open, high, low, clos, volume float64, trades int64) *MarketData {
	return &MarketData{
		ID:           uuid.New(),
		TimeframeID:  tf.ID,
		Symbol:       tf.Symbol,
		ContractType: tf.ContractType,
		OpenTime:     openTime,
		CloseTime:    closeTime,
		Open:         open,
		High:         high,
		Low:          low,
		Close:        clos,
		Volume:       volume,
		Trades:       trades,
		CreatedAt:    time.Now().UTC(),
	}
}

// OscillatorSet groups the oscillator and band indicators.
type OscillatorSet struct {
	RSI14         float64
	MACDLine      float64
	MACDSignal    float64
	MACDHistogram float64
	BBUpper       float64
	BBMiddle      float64
	BBLower       float64
	ATR14         float64
}

// TrendSet groups the trend strength indicators and the regime tag.
type TrendSet struct {
	Regime        MarketRegime
	ADX           float64
	DMIPlus       float64
	DMIMinus      float64
	TrendStrength float64
	// TrendDirection is -1, 0 or 1.
	TrendDirection int
}

// LevelSet groups the clustered support and resistance levels. The level
// slices are sorted ascending. Nearest values are zero when no level exists
// on that side of the current price.
type LevelSet struct {
	SupportLevels     []float64
	ResistanceLevels  []float64
	NearestSupport    float64
	NearestResistance float64
}

// PatternSet groups the detected price patterns. Strength is the maximum
// composite strength across the detected patterns.
type PatternSet struct {
	Detected []PricePattern
	Strength float64
}

// FlowSet groups the volatility, liquidity and rate-of-change measures.
type FlowSet struct {
	DepthImbalance  float64
	Volatility1h    float64
	Volatility24h   float64
	PriceChange1h   float64
	PriceChange24h  float64
	VolumeChange1h  float64
	VolumeChange24h float64
}

// IndicatorUpdate is the partial update the analysis engine writes back for
// one record. Nil groups clear the corresponding fields.
type IndicatorUpdate struct {
	ID            uuid.UUID
	Oscillators   *OscillatorSet
	Trend         *TrendSet
	Levels        *LevelSet
	Patterns      *PatternSet
	Flows         *FlowSet
	Analyzed      bool
	UsableByModel bool
}

// Bullish reports whether the candle closed above its open.
func (m *MarketData) Bullish() bool {
	return m.Close > m.Open
}

// Bearish reports whether the candle closed below its open.
func (m *MarketData) Bearish() bool {
	return m.Close < m.Open
}

// Body returns the absolute size of the candle body.
func (m *MarketData) Body() float64 {
	return math.Abs(m.Close - m.Open)
}

// Range returns the full high-low range of the candle.
func (m *MarketData) Range() float64 {
	return m.High - m.Low
}

// UpperShadow returns the wick above the candle body.
func (m *MarketData) UpperShadow() float64 {
	return m.High - math.Max(m.Open, m.Close)
}

// LowerShadow returns the wick below the candle body.
func (m *MarketData) LowerShadow() float64 {
	return math.Min(m.Open, m.Close) - m.Low
}
