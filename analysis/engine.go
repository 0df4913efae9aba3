// Package analysis derives technical indicators, market regimes, price
// levels and candlestick patterns for persisted market data records.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/draylan/candlefeed/indicator"
	"github.com/draylan/candlefeed/shared"
)

const (
	// defaultBatchLimit is the number of unanalyzed records fetched per
	// engine iteration.
	defaultBatchLimit = 100
	// defaultRecentSample is the number of recently closed records sampled
	// alongside each batch.
	defaultRecentSample = 100
	// defaultMandatoryHistory is the trailing window length a record needs
	// before its indicators are considered usable.
	defaultMandatoryHistory = 250
	// defaultVolatilityThreshold is the annualized volatility bound for the
	// high volatility regime.
	defaultVolatilityThreshold = 0.02
	// defaultADXThreshold is the trend strength bound for the trending
	// regimes.
	defaultADXThreshold = 25.0
	// defaultLevelWindow is the symmetric scan window for support and
	// resistance candidates.
	defaultLevelWindow = 20
	// defaultClusterThreshold is the relative distance bound for level
	// clustering.
	defaultClusterThreshold = 0.02
	// defaultVolumeThreshold is the volume confirmation ratio for pattern
	// strength scoring.
	defaultVolumeThreshold = 1.5
	// defaultStrengthCutoff is the minimum composite strength for a pattern
	// to be retained.
	defaultStrengthCutoff = 0.3
	// trendDirectionPeriod is the window for the trend direction comparison.
	trendDirectionPeriod = 20
	// indicatorPeriod is the shared lookback for RSI, ATR, ADX and DMI.
	indicatorPeriod = 14
	// bollingerPeriod and bollingerMult parameterize the Bollinger bands.
	bollingerPeriod = 20
	bollingerMult   = 2.0
)

// patternOrder fixes the evaluation order for pattern scoring.
var patternOrder = []shared.PricePattern{
	shared.DoubleTop,
	shared.DoubleBottom,
	shared.HeadAndShoulders,
	shared.InverseHeadAndShoulders,
	shared.BullishEngulfing,
	shared.BearishEngulfing,
	shared.Doji,
	shared.MorningStar,
	shared.EveningStar,
}

// EngineConfig represents the analysis engine configuration.
type EngineConfig struct {
	// Store is the market data persistence handle.
	Store shared.MarketDataStore
	// BatchLimit caps the number of unanalyzed records fetched per iteration.
	BatchLimit int
	// RecentSample is the number of recently closed records sampled per
	// iteration.
	RecentSample int
	// MandatoryHistory is the trailing window length required for a record
	// to be usable by downstream models.
	MandatoryHistory int
	// VolatilityThreshold bounds the high volatility regime.
	VolatilityThreshold float64
	// ADXThreshold bounds the trending regimes.
	ADXThreshold float64
	// LevelWindow is the symmetric scan window for level candidates.
	LevelWindow int
	// ClusterThreshold is the relative distance bound for level clustering.
	ClusterThreshold float64
	// VolumeThreshold is the volume confirmation ratio for pattern scoring.
	VolumeThreshold float64
	// StrengthCutoff is the minimum retained pattern strength.
	StrengthCutoff float64
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the configuration is valid and applies defaults for
// unset tunables.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("store cannot be nil"))
	}
	if cfg.BatchLimit < 0 {
		errs = errors.Join(errs, fmt.Errorf("batch limit cannot be negative"))
	}
	if cfg.RecentSample < 0 {
		errs = errors.Join(errs, fmt.Errorf("recent sample cannot be negative"))
	}
	if cfg.MandatoryHistory < 0 {
		errs = errors.Join(errs, fmt.Errorf("mandatory history cannot be negative"))
	}
	if errs != nil {
		return errs
	}

	if cfg.BatchLimit == 0 {
		cfg.BatchLimit = defaultBatchLimit
	}
	if cfg.RecentSample == 0 {
		cfg.RecentSample = defaultRecentSample
	}
	if cfg.MandatoryHistory == 0 {
		cfg.MandatoryHistory = defaultMandatoryHistory
	}
	if cfg.VolatilityThreshold == 0 {
		cfg.VolatilityThreshold = defaultVolatilityThreshold
	}
	if cfg.ADXThreshold == 0 {
		cfg.ADXThreshold = defaultADXThreshold
	}
	if cfg.LevelWindow == 0 {
		cfg.LevelWindow = defaultLevelWindow
	}
	if cfg.ClusterThreshold == 0 {
		cfg.ClusterThreshold = defaultClusterThreshold
	}
	if cfg.VolumeThreshold == 0 {
		cfg.VolumeThreshold = defaultVolumeThreshold
	}
	if cfg.StrengthCutoff == 0 {
		cfg.StrengthCutoff = defaultStrengthCutoff
	}

	return nil
}

// Engine analyzes persisted market data records in batches.
type Engine struct {
	cfg *EngineConfig
}

// NewEngine initializes the analysis engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	return &Engine{cfg: cfg}, nil
}

// AnalyzeMarketData processes every record currently needing analysis and
// returns the number of records fully analyzed. Per record failures do not
// stop the batch; the first such error is returned after the run.
func (e *Engine) AnalyzeMarketData(ctx context.Context) (int, error) {
	var analyzed int
	var firstErr error
	seen := make(map[uuid.UUID]struct{})

	for {
		batch, err := e.cfg.Store.FindMarketDataForAnalysis(ctx, e.cfg.BatchLimit, e.cfg.RecentSample)
		if err != nil {
			return analyzed, fmt.Errorf("fetching records for analysis: %w", err)
		}

		var progressed bool
		for _, record := range batch {
			if _, ok := seen[record.ID]; ok {
				continue
			}
			seen[record.ID] = struct{}{}
			progressed = true

			if err := ctx.Err(); err != nil {
				return analyzed, err
			}

			ok, err := e.analyzeRecord(ctx, record)
			if err != nil {
				e.cfg.Logger.Error().Err(err).
					Str("symbol", record.Symbol).
					Time("open_time", record.OpenTime).
					Msg("analyzing market data record")
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if ok {
				analyzed++
			}
		}

		if !progressed {
			break
		}
	}

	return analyzed, firstErr
}

// analyzeRecord computes and persists the indicator update for one record.
// It reports whether the record was fully analyzed, which excludes records
// flagged for insufficient history.
func (e *Engine) analyzeRecord(ctx context.Context, record *shared.MarketData) (bool, error) {
	history, err := e.cfg.Store.HistoricalData(ctx, record.TimeframeID, record.Symbol,
		record.ContractType, record.OpenTime, e.cfg.MandatoryHistory)
	if err != nil {
		return false, fmt.Errorf("fetching historical window: %w", err)
	}

	if len(history) < e.cfg.MandatoryHistory {
		update := &shared.IndicatorUpdate{
			ID:            record.ID,
			Analyzed:      true,
			UsableByModel: false,
		}
		err = e.cfg.Store.UpdateIndicators(ctx, update)
		if err != nil {
			return false, fmt.Errorf("flagging record with insufficient history: %w", err)
		}

		return false, nil
	}

	update := e.computeUpdate(record.ID, history)
	err = e.cfg.Store.UpdateIndicators(ctx, update)
	if err != nil {
		return false, fmt.Errorf("persisting indicator update: %w", err)
	}

	return true, nil
}

// computeUpdate derives the full indicator update from the most-recent-first
// historical window.
func (e *Engine) computeUpdate(id uuid.UUID, history []*shared.MarketData) *shared.IndicatorUpdate {
	closes := make([]float64, len(history))
	for i, bar := range history {
		closes[i] = bar.Close
	}

	line, signal, histogram := indicator.MACD(closes)
	upper, middle, lower := indicator.Bollinger(closes, bollingerPeriod, bollingerMult)
	oscillators := &shared.OscillatorSet{
		RSI14:         indicator.RSI(closes, indicatorPeriod),
		MACDLine:      line,
		MACDSignal:    signal,
		MACDHistogram: histogram,
		BBUpper:       upper,
		BBMiddle:      middle,
		BBLower:       lower,
		ATR14:         indicator.ATR(history, indicatorPeriod),
	}

	volatility24h := indicator.Volatility(closes, 24)
	adx := indicator.ADX(history, indicatorPeriod)
	dmiPlus, dmiMinus := indicator.DMI(history, indicatorPeriod)
	direction := indicator.TrendDirection(history, trendDirectionPeriod)

	regime := shared.RegimeNone
	if len(history) >= minRegimeBars {
		regime = ClassifyRegime(volatility24h, adx, direction, e.cfg.VolatilityThreshold, e.cfg.ADXThreshold)
	}

	trend := &shared.TrendSet{
		Regime:         regime,
		ADX:            adx,
		DMIPlus:        dmiPlus,
		DMIMinus:       dmiMinus,
		TrendStrength:  adx,
		TrendDirection: direction,
	}

	supports, resistances := FindSupportResistance(history, e.cfg.LevelWindow, e.cfg.ClusterThreshold)
	nearestSupport, nearestResistance := NearestLevels(supports, resistances, history[0].Close)
	levels := &shared.LevelSet{
		SupportLevels:     supports,
		ResistanceLevels:  resistances,
		NearestSupport:    nearestSupport,
		NearestResistance: nearestResistance,
	}

	var detected []shared.PricePattern
	var maxStrength float64
	for _, pattern := range patternOrder {
		if !DetectPattern(history, pattern) {
			continue
		}
		strength := PatternStrength(history, pattern, e.cfg.VolumeThreshold)
		if strength > e.cfg.StrengthCutoff {
			detected = append(detected, pattern)
			if strength > maxStrength {
				maxStrength = strength
			}
		}
	}
	// No detections leaves the pattern columns unset rather than writing
	// an empty set with zero strength.
	var patterns *shared.PatternSet
	if len(detected) > 0 {
		patterns = &shared.PatternSet{
			Detected: detected,
			Strength: maxStrength,
		}
	}

	flows := &shared.FlowSet{
		DepthImbalance:  indicator.DepthImbalance(history),
		Volatility1h:    indicator.Volatility(closes, 1),
		Volatility24h:   volatility24h,
		PriceChange1h:   indicator.PriceChange(history, 1),
		PriceChange24h:  indicator.PriceChange(history, 24),
		VolumeChange1h:  indicator.VolumeChange(history, 1),
		VolumeChange24h: indicator.VolumeChange(history, 24),
	}

	return &shared.IndicatorUpdate{
		ID:            id,
		Oscillators:   oscillators,
		Trend:         trend,
		Levels:        levels,
		Patterns:      patterns,
		Flows:         flows,
		Analyzed:      true,
		UsableByModel: true,
	}
}
