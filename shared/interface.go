package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// KlineSource defines the requirements for fetching continuous kline data
// from the exchange.
type KlineSource interface {
	// FetchContinuousKlines fetches one page of continuous klines for the
	// provided pair and contract type, bounded by epoch-millisecond start
	// and end times.
	FetchContinuousKlines(ctx context.Context, pair string, contract ContractType, interval string, startMs, endMs int64, limit int) ([]gjson.Result, error)
	// ParseKlines normalizes raw kline elements into market data records
	// owned by the provided timeframe.
	ParseKlines(data []gjson.Result, tf *TimeFrame) ([]*MarketData, error)
}

// TimeframeStore defines the requirements for resolving timeframe identities.
type TimeframeStore interface {
	// FindOrCreateTimeframe resolves the identity record for the provided
	// (symbol, contract type, interval) triple, creating it on first use.
	FindOrCreateTimeframe(ctx context.Context, symbol string, contract ContractType, intervalMinutes int) (*TimeFrame, error)
}

// MarketDataStore defines the requirements for persisting and querying
// market data records.
type MarketDataStore interface {
	// UpsertMarketData persists the provided batch, refreshing OHLCV fields
	// on conflict. A failing row does not stop the rest of the batch. It
	// returns the number of rows persisted.
	UpsertMarketData(ctx context.Context, records []*MarketData) (int, error)
	// FindLatestByTimeframe returns the newest record for the timeframe by
	// open time, or nil when none exists.
	FindLatestByTimeframe(ctx context.Context, timeframeID uuid.UUID) (*MarketData, error)
	// FindMarketDataForAnalysis returns a bounded batch of records needing
	// analysis, unioned with a sample of recently closed records.
	FindMarketDataForAnalysis(ctx context.Context, limit int, recentCount int) ([]*MarketData, error)
	// HistoricalData returns up to count records at or preceding the
	// provided open time for the timeframe, most recent first.
	HistoricalData(ctx context.Context, timeframeID uuid.UUID, symbol string, contract ContractType, from time.Time, count int) ([]*MarketData, error)
	// UpdateIndicators applies the provided partial update to one record.
	UpdateIndicators(ctx context.Context, update *IndicatorUpdate) error
}

// MarketStore combines the timeframe and market data persistence boundaries.
type MarketStore interface {
	TimeframeStore
	MarketDataStore
}
