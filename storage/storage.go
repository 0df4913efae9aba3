// Package storage persists timeframes and market data records to rqlite.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"

	"github.com/draylan/candlefeed/shared"
)

const (
	// SQL statements.
	createTimeframeTableSQL = `CREATE TABLE IF NOT EXISTS timeframe (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		contract_type TEXT NOT NULL,
		interval_minutes INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(symbol, contract_type, interval_minutes))`
	createMarketDataTableSQL = `CREATE TABLE IF NOT EXISTS market_data (
		id TEXT PRIMARY KEY,
		timeframe_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		contract_type TEXT NOT NULL,
		open_time INTEGER NOT NULL,
		close_time INTEGER NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		trades INTEGER NOT NULL,
		rsi_14 REAL,
		macd_line REAL,
		macd_signal REAL,
		macd_histogram REAL,
		bb_upper REAL,
		bb_middle REAL,
		bb_lower REAL,
		atr_14 REAL,
		market_regime TEXT,
		adx REAL,
		dmi_plus REAL,
		dmi_minus REAL,
		trend_strength REAL,
		trend_direction INTEGER,
		support_levels TEXT,
		resistance_levels TEXT,
		nearest_support REAL,
		nearest_resistance REAL,
		detected_patterns TEXT,
		pattern_strength REAL,
		depth_imbalance REAL,
		volatility_1h REAL,
		volatility_24h REAL,
		price_change_1h REAL,
		price_change_24h REAL,
		volume_change_1h REAL,
		volume_change_24h REAL,
		analyzed INTEGER NOT NULL DEFAULT 0,
		usable_by_model INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		UNIQUE(timeframe_id, open_time))`
	upsertMarketDataSQL = `INSERT INTO market_data (id, timeframe_id, symbol,
		contract_type, open_time, close_time, open, high, low, close, volume,
		trades, created_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(timeframe_id, open_time) DO UPDATE SET
		close_time = excluded.close_time, open = excluded.open,
		high = excluded.high, low = excluded.low, close = excluded.close,
		volume = excluded.volume, trades = excluded.trades`
	findTimeframeSQL = `SELECT id, symbol, contract_type, interval_minutes,
		created_at FROM timeframe WHERE symbol = ? AND contract_type = ?
		AND interval_minutes = ?`
	insertTimeframeSQL = `INSERT INTO timeframe (id, symbol, contract_type,
		interval_minutes, created_at) VALUES(?,?,?,?,?)`
	findLatestSQL = `SELECT * FROM market_data WHERE timeframe_id = ?
		ORDER BY open_time DESC LIMIT 1`
	findForAnalysisSQL = `WITH recent AS (SELECT id FROM market_data
		ORDER BY close_time DESC LIMIT ?)
		SELECT * FROM market_data WHERE id IN (
			SELECT id FROM market_data WHERE analyzed = 0 AND close_time < ?
			UNION SELECT id FROM recent)
		ORDER BY analyzed ASC, close_time DESC LIMIT ?`
	historicalDataSQL = `SELECT * FROM market_data WHERE timeframe_id = ?
		AND symbol = ? AND contract_type = ? AND open_time <= ?
		ORDER BY open_time DESC LIMIT ?`
	updateIndicatorsSQL = `UPDATE market_data SET rsi_14 = ?, macd_line = ?,
		macd_signal = ?, macd_histogram = ?, bb_upper = ?, bb_middle = ?,
		bb_lower = ?, atr_14 = ?, market_regime = ?, adx = ?, dmi_plus = ?,
		dmi_minus = ?, trend_strength = ?, trend_direction = ?,
		support_levels = ?, resistance_levels = ?, nearest_support = ?,
		nearest_resistance = ?, detected_patterns = ?, pattern_strength = ?,
		depth_imbalance = ?, volatility_1h = ?, volatility_24h = ?,
		price_change_1h = ?, price_change_24h = ?, volume_change_1h = ?,
		volume_change_24h = ?, analyzed = ?, usable_by_model = ?
		WHERE id = ?`
)

// StorageConfig is the configuration for the storage layer.
type StorageConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the storage logger.
	Logger zerolog.Logger
}

// Storage represents the rqlite backed market store.
type Storage struct {
	cfg    *StorageConfig
	client *rqlitehttp.Client
}

// Ensure the storage layer implements the MarketStore interface.
var _ shared.MarketStore = (*Storage)(nil)

// NewStorage initializes a new storage connection.
func NewStorage(ctx context.Context, cfg *StorageConfig) (*Storage, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	store := &Storage{
		cfg:    cfg,
		client: client,
	}

	err = store.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping storage: %w", err)
	}

	return store, nil
}

// bootstrap creates the schema.
func (s *Storage) bootstrap(ctx context.Context) error {
	resp, err := s.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createTimeframeTableSQL},
		{SQL: createMarketDataTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("creating schema: %d -> %s", idx, errStr)
	}

	return nil
}

// queryAssoc runs a single parameterized select and flattens its result
// set into associative rows.
func (s *Storage) queryAssoc(ctx context.Context, sql string, params ...any) ([]map[string]any, error) {
	resp, err := s.client.Query(ctx, rqlitehttp.SQLStatements{
		{SQL: sql, PositionalParams: params},
	}, &rqlitehttp.QueryOptions{Associative: true, Timings: true})
	if err != nil {
		return nil, err
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 {
		return nil, nil
	}

	return results[0].Rows, nil
}

// FindOrCreateTimeframe resolves the identity record for the provided
// (symbol, contract type, interval) triple, creating it on first use.
func (s *Storage) FindOrCreateTimeframe(ctx context.Context, symbol string, contract shared.ContractType, intervalMinutes int) (*shared.TimeFrame, error) {
	rows, err := s.queryAssoc(ctx, findTimeframeSQL, symbol, contract.String(), intervalMinutes)
	if err != nil {
		return nil, fmt.Errorf("finding timeframe: %w", err)
	}

	if len(rows) > 0 {
		return timeframeFromRow(rows[0])
	}

	tf := shared.NewTimeFrame(symbol, contract, intervalMinutes)
	execResp, err := s.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: insertTimeframeSQL,
			PositionalParams: []any{tf.ID.String(), tf.Symbol, tf.ContractType.String(),
				tf.IntervalMinutes, tf.CreatedAt.UnixMilli()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return nil, fmt.Errorf("creating timeframe: %w", err)
	}

	has, idx, errStr := execResp.HasError()
	if has {
		return nil, fmt.Errorf("creating timeframe: %d -> %s", idx, errStr)
	}

	return tf, nil
}

// UpsertMarketData persists the provided batch, refreshing candle fields on
// conflict. A failing statement is logged and does not stop the rest of the
// batch from committing. Records whose close time is still in the future are
// skipped. It returns the number of rows persisted.
func (s *Storage) UpsertMarketData(ctx context.Context, records []*shared.MarketData) (int, error) {
	stmts := upsertStatements(records, time.Now().UTC())
	if len(stmts) == 0 {
		return 0, nil
	}

	resp, err := s.client.Execute(ctx, stmts, &rqlitehttp.ExecuteOptions{
		Timings: true,
	})
	if err != nil {
		return 0, fmt.Errorf("persisting market data batch: %w", err)
	}

	persisted := 0
	for idx, result := range resp.Results {
		if result.Error != "" {
			s.cfg.Logger.Error().Msgf("persisting market data record %d: %s", idx, result.Error)
			continue
		}
		persisted++
	}

	return persisted, nil
}

// upsertStatements builds the batch statements, dropping candles that have
// not closed yet.
func upsertStatements(records []*shared.MarketData, now time.Time) rqlitehttp.SQLStatements {
	stmts := make(rqlitehttp.SQLStatements, 0, len(records))
	for _, record := range records {
		if record.CloseTime.After(now) {
			continue
		}

		stmts = append(stmts, &rqlitehttp.SQLStatement{
			SQL: upsertMarketDataSQL,
			PositionalParams: []any{record.ID.String(), record.TimeframeID.String(),
				record.Symbol, record.ContractType.String(), record.OpenTime.UnixMilli(),
				record.CloseTime.UnixMilli(), record.Open, record.High, record.Low,
				record.Close, record.Volume, record.Trades, record.CreatedAt.UnixMilli()},
		})
	}

	return stmts
}

// FindLatestByTimeframe returns the newest record for the timeframe by open
// time, or nil when none exists.
func (s *Storage) FindLatestByTimeframe(ctx context.Context, timeframeID uuid.UUID) (*shared.MarketData, error) {
	rows, err := s.queryAssoc(ctx, findLatestSQL, timeframeID.String())
	if err != nil {
		return nil, fmt.Errorf("finding latest record: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return recordFromRow(rows[0])
}

// mapRows maps a result set of associative market data rows.
func (s *Storage) mapRows(rows []map[string]any) ([]*shared.MarketData, error) {
	records := make([]*shared.MarketData, 0, len(rows))
	for _, row := range rows {
		record, err := recordFromRow(row)
		if err != nil {
			s.cfg.Logger.Error().Msgf("unexpected market data row shape: %s", spew.Sdump(row))
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// FindMarketDataForAnalysis returns a bounded batch of records needing
// analysis, unioned with a sample of recently closed records.
func (s *Storage) FindMarketDataForAnalysis(ctx context.Context, limit int, recentCount int) ([]*shared.MarketData, error) {
	nowMs := time.Now().UTC().UnixMilli()
	rows, err := s.queryAssoc(ctx, findForAnalysisSQL, recentCount, nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("finding records for analysis: %w", err)
	}

	return s.mapRows(rows)
}

// HistoricalData returns up to count records at or preceding the provided
// open time for the timeframe, most recent first.
func (s *Storage) HistoricalData(ctx context.Context, timeframeID uuid.UUID, symbol string, contract shared.ContractType, from time.Time, count int) ([]*shared.MarketData, error) {
	rows, err := s.queryAssoc(ctx, historicalDataSQL, timeframeID.String(),
		symbol, contract.String(), from.UnixMilli(), count)
	if err != nil {
		return nil, fmt.Errorf("finding historical window: %w", err)
	}

	return s.mapRows(rows)
}

// UpdateIndicators applies the provided partial update to one record.
func (s *Storage) UpdateIndicators(ctx context.Context, update *shared.IndicatorUpdate) error {
	params, err := updateParams(update)
	if err != nil {
		return fmt.Errorf("encoding indicator update: %w", err)
	}

	resp, err := s.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              updateIndicatorsSQL,
			PositionalParams: params,
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return fmt.Errorf("updating indicators: %w", err)
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("updating indicators: %d -> %s", idx, errStr)
	}

	return nil
}
