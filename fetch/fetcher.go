package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/draylan/candlefeed/shared"
)

const (
	// defaultPageLimit is the kline page size requested from the exchange.
	defaultPageLimit = 500
	// defaultLookbackDays is the initial backfill horizon.
	defaultLookbackDays = 60
	// recentDataMaxRetries caps retries when a recent fetch returns nothing.
	recentDataMaxRetries = 3
	// recentDataRetryDelay is the pause between recent fetch retries.
	recentDataRetryDelay = 2 * time.Second
	// bootstrapWindow seeds the recent fetch start when the timeframe has
	// no persisted records yet.
	bootstrapWindow = 24 * time.Hour
)

// ErrNoData indicates a fetch window yielded no market data.
var ErrNoData = errors.New("no market data found")

// FetcherConfig represents the market data fetcher configuration.
type FetcherConfig struct {
	// Source is the exchange kline source.
	Source shared.KlineSource
	// Store is the market data persistence handle.
	Store shared.MarketDataStore
	// Timeframe identifies the (symbol, contract, interval) being fetched.
	Timeframe *shared.TimeFrame
	// LookbackDays is the initial backfill horizon in days.
	LookbackDays int
	// PageLimit is the kline page size requested from the exchange.
	PageLimit int
	// RecentRetryDelay overrides the pause between recent fetch retries,
	// primarily for tests.
	RecentRetryDelay time.Duration
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the configuration is valid and applies defaults for
// unset tunables.
func (cfg *FetcherConfig) Validate() error {
	var errs error

	if cfg.Source == nil {
		errs = errors.Join(errs, fmt.Errorf("source cannot be nil"))
	}
	if cfg.Store == nil {
		errs = errors.Join(errs, fmt.Errorf("store cannot be nil"))
	}
	if cfg.Timeframe == nil {
		errs = errors.Join(errs, fmt.Errorf("timeframe cannot be nil"))
	}
	if cfg.LookbackDays < 0 {
		errs = errors.Join(errs, fmt.Errorf("lookback days cannot be negative"))
	}
	if cfg.PageLimit < 0 {
		errs = errors.Join(errs, fmt.Errorf("page limit cannot be negative"))
	}
	if errs != nil {
		return errs
	}

	if cfg.LookbackDays == 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.RecentRetryDelay == 0 {
		cfg.RecentRetryDelay = recentDataRetryDelay
	}

	return nil
}

// Fetcher keeps one timeframe backfilled and current.
type Fetcher struct {
	cfg *FetcherConfig
}

// NewFetcher initializes a new market data fetcher.
func NewFetcher(cfg *FetcherConfig) (*Fetcher, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating fetcher config: %w", err)
	}

	return &Fetcher{cfg: cfg}, nil
}

// fetchRange pages through the provided window, persisting each page before
// advancing past its last open time. It returns ErrNoData when the whole
// window yielded nothing.
func (f *Fetcher) fetchRange(ctx context.Context, start, end time.Time) (int, error) {
	tf := f.cfg.Timeframe
	interval := tf.Interval()

	var inserted int
	current := start.UnixMilli()
	endMs := end.UnixMilli()

	for current < endMs {
		page, err := f.cfg.Source.FetchContinuousKlines(ctx, tf.Symbol, tf.ContractType,
			interval, current, endMs, f.cfg.PageLimit)
		if err != nil {
			return inserted, fmt.Errorf("fetching kline page: %w", err)
		}
		if len(page) == 0 {
			break
		}

		records, err := f.cfg.Source.ParseKlines(page, tf)
		if err != nil {
			return inserted, fmt.Errorf("parsing kline page: %w", err)
		}

		count, err := f.cfg.Store.UpsertMarketData(ctx, records)
		if err != nil {
			return inserted, fmt.Errorf("persisting kline page: %w", err)
		}

		inserted += count
		current = records[len(records)-1].OpenTime.UnixMilli() + 1
	}

	if inserted == 0 {
		return 0, ErrNoData
	}

	return inserted, nil
}

// Initialize backfills the timeframe over the configured lookback horizon.
func (f *Fetcher) Initialize(ctx context.Context) (int, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -f.cfg.LookbackDays)

	return f.fetchRange(ctx, start, end)
}

// FetchRecent fetches everything newer than the latest persisted record,
// retrying a few times when nothing new has closed yet. Exhausting the
// retries is not an error, the timeframe is simply up to date.
func (f *Fetcher) FetchRecent(ctx context.Context) (int, error) {
	latest, err := f.cfg.Store.FindLatestByTimeframe(ctx, f.cfg.Timeframe.ID)
	if err != nil {
		return 0, fmt.Errorf("finding latest record: %w", err)
	}

	end := time.Now().UTC()
	var start time.Time
	if latest != nil {
		start = latest.OpenTime.Add(time.Millisecond)
	} else {
		start = end.Add(-bootstrapWindow)
	}

	for retries := 0; ; retries++ {
		count, err := f.fetchRange(ctx, start, end)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, ErrNoData) {
			return count, err
		}
		if retries >= recentDataMaxRetries {
			return 0, nil
		}

		f.cfg.Logger.Warn().Str("symbol", f.cfg.Timeframe.Symbol).
			Msgf("no recent data found, retry %d of %d", retries+1, recentDataMaxRetries)
		if err := sleepCtx(ctx, f.cfg.RecentRetryDelay); err != nil {
			return 0, err
		}
	}
}
