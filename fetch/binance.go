// Package fetch implements the exchange client and the market data fetcher
// keeping timeframes backfilled and current.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/draylan/candlefeed/shared"
)

const (
	// defaultBaseURL is the production futures API endpoint.
	defaultBaseURL = "https://fapi.binance.com/fapi/v1/"
	// continuousKlinesPath is the API path for continuous contract klines.
	continuousKlinesPath = "continuousKlines"
	// usedWeightHeader reports the request weight consumed in the current
	// minute.
	usedWeightHeader = "X-Mbx-Used-Weight-1m"
	// maxUsedWeight is the weight ceiling beyond which requests back off.
	maxUsedWeight = 4000
	// rateLimitBackoff is the pause before retrying a rate limited request.
	rateLimitBackoff = 100 * time.Millisecond
	// maxRateLimitRetries caps retries for requests rejected with a 429.
	maxRateLimitRetries = 5
	// requestsPerSecond paces outbound API calls.
	requestsPerSecond = 5
	// klineFieldCount is the number of positional kline fields consumed.
	klineFieldCount = 9
)

// APIError represents a non-success response from the exchange API.
type APIError struct {
	Status int
	Body   string
}

// Error satisfies the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Body)
}

// BinanceConfig represents the configuration for the Binance futures client.
type BinanceConfig struct {
	// BaseURL overrides the API endpoint, primarily for tests.
	BaseURL string
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// BinanceClient fetches continuous contract klines from the Binance
// futures API.
type BinanceClient struct {
	cfg     *BinanceConfig
	httpc   http.Client
	limiter *rate.Limiter
}

// Ensure the BinanceClient implements the KlineSource interface.
var _ shared.KlineSource = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new Binance futures client.
func NewBinanceClient(cfg *BinanceConfig) *BinanceClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return &BinanceClient{
		cfg:     cfg,
		httpc:   http.Client{Timeout: time.Second * 10},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// sleepCtx pauses for the provided duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchContinuousKlines fetches one page of continuous klines, backing off
// and retrying when the exchange reports rate limit pressure.
func (c *BinanceClient) FetchContinuousKlines(ctx context.Context, pair string, contract shared.ContractType, interval string, startMs, endMs int64, limit int) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("pair", pair)
	params.Add("contractType", contract.String())
	params.Add("interval", interval)
	params.Add("startTime", strconv.FormatInt(startMs, 10))
	params.Add("endTime", strconv.FormatInt(endMs, 10))
	params.Add("limit", strconv.Itoa(limit))

	formedURL := fmt.Sprintf("%s%s?%s", c.cfg.BaseURL, continuousKlinesPath, params.Encode())

	var retries int
	for {
		err := c.limiter.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("pacing kline request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating kline request: %w", err)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching continuous klines for %s: %w", pair, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}

		if weight, err := strconv.Atoi(resp.Header.Get(usedWeightHeader)); err == nil && weight >= maxUsedWeight {
			c.cfg.Logger.Warn().Int("weight", weight).Msg("rate limit weight threshold reached")
			if err := sleepCtx(ctx, rateLimitBackoff); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests && retries < maxRateLimitRetries {
			retries++
			c.cfg.Logger.Warn().Msgf("rate limited, retry %d of %d", retries, maxRateLimitRetries)
			if err := sleepCtx(ctx, rateLimitBackoff); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
		}

		return gjson.ParseBytes(body).Array(), nil
	}
}

// ParseKlines normalizes raw kline elements into market data records owned
// by the provided timeframe. Any missing or malformed required field fails
// the whole page.
func (c *BinanceClient) ParseKlines(data []gjson.Result, tf *shared.TimeFrame) ([]*shared.MarketData, error) {
	records := make([]*shared.MarketData, 0, len(data))

	for idx := range data {
		fields := data[idx].Array()
		if len(fields) < klineFieldCount {
			return nil, fmt.Errorf("kline %d: expected at least %d fields, got %d",
				idx, klineFieldCount, len(fields))
		}

		openTime, err := klineTime(fields[0], "open time")
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", idx, err)
		}
		closeTime, err := klineTime(fields[6], "close time")
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", idx, err)
		}

		open, err := klinePrice(fields[1], "open")
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", idx, err)
		}
		high, err := klinePrice(fields[2], "high")
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", idx, err)
		}
		low, err := klinePrice(fields[3], "low")
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", idx, err)
		}
		clos, err := klinePrice(fields[4], "close")
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", idx, err)
		}
		volume, err := klinePrice(fields[5], "volume")
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", idx, err)
		}

		if fields[8].Type != gjson.Number {
			return nil, fmt.Errorf("kline %d: invalid trades format", idx)
		}
		trades := fields[8].Int()

		records = append(records, shared.NewMarketData(tf, openTime, closeTime,
			open, high, low, clos, volume, trades))
	}

	return records, nil
}

// klineTime validates and converts an epoch millisecond kline field.
func klineTime(field gjson.Result, name string) (time.Time, error) {
	if field.Type != gjson.Number {
		return time.Time{}, fmt.Errorf("invalid %s format", name)
	}

	return time.UnixMilli(field.Int()).UTC(), nil
}

// klinePrice validates and converts a decimal string kline field.
func klinePrice(field gjson.Result, name string) (float64, error) {
	if field.Type != gjson.String {
		return 0, fmt.Errorf("invalid %s format", name)
	}

	value, err := strconv.ParseFloat(field.Str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s decimal: %w", name, err)
	}

	return value, nil
}
