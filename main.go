package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/draylan/candlefeed/analysis"
	"github.com/draylan/candlefeed/fetch"
	"github.com/draylan/candlefeed/service"
	"github.com/draylan/candlefeed/shared"
	"github.com/draylan/candlefeed/storage"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// buildPairs resolves timeframe identities for every tracked pair entry and
// assembles their fetch pipelines.
func buildPairs(ctx context.Context, cfg *Config, store *storage.Storage, client *fetch.BinanceClient, engine *analysis.Engine, logger zerolog.Logger) ([]*service.Pair, error) {
	pairs := make([]*service.Pair, 0, len(cfg.Pairs))
	for _, spec := range cfg.Pairs {
		contract, err := shared.ParseContractType(spec.Contract)
		if err != nil {
			return nil, err
		}

		for _, interval := range spec.Intervals {
			minutes, ok := shared.IntervalToMinutes(interval)
			if !ok {
				continue
			}

			tf, err := store.FindOrCreateTimeframe(ctx, spec.Symbol, contract, minutes)
			if err != nil {
				return nil, err
			}

			fetcherLogger := logger.With().Str("component", "fetcher").
				Str("pair", tf.Key()).Logger()
			fetcher, err := fetch.NewFetcher(&fetch.FetcherConfig{
				Source:       client,
				Store:        store,
				Timeframe:    tf,
				LookbackDays: cfg.LookbackDays,
				Logger:       fetcherLogger,
			})
			if err != nil {
				return nil, err
			}

			pairs = append(pairs, &service.Pair{
				Timeframe: tf,
				Fetcher:   fetcher,
				Analyzer:  engine,
			})
		}
	}

	return pairs, nil
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	logger := zlog.With().Str("service", "candlefeed").Logger()

	storageLogger := logger.With().Str("component", "storage").Logger()
	store, err := storage.NewStorage(ctx, &storage.StorageConfig{
		Endpoint: cfg.RQLiteEndpoint,
		User:     cfg.RQLiteUser,
		Pass:     cfg.RQLitePass,
		Logger:   storageLogger,
	})
	if err != nil {
		log.Printf("creating storage: %v", err)
		return
	}

	clientLogger := logger.With().Str("component", "binance").Logger()
	client := fetch.NewBinanceClient(&fetch.BinanceConfig{
		BaseURL: cfg.BinanceBaseURL,
		Logger:  clientLogger,
	})

	engineLogger := logger.With().Str("component", "analysis").Logger()
	engine, err := analysis.NewEngine(&analysis.EngineConfig{
		Store:  store,
		Logger: engineLogger,
	})
	if err != nil {
		log.Printf("creating analysis engine: %v", err)
		return
	}

	pairs, err := buildPairs(ctx, &cfg, store, client, engine, logger)
	if err != nil {
		log.Printf("building tracked pairs: %v", err)
		return
	}

	coordinatorLogger := logger.With().Str("component", "coordinator").Logger()
	coordinator, err := service.NewCoordinator(&service.CoordinatorConfig{
		Pairs:         pairs,
		Backfill:      cfg.Backfill,
		MaxConcurrent: cfg.MaxConcurrent,
		Logger:        coordinatorLogger,
	})
	if err != nil {
		log.Printf("creating coordinator: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	err = coordinator.Run(ctx)
	if err != nil {
		logger.Error().Msgf("running coordinator: %v", err)
	}
}
