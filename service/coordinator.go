// Package service wires the fetch and analysis pipelines into a scheduled
// per-pair ingestion service.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/draylan/candlefeed/shared"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

const (
	// defaultMaxConcurrent is the default number of pairs allowed to run
	// fetch and analysis cycles at the same time.
	defaultMaxConcurrent = 5
)

// JobState represents the lifecycle state of a tracked pair's job.
type JobState int32

const (
	// Idle indicates the job has not been scheduled yet.
	Idle JobState = iota
	// Backfilling indicates the job is loading historical data.
	Backfilling
	// Scheduled indicates the job is running on its interval.
	Scheduled
	// ShuttingDown indicates the job is draining before termination.
	ShuttingDown
	// Terminated indicates the job has stopped permanently.
	Terminated
)

// String stringifies the provided job state.
func (s JobState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Backfilling:
		return "backfilling"
	case Scheduled:
		return "scheduled"
	case ShuttingDown:
		return "shutting down"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Fetcher fetches market data for a tracked pair.
type Fetcher interface {
	// Initialize loads historical market data for the pair.
	Initialize(ctx context.Context) (int, error)
	// FetchRecent fetches market data since the last stored record.
	FetchRecent(ctx context.Context) (int, error)
}

// Analyzer computes indicators for stored market data.
type Analyzer interface {
	// AnalyzeMarketData analyzes all records awaiting analysis.
	AnalyzeMarketData(ctx context.Context) (int, error)
}

// Pair represents a tracked (symbol, contract, interval) combination and
// the pipelines serving it.
type Pair struct {
	// Timeframe is the tracked timeframe.
	Timeframe *shared.TimeFrame
	// Fetcher fetches market data for the timeframe.
	Fetcher Fetcher
	// Analyzer analyzes stored market data for the timeframe.
	Analyzer Analyzer
}

// CoordinatorConfig represents the configuration for the coordinator.
type CoordinatorConfig struct {
	// Pairs represents the tracked pairs.
	Pairs []*Pair
	// Backfill loads historical data for every pair before scheduling.
	Backfill bool
	// MaxConcurrent caps the number of pairs cycling at the same time.
	MaxConcurrent int64
	// Logger represents the application logger.
	Logger zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *CoordinatorConfig) Validate() error {
	var errs error

	if len(cfg.Pairs) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no pairs provided for the coordinator"))
	}
	for idx, pair := range cfg.Pairs {
		if pair == nil {
			errs = errors.Join(errs, fmt.Errorf("pair at index %d cannot be nil", idx))
			continue
		}
		if pair.Timeframe == nil {
			errs = errors.Join(errs, fmt.Errorf("pair at index %d has no timeframe", idx))
		}
		if pair.Fetcher == nil {
			errs = errors.Join(errs, fmt.Errorf("pair at index %d has no fetcher", idx))
		}
		if pair.Analyzer == nil {
			errs = errors.Join(errs, fmt.Errorf("pair at index %d has no analyzer", idx))
		}
	}
	if cfg.MaxConcurrent < 0 {
		errs = errors.Join(errs, fmt.Errorf("max concurrent cycles cannot be negative"))
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}

	return errs
}

// Coordinator schedules recurring fetch and analysis cycles for every
// tracked pair.
type Coordinator struct {
	cfg          *CoordinatorConfig
	jobScheduler *gocron.Scheduler
	slots        *semaphore.Weighted
	states       []*atomic.Int32
	wg           sync.WaitGroup
}

// NewCoordinator initializes a new coordinator.
func NewCoordinator(cfg *CoordinatorConfig) (*Coordinator, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating coordinator config: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating job scheduler: %w", err)
	}

	states := make([]*atomic.Int32, len(cfg.Pairs))
	for idx := range states {
		states[idx] = atomic.NewInt32(int32(Idle))
	}

	c := &Coordinator{
		cfg:          cfg,
		jobScheduler: &scheduler,
		slots:        semaphore.NewWeighted(cfg.MaxConcurrent),
		states:       states,
	}

	return c, nil
}

// JobState returns the current state of the job for the pair at the
// provided index.
func (c *Coordinator) JobState(idx int) JobState {
	return JobState(c.states[idx].Load())
}

// cycle runs one fetch and analysis pass for the provided pair. Failures
// are logged, a failed cycle never stops the schedule.
func (c *Coordinator) cycle(ctx context.Context, pair *Pair) {
	fetched, err := pair.Fetcher.FetchRecent(ctx)
	if err != nil {
		c.cfg.Logger.Error().Msgf("fetching recent data for %s: %v",
			pair.Timeframe.Key(), err)
	}

	analyzed, err := pair.Analyzer.AnalyzeMarketData(ctx)
	if err != nil {
		c.cfg.Logger.Error().Msgf("analyzing data for %s: %v",
			pair.Timeframe.Key(), err)
	}

	if fetched > 0 || analyzed > 0 {
		c.cfg.Logger.Info().Msgf("%s: fetched %d records, analyzed %d",
			pair.Timeframe.Key(), fetched, analyzed)
	}
}

// tick runs a scheduled cycle for the pair at the provided index, bounded
// by the process-wide concurrency cap. Ticks that cannot acquire a slot
// are dropped.
func (c *Coordinator) tick(ctx context.Context, idx int) {
	// Register with the wait group before the state check so a shutdown
	// observed mid-tick still waits for this tick to unwind.
	c.wg.Add(1)
	defer c.wg.Done()

	if JobState(c.states[idx].Load()) != Scheduled {
		return
	}

	if !c.slots.TryAcquire(1) {
		c.cfg.Logger.Warn().Msgf("skipping tick for %s: all %d cycle slots in use",
			c.cfg.Pairs[idx].Timeframe.Key(), c.cfg.MaxConcurrent)
		return
	}
	defer c.slots.Release(1)

	c.cycle(ctx, c.cfg.Pairs[idx])
}

// backfill loads historical data and runs a first analysis pass for every
// tracked pair, one pair at a time.
func (c *Coordinator) backfill(ctx context.Context) error {
	for idx, pair := range c.cfg.Pairs {
		c.states[idx].Store(int32(Backfilling))

		count, err := pair.Fetcher.Initialize(ctx)
		if err != nil {
			return fmt.Errorf("backfilling %s: %w", pair.Timeframe.Key(), err)
		}

		analyzed, err := pair.Analyzer.AnalyzeMarketData(ctx)
		if err != nil {
			return fmt.Errorf("analyzing backfill for %s: %w", pair.Timeframe.Key(), err)
		}

		c.cfg.Logger.Info().Msgf("%s: backfilled %d records, analyzed %d",
			pair.Timeframe.Key(), count, analyzed)
	}

	return nil
}

// Run manages the lifecycle processes of the coordinator.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.cfg.Backfill {
		err := c.backfill(ctx)
		if err != nil {
			for idx := range c.states {
				c.states[idx].Store(int32(Terminated))
			}
			return err
		}
	}

	for idx, pair := range c.cfg.Pairs {
		jobIdx := idx
		_, err := (*c.jobScheduler).NewJob(
			gocron.DurationJob(pair.Timeframe.Duration()),
			gocron.NewTask(func() {
				c.tick(ctx, jobIdx)
			}),
		)
		if err != nil {
			return fmt.Errorf("scheduling job for %s: %w", pair.Timeframe.Key(), err)
		}

		c.states[idx].Store(int32(Scheduled))
	}

	(*c.jobScheduler).Start()
	c.cfg.Logger.Info().Msgf("coordinator running %d pairs, %d cycle slots",
		len(c.cfg.Pairs), c.cfg.MaxConcurrent)

	<-ctx.Done()

	for idx := range c.states {
		c.states[idx].Store(int32(ShuttingDown))
	}

	err := (*c.jobScheduler).Shutdown()
	if err != nil {
		c.cfg.Logger.Error().Msgf("shutting down job scheduler: %v", err)
	}

	// Wait for in-flight cycles to drain.
	c.wg.Wait()

	for idx := range c.states {
		c.states[idx].Store(int32(Terminated))
	}

	return nil
}
