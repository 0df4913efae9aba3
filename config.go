package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/draylan/candlefeed/shared"
)

// PairSpec describes one tracked pair entry from the pairs file.
type PairSpec struct {
	// Symbol is the exchange symbol, e.g. BTCUSDT.
	Symbol string `yaml:"symbol"`
	// Contract is the contract type, e.g. PERPETUAL.
	Contract string `yaml:"contract"`
	// Intervals are the tracked kline intervals, e.g. 5m, 1h.
	Intervals []string `yaml:"intervals"`
}

// pairsFile is the YAML document listing tracked pairs and their
// ingestion settings.
type pairsFile struct {
	Pairs         []PairSpec `yaml:"pairs"`
	LookbackDays  int        `yaml:"lookback_days"`
	MaxConcurrent int64      `yaml:"max_concurrent"`
}

// Config is the configuration struct for the service.
type Config struct {
	// RQLiteEndpoint is the rqlite database endpoint.
	RQLiteEndpoint string
	// RQLiteUser is the rqlite basic auth user.
	RQLiteUser string
	// RQLitePass is the rqlite basic auth password.
	RQLitePass string
	// BinanceBaseURL overrides the exchange API base url, for testing.
	BinanceBaseURL string
	// PairsFilepath is the filepath to the tracked pairs file.
	PairsFilepath string
	// Backfill loads historical data for every pair on startup.
	Backfill bool

	// Pairs are the tracked pairs loaded from the pairs file.
	Pairs []PairSpec
	// LookbackDays is the backfill depth loaded from the pairs file.
	LookbackDays int
	// MaxConcurrent is the cycle concurrency cap loaded from the pairs file.
	MaxConcurrent int64

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.RQLiteEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("rqlite endpoint cannot be an empty string"))
	}
	if cfg.PairsFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("pairs filepath cannot be an empty string"))
	}
	if len(cfg.Pairs) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no pairs provided for the service"))
	}
	for _, pair := range cfg.Pairs {
		if pair.Symbol == "" {
			errs = errors.Join(errs, fmt.Errorf("pair symbol cannot be an empty string"))
		}
		_, err := shared.ParseContractType(pair.Contract)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("pair %s: %w", pair.Symbol, err))
		}
		if len(pair.Intervals) == 0 {
			errs = errors.Join(errs, fmt.Errorf("pair %s has no intervals", pair.Symbol))
		}
		for _, interval := range pair.Intervals {
			_, ok := shared.IntervalToMinutes(interval)
			if !ok {
				errs = errors.Join(errs, fmt.Errorf("pair %s: unknown interval: %s",
					pair.Symbol, interval))
			}
		}
	}
	if cfg.LookbackDays < 0 {
		errs = errors.Join(errs, fmt.Errorf("lookback days cannot be negative"))
	}
	if cfg.MaxConcurrent < 0 {
		errs = errors.Join(errs, fmt.Errorf("max concurrent cycles cannot be negative"))
	}

	return errs
}

// loadPairsFile parses the tracked pairs file into the config.
func (cfg *Config) loadPairsFile() error {
	b, err := os.ReadFile(cfg.PairsFilepath)
	if err != nil {
		return fmt.Errorf("reading pairs file: %w", err)
	}

	var file pairsFile
	err = yaml.Unmarshal(b, &file)
	if err != nil {
		return fmt.Errorf("parsing pairs file: %w", err)
	}

	cfg.Pairs = file.Pairs
	cfg.LookbackDays = file.LookbackDays
	cfg.MaxConcurrent = file.MaxConcurrent

	return nil
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables, command
// line flags and the pairs file.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("rqliteendpoint", &cfg.RQLiteEndpoint, "the rqlite database endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("rqliteuser", &cfg.RQLiteUser, "the rqlite basic auth user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("rqlitepass", &cfg.RQLitePass, "the rqlite basic auth password")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("binancebaseurl", &cfg.BinanceBaseURL, "the exchange API base url override")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("pairsfilepath", &cfg.PairsFilepath, "the filepath to the tracked pairs file")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("backfill", &cfg.Backfill, "load historical data on startup")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.PairsFilepath != "" {
		err = cfg.loadPairsFile()
		if err != nil {
			return err
		}
	}

	return cfg.Validate()
}
