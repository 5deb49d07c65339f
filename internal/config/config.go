package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvorobiov/crate/logger"
)

// Config carries the tunables of the merge layer's fetch machinery.
type Config struct {
	// Maximum number of upstream page fetches running concurrently
	// within a single fetch-more round.
	MaxFetchConcurrency int

	// Upper bound on rows requested per page from a single upstream.
	MaxPageSize int

	// Deadline applied to one fetch-more round. Zero disables it; any
	// tighter timeout belongs to the transport behind the page source.
	FetchTimeout time.Duration

	LogLevel string
}

func WithDefaults() *Config {
	return &Config{
		MaxFetchConcurrency: 4,
		MaxPageSize:         10000,
		FetchTimeout:        0,
		LogLevel:            "warn",
	}
}

func (c *Config) DeepCopy() *Config {
	if c == nil {
		return nil
	}

	return &Config{
		MaxFetchConcurrency: c.MaxFetchConcurrency,
		MaxPageSize:         c.MaxPageSize,
		FetchTimeout:        c.FetchTimeout,
		LogLevel:            c.LogLevel,
	}
}

// FromEnv returns defaults overridden by CRATE_* environment variables.
// A .env file in the working directory is loaded first if present.
func FromEnv() *Config {
	// missing .env is the normal case outside development
	_ = godotenv.Load()

	cfg := WithDefaults()

	if v := os.Getenv("CRATE_MAX_FETCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxFetchConcurrency = n
		} else {
			logger.Log.Warn().Msgf("crate: ignoring invalid CRATE_MAX_FETCH_CONCURRENCY %q", v)
		}
	}

	if v := os.Getenv("CRATE_MAX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPageSize = n
		} else {
			logger.Log.Warn().Msgf("crate: ignoring invalid CRATE_MAX_PAGE_SIZE %q", v)
		}
	}

	if v := os.Getenv("CRATE_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.FetchTimeout = d
		} else {
			logger.Log.Warn().Msgf("crate: ignoring invalid CRATE_FETCH_TIMEOUT %q", v)
		}
	}

	if v := os.Getenv("CRATE_LOG_LEVEL"); v != "" {
		if lvl, err := zerolog.ParseLevel(v); err == nil {
			cfg.LogLevel = v
			logger.SetLogLevel(lvl)
		} else {
			logger.Log.Warn().Msgf("crate: ignoring invalid CRATE_LOG_LEVEL %q", v)
		}
	}

	return cfg
}
