// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Granularity selects the forecast bucket size: monthly or weekly.
	Granularity string `koanf:"granularity"`

	// StartingBalance is the default opening balance for forecast runs,
	// as a decimal string.
	StartingBalance string `koanf:"starting_balance"`

	// MinimumBalance is the cash-gap threshold, as a decimal string.
	MinimumBalance string `koanf:"minimum_balance"`

	// MatchThreshold is the minimum acceptance score for variance
	// matching, typically between 0.3 and 0.5.
	MatchThreshold float64 `koanf:"match_threshold"`

	// MatchScheme selects the scoring weights: project_aware or
	// bank_feed.
	MatchScheme string `koanf:"match_scheme"`

	// SuggestDelayDays is the nominal delay proposed for outflows.
	SuggestDelayDays int `koanf:"suggest_delay_days"`

	// SuggestAdvanceDays is the nominal advance proposed for inflows.
	SuggestAdvanceDays int `koanf:"suggest_advance_days"`

	// SyncWorkerCount sets the number of ingestion workers.
	SyncWorkerCount int `koanf:"sync_worker_count"`

	// SyncQueueSize bounds the in-memory batch queue.
	SyncQueueSize int `koanf:"sync_queue_size"`

	// DedupeSize sets the size of the batch-id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Backoff policy for sync jobs: delay = base * multiplier^retry,
	// capped at max retries.
	BackoffBaseMS     int     `koanf:"backoff_base_ms"`
	BackoffMultiplier float64 `koanf:"backoff_multiplier"`
	BackoffMaxRetries int     `koanf:"backoff_max_retries"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		Granularity:        "monthly",
		StartingBalance:    "0",
		MinimumBalance:     "0",
		MatchThreshold:     0.4,
		MatchScheme:        "project_aware",
		SuggestDelayDays:   30,
		SuggestAdvanceDays: 14,
		SyncWorkerCount:    4,
		SyncQueueSize:      10_000,
		DedupeSize:         50_000,
		BackoffBaseMS:      2000,
		BackoffMultiplier:  2.0,
		BackoffMaxRetries:  5,
	}
}
