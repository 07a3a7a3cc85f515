package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CASHCAST_CONFIG is set
//  3. env (prefix CASHCAST_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CASHCAST_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CASHCAST_ADDR, CASHCAST_MATCH_THRESHOLD, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("CASHCAST_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "cashcast_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.Granularity != "monthly" && c.Granularity != "weekly" {
		return fmt.Errorf("%w: granularity must be monthly or weekly, got %q", ErrInvalidConfig, c.Granularity)
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold >= 1 {
		return fmt.Errorf("%w: match_threshold must be in (0,1), got %g", ErrInvalidConfig, c.MatchThreshold)
	}
	if c.MatchScheme != "project_aware" && c.MatchScheme != "bank_feed" {
		return fmt.Errorf("%w: match_scheme must be project_aware or bank_feed, got %q", ErrInvalidConfig, c.MatchScheme)
	}
	for _, field := range []struct{ name, value string }{
		{"starting_balance", c.StartingBalance},
		{"minimum_balance", c.MinimumBalance},
	} {
		if _, err := decimal.NewFromString(field.value); err != nil {
			return fmt.Errorf("%w: %s is not a decimal: %w", ErrInvalidConfig, field.name, err)
		}
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: backoff_multiplier must be >= 1, got %g", ErrInvalidConfig, c.BackoffMultiplier)
	}
	return nil
}

// StartingBalanceDecimal parses the configured starting balance.
// Load has already validated the string.
func (c *Config) StartingBalanceDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.StartingBalance)
	return d
}

// MinimumBalanceDecimal parses the configured minimum balance.
func (c *Config) MinimumBalanceDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(c.MinimumBalance)
	return d
}
