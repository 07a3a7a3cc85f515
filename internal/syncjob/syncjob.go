// Package syncjob models the retry contract for upstream
// synchronization jobs: an exponential backoff policy plus a generic
// retrying executor, independent of what the job does.
package syncjob

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Default backoff configuration constants.
const (
	DefaultBaseDelay  = 2 * time.Second
	DefaultMultiplier = 2.0
	DefaultMaxRetries = 5
)

// Policy is an exponential backoff policy:
// delay(n) = base × multiplier^n, up to MaxRetries attempts after the
// first, after which the job is marked failed.
type Policy struct {
	Base       time.Duration
	Multiplier float64
	MaxRetries int
}

// Option applies a configuration option to a Policy.
type Option func(*Policy)

// WithBase sets the initial delay.
func WithBase(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.Base = d
		}
	}
}

// WithMultiplier sets the delay growth factor.
func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		if m >= 1 {
			p.Multiplier = m
		}
	}
}

// WithMaxRetries caps the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(p *Policy) {
		if n >= 0 {
			p.MaxRetries = n
		}
	}
}

// NewPolicy creates a Policy with configuration options.
func NewPolicy(opts ...Option) Policy {
	p := Policy{
		Base:       DefaultBaseDelay,
		Multiplier: DefaultMultiplier,
		MaxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Delay returns the wait before retry number retryCount (zero-based).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	return time.Duration(float64(p.Base) * math.Pow(p.Multiplier, float64(retryCount)))
}

// Exhausted reports whether retryCount has passed the retry cap.
func (p Policy) Exhausted(retryCount int) bool {
	return retryCount >= p.MaxRetries
}

// Execute runs fn, retrying under the policy until it succeeds, the
// policy is exhausted, or ctx is canceled. The last error is wrapped
// in ErrExhausted when retries run out.
func Execute(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Exhausted(attempt) {
			return fmt.Errorf("%w after %d retries: %w", ErrExhausted, attempt, err)
		}
		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("sync canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
