// Package matching pairs projected cash events with actual accounting
// transactions using a weighted similarity score.
package matching

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// Default matching configuration constants.
const (
	// DefaultThreshold is the minimum score a candidate must exceed for
	// a match to be emitted. Callers tune this between 0.3 and 0.5.
	DefaultThreshold = 0.4

	// dateWindowDays is the proximity horizon: candidates more than
	// this many days apart contribute zero date similarity.
	dateWindowDays = 30
)

// Scheme selects the weight set used for scoring. Weights always sum
// to 1.0.
type Scheme string

const (
	// SchemeProjectAware weights project identity highest. This is the
	// authoritative scheme for forecast-vs-actual matching.
	SchemeProjectAware Scheme = "project_aware"

	// SchemeBankFeed weights amount highest. It is kept for bank-feed
	// transactions that carry no project attribution.
	SchemeBankFeed Scheme = "bank_feed"
)

// Weights are the score component weights for one scheme.
type Weights struct {
	Project float64
	Amount  float64
	Date    float64
	Type    float64
}

func (s Scheme) weights() Weights {
	if s == SchemeBankFeed {
		return Weights{Amount: 0.4, Date: 0.3, Project: 0.2, Type: 0.1}
	}
	return Weights{Project: 0.4, Amount: 0.3, Date: 0.2, Type: 0.1}
}

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithThreshold sets the minimum acceptance threshold.
func WithThreshold(t float64) Option {
	return func(m *Matcher) {
		if t > 0 && t < 1 {
			m.threshold = t
		}
	}
}

// WithScheme selects the weight scheme. One scheme applies to a whole
// match run; the two are never mixed within a run.
func WithScheme(s Scheme) Option {
	return func(m *Matcher) {
		if s == SchemeProjectAware || s == SchemeBankFeed {
			m.scheme = s
		}
	}
}

// Result is the outcome of one match run. Every input event and
// transaction appears exactly once, either in a match or unmatched.
type Result struct {
	Matches          []model.VarianceMatch
	UnmatchedEvents  []model.ProjectedCashEvent
	UnmatchedActuals []model.ActualTransaction
}

// Matcher performs greedy best-match assignment: each forecast event
// takes the highest-scoring still-unmatched candidate, not a globally
// optimal pairing.
type Matcher struct {
	threshold float64
	scheme    Scheme
}

// New creates a Matcher with configuration options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		threshold: DefaultThreshold,
		scheme:    SchemeProjectAware,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the configured acceptance threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match pairs events against transactions of compatible direction.
// Events are processed in date-then-id order so re-runs over the same
// inputs produce identical results. An event with no candidate above
// the threshold stays unmatched; that is a normal outcome, not an
// error.
func (m *Matcher) Match(_ context.Context, events []model.ProjectedCashEvent, actuals []model.ActualTransaction) Result {
	ordered := make([]model.ProjectedCashEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].SourceID < ordered[j].SourceID
	})

	w := m.scheme.weights()
	consumed := make([]bool, len(actuals))
	res := Result{}

	for _, e := range ordered {
		best := -1
		bestScore := 0.0
		for i, a := range actuals {
			if consumed[i] || a.Direction != e.Direction {
				continue
			}
			if s := m.score(w, e, a); s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 || bestScore <= m.threshold {
			res.UnmatchedEvents = append(res.UnmatchedEvents, e)
			continue
		}
		consumed[best] = true
		a := actuals[best]
		res.Matches = append(res.Matches, model.VarianceMatch{
			Event:              e,
			Transaction:        a,
			AmountVariance:     a.Amount.Sub(e.Amount),
			TimingVarianceDays: daysBetween(e.Date, a.OccurredAt),
			Confidence:         bestScore,
			Status:             model.MatchMatched,
		})
	}

	for i, a := range actuals {
		if !consumed[i] {
			res.UnmatchedActuals = append(res.UnmatchedActuals, a)
		}
	}
	return res
}

// score computes the weighted similarity, clamped to [0,1].
func (m *Matcher) score(w Weights, e model.ProjectedCashEvent, a model.ActualTransaction) float64 {
	s := w.Amount * amountSimilarity(e, a)
	s += w.Date * dateProximity(e, a)
	if e.ProjectID == a.ProjectID {
		// Same project, or both unattributed.
		s += w.Project
	}
	if e.Source == a.Source {
		s += w.Type
	}
	return math.Max(0, math.Min(1, s))
}

// amountSimilarity is 1 − |Δ|/max(forecast, actual). Two zero amounts
// are a perfect match; dividing by zero must never reach the score.
func amountSimilarity(e model.ProjectedCashEvent, a model.ActualTransaction) float64 {
	fa := e.Amount.Abs()
	aa := a.Amount.Abs()
	maxAmt := decimalMax(fa, aa)
	if maxAmt.IsZero() {
		return 1
	}
	diff, _ := fa.Sub(aa).Abs().Div(maxAmt).Float64()
	return math.Max(0, 1-diff)
}

// dateProximity decays linearly to zero over the 30-day window.
func dateProximity(e model.ProjectedCashEvent, a model.ActualTransaction) float64 {
	d := daysBetween(e.Date, a.OccurredAt)
	if d < 0 {
		d = -d
	}
	return math.Max(0, 1-float64(d)/dateWindowDays)
}

// daysBetween is to − from in whole days, ignoring time of day.
func daysBetween(from, to time.Time) int {
	return int(model.Day(to).Sub(model.Day(from)).Hours() / hoursPerDay)
}

const hoursPerDay = 24

func decimalMax(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
