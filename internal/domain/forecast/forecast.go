// Package forecast buckets projected cash events into periods and
// computes running balances.
package forecast

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/buildflow/cashcast/internal/domain/model"
	"github.com/buildflow/cashcast/internal/domain/period"
)

// Forecast is the aggregated view over one period sequence.
type Forecast struct {
	Periods        []model.ForecastPeriod
	TotalIncome    decimal.Decimal
	TotalOutgo     decimal.Decimal
	TotalNet       decimal.Decimal
	ClosingBalance decimal.Decimal
	// PerProject holds the same bucketing restricted to each project's
	// events, with a zero opening balance. Overheads (no project id)
	// appear only in the organization-level periods.
	PerProject map[string][]model.ForecastPeriod
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithProjectBreakdown toggles the per-project re-bucketing. On by
// default; callers that only need organization totals can switch it off.
func WithProjectBreakdown(enabled bool) Option {
	return func(a *Aggregator) {
		a.breakdown = enabled
	}
}

// Aggregator assigns events to period buckets in a single pass.
type Aggregator struct {
	breakdown bool
}

// New creates an Aggregator with configuration options.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{breakdown: true}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// bucket accumulates one period's movements.
type bucket struct {
	income decimal.Decimal
	outgo  decimal.Decimal
}

// Aggregate sums event amounts per span, split by direction, and runs
// the balance forward from opening. An event exactly on a span boundary
// belongs to the span it starts. Events outside every span are ignored;
// within the spans no event is dropped or double-counted.
func (a *Aggregator) Aggregate(_ context.Context, events []model.ProjectedCashEvent, spans []period.Span, opening decimal.Decimal) Forecast {
	f := Forecast{ClosingBalance: opening}
	if len(spans) == 0 {
		if a.breakdown {
			f.PerProject = map[string][]model.ForecastPeriod{}
		}
		return f
	}

	orgBuckets := make([]bucket, len(spans))
	projBuckets := map[string][]bucket{}
	for _, e := range events {
		i := period.Index(spans, e.Date)
		if i < 0 {
			continue
		}
		apply(&orgBuckets[i], e)
		if a.breakdown && e.ProjectID != "" {
			bs, ok := projBuckets[e.ProjectID]
			if !ok {
				bs = make([]bucket, len(spans))
				projBuckets[e.ProjectID] = bs
			}
			apply(&bs[i], e)
		}
	}

	f.Periods = materialize(orgBuckets, spans, opening)
	for _, p := range f.Periods {
		f.TotalIncome = f.TotalIncome.Add(p.Income)
		f.TotalOutgo = f.TotalOutgo.Add(p.Outgo)
		f.TotalNet = f.TotalNet.Add(p.Net)
	}
	f.ClosingBalance = f.Periods[len(f.Periods)-1].Balance

	if a.breakdown {
		f.PerProject = make(map[string][]model.ForecastPeriod, len(projBuckets))
		for id, bs := range projBuckets {
			f.PerProject[id] = materialize(bs, spans, decimal.Zero)
		}
	}
	return f
}

func apply(b *bucket, e model.ProjectedCashEvent) {
	if e.Direction == model.DirectionOutgo {
		b.outgo = b.outgo.Add(e.Amount)
	} else {
		b.income = b.income.Add(e.Amount)
	}
}

func materialize(buckets []bucket, spans []period.Span, opening decimal.Decimal) []model.ForecastPeriod {
	periods := make([]model.ForecastPeriod, len(buckets))
	balance := opening
	for i, b := range buckets {
		net := b.income.Sub(b.outgo)
		balance = balance.Add(net)
		periods[i] = model.ForecastPeriod{
			Start:   spans[i].Start,
			End:     spans[i].End,
			Income:  b.income,
			Outgo:   b.outgo,
			Net:     net,
			Balance: balance,
		}
	}
	return periods
}
