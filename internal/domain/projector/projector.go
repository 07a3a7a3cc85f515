// Package projector converts source records into dated cash events by
// applying payment offsets relative to an anchor date.
package projector

import (
	"context"
	"fmt"
	"time"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// AnchorResolver returns the anchor date for a cost record. The second
// return is false when no anchor can be resolved, in which case the
// record is excluded from projection.
type AnchorResolver func(cost model.CostRecord) (time.Time, bool)

// Option applies a configuration option to the Projector.
type Option func(*Projector)

// WithAnchorResolver overrides how cost anchors are resolved. The
// default resolver looks up the parent income record's expected date.
func WithAnchorResolver(r AnchorResolver) Option {
	return func(p *Projector) {
		if r != nil {
			p.resolve = r
		}
	}
}

// Projector is a pure transformation: it never mutates its inputs and
// carries no state between runs.
type Projector struct {
	resolve AnchorResolver
}

// New creates a Projector with configuration options.
func New(opts ...Option) *Projector {
	p := &Projector{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project emits exactly one event per income record and, per cost
// record, either one event (single-payment mode) or one per line
// (itemized mode). Offsets may be negative and are applied as-is.
// Records that cannot contribute a valid event are skipped. Output
// order is unspecified; consumers must not rely on it.
func (p *Projector) Project(_ context.Context, incomes []model.IncomeRecord, costs []model.CostRecord) []model.ProjectedCashEvent {
	resolve := p.resolve
	if resolve == nil {
		resolve = incomeAnchors(incomes)
	}

	events := make([]model.ProjectedCashEvent, 0, len(incomes)+len(costs))
	for _, in := range incomes {
		if in.Amount.IsZero() || in.ExpectedDate.IsZero() {
			continue
		}
		events = append(events, model.ProjectedCashEvent{
			ProjectID:   in.ProjectID,
			Direction:   model.DirectionIncome,
			Amount:      in.Amount.Abs(),
			Date:        model.Day(in.ExpectedDate),
			Source:      model.SourceMilestone,
			SourceID:    in.ID,
			Description: in.Description,
		})
	}
	for _, c := range costs {
		anchor, ok := resolve(c)
		if !ok || anchor.IsZero() {
			continue
		}
		events = append(events, projectCost(c, model.Day(anchor))...)
	}
	return events
}

func projectCost(c model.CostRecord, anchor time.Time) []model.ProjectedCashEvent {
	if c.Mode == model.CostItemized {
		out := make([]model.ProjectedCashEvent, 0, len(c.Lines))
		for i, line := range c.Lines {
			if line.Amount.IsZero() {
				continue
			}
			desc := line.Description
			if desc == "" {
				desc = fmt.Sprintf("%s (payment %d)", c.Description, i+1)
			}
			out = append(out, model.ProjectedCashEvent{
				ProjectID:   c.ProjectID,
				Direction:   model.DirectionOutgo,
				Amount:      line.Amount.Abs(),
				Date:        anchor.AddDate(0, 0, line.OffsetDays),
				Source:      c.Source,
				SourceID:    c.ID,
				Description: desc,
			})
		}
		return out
	}
	if c.Amount.IsZero() {
		return nil
	}
	return []model.ProjectedCashEvent{{
		ProjectID:   c.ProjectID,
		Direction:   model.DirectionOutgo,
		Amount:      c.Amount.Abs(),
		Date:        anchor.AddDate(0, 0, c.OffsetDays),
		Source:      c.Source,
		SourceID:    c.ID,
		Description: c.Description,
	}}
}

// incomeAnchors builds the default resolver: a cost's anchor is its
// parent income record's expected date.
func incomeAnchors(incomes []model.IncomeRecord) AnchorResolver {
	byID := make(map[string]time.Time, len(incomes))
	for _, in := range incomes {
		if in.ID != "" && !in.ExpectedDate.IsZero() {
			byID[in.ID] = in.ExpectedDate
		}
	}
	return func(c model.CostRecord) (time.Time, bool) {
		anchor, ok := byID[c.IncomeID]
		return anchor, ok
	}
}
