// Package suggest generates payment-timing suggestions for detected
// cash gaps.
package suggest

import (
	"context"
	"fmt"
	"sort"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// Default timing offsets in days.
const (
	DefaultDelayDays   = 30
	DefaultAdvanceDays = 14
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithDelayDays sets the nominal delay proposed for outflows.
func WithDelayDays(days int) Option {
	return func(g *Generator) {
		if days > 0 {
			g.delayDays = days
		}
	}
}

// WithAdvanceDays sets the nominal advance proposed for inflows.
func WithAdvanceDays(days int) Option {
	return func(g *Generator) {
		if days > 0 {
			g.advanceDays = days
		}
	}
}

// Generator proposes timing changes for events inside a gap. It never
// mutates source data; applying a suggestion is a separate external
// operation.
type Generator struct {
	delayDays   int
	advanceDays int
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		delayDays:   DefaultDelayDays,
		advanceDays: DefaultAdvanceDays,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Suggest proposes delaying delayable outflows (supplier claims and
// material orders) and advancing advanceable inflows (milestones only)
// for the events inside gap. Milestone and overhead outflows are never
// delayed. Results are sorted descending by cash-flow improvement.
func (g *Generator) Suggest(_ context.Context, gap model.CashGap) []model.PaymentSuggestion {
	var out []model.PaymentSuggestion
	for _, e := range gap.Events {
		switch e.Direction {
		case model.DirectionOutgo:
			if !delayable(e.Source) {
				continue
			}
			out = append(out, model.PaymentSuggestion{
				Event:               e,
				Kind:                model.SuggestDelay,
				OffsetDays:          g.delayDays,
				ProposedDate:        e.Date.AddDate(0, 0, g.delayDays),
				CashFlowImprovement: e.Amount,
				Risk:                delayRisk(e.Source, g.delayDays),
				Rationale: fmt.Sprintf("delaying this %s payment by %d days keeps %s in the bank through the shortfall window",
					e.Source, g.delayDays, e.Amount.StringFixed(2)),
			})
		case model.DirectionIncome:
			if e.Source != model.SourceMilestone {
				continue
			}
			out = append(out, model.PaymentSuggestion{
				Event:               e,
				Kind:                model.SuggestAdvance,
				OffsetDays:          -g.advanceDays,
				ProposedDate:        e.Date.AddDate(0, 0, -g.advanceDays),
				CashFlowImprovement: e.Amount,
				Risk:                model.RiskLow,
				Rationale: fmt.Sprintf("invoicing this milestone %d days early brings %s forward into the shortfall window",
					g.advanceDays, e.Amount.StringFixed(2)),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CashFlowImprovement.GreaterThan(out[j].CashFlowImprovement)
	})
	return out
}

func delayable(s model.SourceType) bool {
	return s == model.SourceClaim || s == model.SourceMaterialOrder
}

// delayRisk grades a delay by source type and length. Supplier claims
// tolerate longer delays than material orders, which risk holding up
// site work.
func delayRisk(s model.SourceType, days int) model.RiskLevel {
	switch s {
	case model.SourceClaim:
		switch {
		case days <= 14:
			return model.RiskLow
		case days <= 30:
			return model.RiskMedium
		default:
			return model.RiskHigh
		}
	case model.SourceMaterialOrder:
		switch {
		case days <= 7:
			return model.RiskLow
		case days <= 14:
			return model.RiskMedium
		default:
			return model.RiskHigh
		}
	default:
		return model.RiskHigh
	}
}
