// Package types contains the read shapes returned to reporting and
// export consumers. Amounts are decimal strings and dates are
// ISO-8601 days, so downstream renderers never touch floats.
package types

import (
	"time"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// DateLayout is the wire format for dates.
const DateLayout = "2006-01-02"

// Period is one forecast bucket.
type Period struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Income  string `json:"income"`
	Outgo   string `json:"outgo"`
	Net     string `json:"net"`
	Balance string `json:"balance"`
}

// Event is a projected cash event.
type Event struct {
	ProjectID   string `json:"project_id,omitempty"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Source      string `json:"source"`
	SourceID    string `json:"source_id"`
	Description string `json:"description,omitempty"`
}

// Match is one confidence-scored variance record.
type Match struct {
	Event              Event   `json:"event"`
	TransactionID      string  `json:"transaction_id"`
	AmountVariance     string  `json:"amount_variance"`
	TimingVarianceDays int     `json:"timing_variance_days"`
	Confidence         float64 `json:"confidence"`
	Bucket             string  `json:"bucket"`
	Status             string  `json:"status"`
}

// Gap is one below-threshold balance window.
type Gap struct {
	Start         string  `json:"start"`
	End           string  `json:"end"`
	LowestBalance string  `json:"lowest_balance"`
	GapAmount     string  `json:"gap_amount"`
	Events        []Event `json:"events"`
}

// Suggestion is one proposed payment-timing change.
type Suggestion struct {
	Event               Event  `json:"event"`
	Kind                string `json:"kind"`
	OffsetDays          int    `json:"offset_days"`
	ProposedDate        string `json:"proposed_date"`
	CashFlowImprovement string `json:"cash_flow_improvement"`
	Risk                string `json:"risk"`
	Rationale           string `json:"rationale"`
}

// FromEvent converts a domain event to its read shape.
func FromEvent(e model.ProjectedCashEvent) Event {
	return Event{
		ProjectID:   e.ProjectID,
		Direction:   string(e.Direction),
		Amount:      e.Amount.StringFixed(2),
		Date:        formatDate(e.Date),
		Source:      string(e.Source),
		SourceID:    e.SourceID,
		Description: e.Description,
	}
}

// FromPeriod converts a forecast period to its read shape.
func FromPeriod(p model.ForecastPeriod) Period {
	return Period{
		Start:   formatDate(p.Start),
		End:     formatDate(p.End),
		Income:  p.Income.StringFixed(2),
		Outgo:   p.Outgo.StringFixed(2),
		Net:     p.Net.StringFixed(2),
		Balance: p.Balance.StringFixed(2),
	}
}

// FromPeriods converts a period slice.
func FromPeriods(ps []model.ForecastPeriod) []Period {
	out := make([]Period, len(ps))
	for i, p := range ps {
		out[i] = FromPeriod(p)
	}
	return out
}

// FromMatch converts a variance match to its read shape.
func FromMatch(m model.VarianceMatch) Match {
	return Match{
		Event:              FromEvent(m.Event),
		TransactionID:      m.Transaction.ID,
		AmountVariance:     m.AmountVariance.StringFixed(2),
		TimingVarianceDays: m.TimingVarianceDays,
		Confidence:         m.Confidence,
		Bucket:             string(m.Bucket()),
		Status:             string(m.Status),
	}
}

// FromGap converts a cash gap to its read shape.
func FromGap(g model.CashGap) Gap {
	events := make([]Event, len(g.Events))
	for i, e := range g.Events {
		events[i] = FromEvent(e)
	}
	return Gap{
		Start:         formatDate(g.Start),
		End:           formatDate(g.End),
		LowestBalance: g.LowestBalance.StringFixed(2),
		GapAmount:     g.GapAmount.StringFixed(2),
		Events:        events,
	}
}

// FromSuggestion converts a payment suggestion to its read shape.
func FromSuggestion(s model.PaymentSuggestion) Suggestion {
	return Suggestion{
		Event:               FromEvent(s.Event),
		Kind:                string(s.Kind),
		OffsetDays:          s.OffsetDays,
		ProposedDate:        formatDate(s.ProposedDate),
		CashFlowImprovement: s.CashFlowImprovement.StringFixed(2),
		Risk:                string(s.Risk),
		Rationale:           s.Rationale,
	}
}

func formatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
