package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectedCashEvent is a dated, signed cash movement derived from a
// source record. Events are ephemeral: every projection run rebuilds
// them from current source data.
type ProjectedCashEvent struct {
	ProjectID   string // empty for overheads
	Direction   Direction
	Amount      decimal.Decimal // non-negative; Direction carries the sign
	Date        time.Time
	Source      SourceType
	SourceID    string
	Description string
}

// Signed returns the amount with the direction applied.
func (e ProjectedCashEvent) Signed() decimal.Decimal {
	if e.Direction == DirectionOutgo {
		return e.Amount.Neg()
	}
	return e.Amount
}

// ForecastPeriod is one half-open bucket [Start, End) with its
// aggregated movements and the running balance after Net is applied.
type ForecastPeriod struct {
	Start   time.Time
	End     time.Time
	Income  decimal.Decimal
	Outgo   decimal.Decimal
	Net     decimal.Decimal
	Balance decimal.Decimal
}

// Contains reports whether d falls inside the period. An event exactly
// on Start belongs to this period; one on End does not.
func (p ForecastPeriod) Contains(d time.Time) bool {
	return !d.Before(p.Start) && d.Before(p.End)
}

// MatchStatus tracks the review state of a variance match.
type MatchStatus string

const (
	MatchMatched  MatchStatus = "matched"
	MatchDisputed MatchStatus = "disputed"
	MatchResolved MatchStatus = "resolved"
)

// ConfidenceBucket classifies a confidence score for reporting.
type ConfidenceBucket string

const (
	ConfidenceHigh   ConfidenceBucket = "high"
	ConfidenceMedium ConfidenceBucket = "medium"
	ConfidenceLow    ConfidenceBucket = "low"
)

// BucketForScore maps a confidence score to its reporting bucket.
func BucketForScore(score float64) ConfidenceBucket {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// VarianceMatch links one projected event to at most one actual
// transaction. AmountVariance = actual − forecast; TimingVarianceDays =
// actual date − forecast date.
type VarianceMatch struct {
	Event              ProjectedCashEvent
	Transaction        ActualTransaction
	AmountVariance     decimal.Decimal
	TimingVarianceDays int
	Confidence         float64
	Status             MatchStatus
}

// Bucket returns the reporting bucket for the match confidence.
func (m VarianceMatch) Bucket() ConfidenceBucket {
	return BucketForScore(m.Confidence)
}

// CashGap is a maximal window where the running balance stayed below
// the minimum-balance threshold. GapAmount = threshold − LowestBalance.
type CashGap struct {
	Start         time.Time
	End           time.Time
	LowestBalance decimal.Decimal
	GapAmount     decimal.Decimal
	Events        []ProjectedCashEvent
}

// RiskLevel grades how risky a payment-timing change is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SuggestionKind is the direction of a proposed timing change.
type SuggestionKind string

const (
	// SuggestDelay pushes an outflow later.
	SuggestDelay SuggestionKind = "delay"
	// SuggestAdvance pulls an inflow earlier.
	SuggestAdvance SuggestionKind = "advance"
)

// PaymentSuggestion proposes moving one event inside a cash gap.
// Generating a suggestion never mutates source data; applying it is a
// separate, external operation.
type PaymentSuggestion struct {
	Event               ProjectedCashEvent
	Kind                SuggestionKind
	OffsetDays          int
	ProposedDate        time.Time
	CashFlowImprovement decimal.Decimal
	Risk                RiskLevel
	Rationale           string
}
