// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceType identifies where a record or cash event originates.
type SourceType string

const (
	SourceMilestone     SourceType = "milestone"
	SourceClaim         SourceType = "claim"
	SourceMaterialOrder SourceType = "material_order"
	SourceOverhead      SourceType = "overhead"
)

// RecordStatus is the lifecycle status of a source record.
type RecordStatus string

const (
	StatusPending  RecordStatus = "pending"
	StatusInvoiced RecordStatus = "invoiced"
	StatusOrdered  RecordStatus = "ordered"
	StatusPaid     RecordStatus = "paid"
	StatusReceived RecordStatus = "received"
)

// CostMode selects how a cost record schedules its payments.
type CostMode string

const (
	// CostSingle pays the full amount in one event at the record offset.
	CostSingle CostMode = "single"
	// CostItemized pays each line at its own offset.
	CostItemized CostMode = "itemized"
)

// Project groups source records. The core only reads id and name.
type Project struct {
	ID   string
	Name string
}

// IncomeRecord is an income milestone owned by a project. Its expected
// date is the anchor for any costs linked to it.
type IncomeRecord struct {
	ID           string
	ProjectID    string
	Amount       decimal.Decimal
	ExpectedDate time.Time
	Status       RecordStatus
	Description  string
}

// CostLine is a single payment within an itemized cost record.
type CostLine struct {
	Amount      decimal.Decimal
	OffsetDays  int
	Description string
}

// CostRecord is an outgoing cost (supplier claim, material order or
// overhead) scheduled relative to its parent income record's date.
// OffsetDays may be negative, meaning the cost is paid before the anchor.
type CostRecord struct {
	ID          string
	ProjectID   string
	IncomeID    string // parent income record providing the anchor date
	Source      SourceType
	Mode        CostMode
	Amount      decimal.Decimal
	OffsetDays  int
	Lines       []CostLine // used when Mode == CostItemized
	Status      RecordStatus
	Description string
}

// Day normalizes a timestamp to UTC midnight. All projection and
// bucketing arithmetic works on whole days.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
