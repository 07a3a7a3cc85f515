package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the sign of a cash movement.
type Direction string

const (
	DirectionIncome Direction = "income"
	DirectionOutgo  Direction = "outgo"
)

// Basis is the accounting convention a transaction was recognized under.
type Basis string

const (
	// BasisCash recognizes a transaction when money moves.
	BasisCash Basis = "cash"
	// BasisAccrual recognizes a transaction when invoiced or billed.
	BasisAccrual Basis = "accrual"
)

// ActualTransaction is a real accounting transaction fetched from the
// upstream provider. It is immutable input to the variance matcher.
// ProjectID is empty when the provider could not attribute the
// transaction to a project.
type ActualTransaction struct {
	ID          string
	ProjectID   string
	Amount      decimal.Decimal
	OccurredAt  time.Time
	Direction   Direction
	Source      SourceType
	Basis       Basis
	Description string
}

// RecordBatch is one ingestion unit flowing through the sync queue:
// a snapshot slice of source data for a single organization.
type RecordBatch struct {
	BatchID      string
	OrgID        string
	Projects     []Project
	Incomes      []IncomeRecord
	Costs        []CostRecord
	Transactions []ActualTransaction
}
