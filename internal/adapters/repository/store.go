// Package repository defines the source-record store interface and
// errors. The core pipeline never touches the store directly; it runs
// on immutable snapshots taken from it.
package repository

import (
	"context"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// Snapshot is an immutable copy of one organization's source data.
// Mutating a snapshot never affects the store, so concurrent forecast
// runs need no coordination.
type Snapshot struct {
	OrgID        string
	Projects     []model.Project
	Incomes      []model.IncomeRecord
	Costs        []model.CostRecord
	Transactions []model.ActualTransaction
}

// Counts summarizes a store's contents for stats reporting.
type Counts struct {
	Projects     int
	Incomes      int
	Costs        int
	Transactions int
}

// Store provides read/write access to source records keyed by
// organization.
type Store interface {
	// Apply upserts every record in the batch. Records with missing
	// ids are rejected with ErrMissingID; a cost referencing an income
	// record absent from both the batch and the store is rejected with
	// ErrUnknownIncome.
	Apply(ctx context.Context, batch model.RecordBatch) error

	// Snapshot returns a deep copy of an organization's data. Unknown
	// organizations yield an empty snapshot, not an error.
	Snapshot(ctx context.Context, orgID string) Snapshot

	// Counts returns record totals across all organizations.
	Counts(ctx context.Context) Counts

	// Orgs returns the number of organizations tracked.
	Orgs(ctx context.Context) int
}
