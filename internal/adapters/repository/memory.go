package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// orgData holds one organization's records, keyed by record id so
// replayed batches upsert instead of duplicating.
type orgData struct {
	projects     map[string]model.Project
	incomes      map[string]model.IncomeRecord
	costs        map[string]model.CostRecord
	transactions map[string]model.ActualTransaction
}

func newOrgData() *orgData {
	return &orgData{
		projects:     make(map[string]model.Project),
		incomes:      make(map[string]model.IncomeRecord),
		costs:        make(map[string]model.CostRecord),
		transactions: make(map[string]model.ActualTransaction),
	}
}

// MemoryStore implements Store with per-organization maps behind a
// single RWMutex. Snapshots copy everything out under the read lock.
type MemoryStore struct {
	mu   sync.RWMutex
	orgs map[string]*orgData
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(_ context.Context) *MemoryStore {
	return &MemoryStore{orgs: make(map[string]*orgData)}
}

// Apply validates and upserts a batch atomically: either every record
// lands or none do.
func (s *MemoryStore) Apply(_ context.Context, batch model.RecordBatch) error {
	if batch.OrgID == "" {
		return fmt.Errorf("%w: org id", ErrMissingID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	od, ok := s.orgs[batch.OrgID]
	if !ok {
		od = newOrgData()
	}

	// Validate before touching anything.
	for _, p := range batch.Projects {
		if p.ID == "" {
			return fmt.Errorf("%w: project", ErrMissingID)
		}
	}
	for _, in := range batch.Incomes {
		if in.ID == "" {
			return fmt.Errorf("%w: income record", ErrMissingID)
		}
	}
	incoming := make(map[string]struct{}, len(batch.Incomes))
	for _, in := range batch.Incomes {
		incoming[in.ID] = struct{}{}
	}
	for _, c := range batch.Costs {
		if c.ID == "" {
			return fmt.Errorf("%w: cost record", ErrMissingID)
		}
		if c.IncomeID != "" {
			if _, inBatch := incoming[c.IncomeID]; !inBatch {
				if _, inStore := od.incomes[c.IncomeID]; !inStore {
					return fmt.Errorf("%w: cost %s references income %s", ErrUnknownIncome, c.ID, c.IncomeID)
				}
			}
		}
	}
	for _, t := range batch.Transactions {
		if t.ID == "" {
			return fmt.Errorf("%w: transaction", ErrMissingID)
		}
	}

	for _, p := range batch.Projects {
		od.projects[p.ID] = p
	}
	for _, in := range batch.Incomes {
		od.incomes[in.ID] = in
	}
	for _, c := range batch.Costs {
		od.costs[c.ID] = c
	}
	for _, t := range batch.Transactions {
		od.transactions[t.ID] = t
	}
	s.orgs[batch.OrgID] = od
	return nil
}

// Snapshot copies an organization's records out under the read lock.
func (s *MemoryStore) Snapshot(_ context.Context, orgID string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{OrgID: orgID}
	od, ok := s.orgs[orgID]
	if !ok {
		return snap
	}
	for _, p := range od.projects {
		snap.Projects = append(snap.Projects, p)
	}
	for _, in := range od.incomes {
		snap.Incomes = append(snap.Incomes, in)
	}
	for _, c := range od.costs {
		cc := c
		cc.Lines = append([]model.CostLine(nil), c.Lines...)
		snap.Costs = append(snap.Costs, cc)
	}
	for _, t := range od.transactions {
		snap.Transactions = append(snap.Transactions, t)
	}
	return snap
}

// Counts returns record totals across all organizations.
func (s *MemoryStore) Counts(_ context.Context) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	for _, od := range s.orgs {
		c.Projects += len(od.projects)
		c.Incomes += len(od.incomes)
		c.Costs += len(od.costs)
		c.Transactions += len(od.transactions)
	}
	return c
}

// Orgs returns the number of organizations tracked.
func (s *MemoryStore) Orgs(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orgs)
}
