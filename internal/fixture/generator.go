package fixture

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/buildflow/cashcast/pkg/logger"
)

// Generation shape constants. Amounts are whole currency units.
const (
	milestonesPerProjectMin = 3
	milestonesPerProjectMax = 5
	milestoneAmountMin      = 50_000
	milestoneAmountMax      = 250_000
	claimShareMinPct        = 55
	claimShareMaxPct        = 75
	claimOffsetMinDays      = 7
	claimOffsetMaxDays      = 28
	orderLineCount          = 3
	orderLineAmountMin      = 5_000
	orderLineAmountMax      = 20_000
	overheadAmountMin       = 4_000
	overheadAmountMax       = 9_000
	amountJitterPct         = 3
	dateJitterDays          = 4
	matchedIncomeShare      = 0.6
	matchedOutgoShare       = 0.5
	noiseTransactions       = 2
)

// Generate builds a deterministic portfolio batch. The same seed and
// project count always produce the same records; milestone dates are
// laid out monthly starting from the first of the current month.
func Generate(ctx context.Context, cfg *Config, stats *Stats) Batch {
	rng := rand.New(rand.NewSource(cfg.Seed))
	base := monthStart(time.Now().UTC())

	batch := Batch{
		BatchID: stableID(cfg.Seed, "batch", cfg.OrgID),
		OrgID:   cfg.OrgID,
	}

	for p := 0; p < cfg.Projects; p++ {
		projectID := stableID(cfg.Seed, "project", p)
		batch.Projects = append(batch.Projects, Project{
			ID:   projectID,
			Name: fmt.Sprintf("Site %02d", p+1),
		})

		milestones := milestonesPerProjectMin + rng.Intn(milestonesPerProjectMax-milestonesPerProjectMin+1)
		var firstIncomeID string
		for m := 0; m < milestones; m++ {
			incomeID := stableID(cfg.Seed, "income", p, m)
			if m == 0 {
				firstIncomeID = incomeID
			}
			expected := base.AddDate(0, m+1, rng.Intn(dateJitterDays))
			amount := randomAmount(rng, milestoneAmountMin, milestoneAmountMax)

			batch.IncomeRecords = append(batch.IncomeRecords, Income{
				ID:           incomeID,
				ProjectID:    projectID,
				Amount:       amount.StringFixed(2),
				ExpectedDate: day(expected),
				Status:       "pending",
				Description:  fmt.Sprintf("Site %02d milestone %d", p+1, m+1),
			})

			// Each milestone carries a subcontractor claim paid before
			// the milestone is invoiced.
			share := int64(claimShareMinPct + rng.Intn(claimShareMaxPct-claimShareMinPct+1))
			claim := amount.Mul(decimal.NewFromInt(share)).Div(decimal.NewFromInt(100)).Round(2)
			batch.CostRecords = append(batch.CostRecords, Cost{
				ID:          stableID(cfg.Seed, "claim", p, m),
				ProjectID:   projectID,
				IncomeID:    incomeID,
				Source:      "claim",
				Mode:        "single",
				Amount:      claim.StringFixed(2),
				OffsetDays:  -(claimOffsetMinDays + rng.Intn(claimOffsetMaxDays-claimOffsetMinDays+1)),
				Status:      "pending",
				Description: fmt.Sprintf("Site %02d subcontractor claim %d", p+1, m+1),
			})
		}

		// One itemized material order per project, staged payments
		// anchored to the first milestone.
		order := Cost{
			ID:          stableID(cfg.Seed, "order", p),
			ProjectID:   projectID,
			IncomeID:    firstIncomeID,
			Source:      "material_order",
			Mode:        "itemized",
			Status:      "ordered",
			Description: fmt.Sprintf("Site %02d material order", p+1),
		}
		offsets := []int{10, 25, 45}
		for l := 0; l < orderLineCount; l++ {
			order.Lines = append(order.Lines, CostLine{
				Amount:      randomAmount(rng, orderLineAmountMin, orderLineAmountMax).StringFixed(2),
				OffsetDays:  offsets[l] + rng.Intn(dateJitterDays),
				Description: fmt.Sprintf("Site %02d materials payment %d", p+1, l+1),
			})
		}
		batch.CostRecords = append(batch.CostRecords, order)

		// Recurring overheads, anchored to the first milestone.
		for o := 0; o < 2; o++ {
			batch.CostRecords = append(batch.CostRecords, Cost{
				ID:          stableID(cfg.Seed, "overhead", p, o),
				ProjectID:   projectID,
				IncomeID:    firstIncomeID,
				Source:      "overhead",
				Mode:        "single",
				Amount:      randomAmount(rng, overheadAmountMin, overheadAmountMax).StringFixed(2),
				OffsetDays:  o * 30,
				Status:      "pending",
				Description: fmt.Sprintf("Site %02d overhead month %d", p+1, o+1),
			})
		}
	}

	batch.Transactions = generateTransactions(rng, cfg, &batch)

	stats.ProjectsGenerated = len(batch.Projects)
	stats.IncomesGenerated = len(batch.IncomeRecords)
	stats.CostsGenerated = len(batch.CostRecords)
	stats.TransactionsGenerated = len(batch.Transactions)

	logger.Get().Info(ctx, "generated portfolio batch",
		logger.String("batchID", batch.BatchID),
		logger.Int("projects", stats.ProjectsGenerated),
		logger.Int("incomes", stats.IncomesGenerated),
		logger.Int("costs", stats.CostsGenerated),
		logger.Int("transactions", stats.TransactionsGenerated),
	)
	return batch
}

// generateTransactions fabricates bank-feed actuals: most track a
// generated record with small amount and date drift, a few are noise
// that nothing in the portfolio explains.
func generateTransactions(rng *rand.Rand, cfg *Config, batch *Batch) []Transaction {
	var out []Transaction

	expectedByIncome := make(map[string]string, len(batch.IncomeRecords))
	for _, in := range batch.IncomeRecords {
		expectedByIncome[in.ID] = in.ExpectedDate
	}

	for i, in := range batch.IncomeRecords {
		if rng.Float64() > matchedIncomeShare {
			continue
		}
		out = append(out, Transaction{
			ID:          stableID(cfg.Seed, "txn-income", i),
			ProjectID:   in.ProjectID,
			Amount:      jitterAmount(rng, in.Amount).StringFixed(2),
			OccurredAt:  jitterDay(rng, in.ExpectedDate),
			Direction:   "income",
			Source:      "milestone",
			Basis:       "cash",
			Description: "Progress payment received",
		})
	}
	for i, c := range batch.CostRecords {
		if c.Source != "claim" || rng.Float64() > matchedOutgoShare {
			continue
		}
		// The projected claim event lands at anchor + offset; the
		// actual payment drifts around that date.
		due := shiftDay(expectedByIncome[c.IncomeID], c.OffsetDays)
		out = append(out, Transaction{
			ID:          stableID(cfg.Seed, "txn-claim", i),
			ProjectID:   c.ProjectID,
			Amount:      jitterAmount(rng, c.Amount).StringFixed(2),
			OccurredAt:  jitterDay(rng, due),
			Direction:   "outgo",
			Source:      "claim",
			Basis:       "cash",
			Description: "Subcontractor payment",
		})
	}
	for n := 0; n < noiseTransactions; n++ {
		out = append(out, Transaction{
			ID:          stableID(cfg.Seed, "txn-noise", n),
			Amount:      randomAmount(rng, 100, 2_000).StringFixed(2),
			OccurredAt:  day(monthStart(time.Now().UTC()).AddDate(0, 1, rng.Intn(28))),
			Direction:   "outgo",
			Source:      "overhead",
			Basis:       "cash",
			Description: "Bank fee",
		})
	}
	return out
}

// stableID derives a reproducible UUID from the seed and a record path.
func stableID(seed int64, parts ...interface{}) string {
	name := fmt.Sprintf("cashcast/%d", seed)
	for _, p := range parts {
		name += fmt.Sprintf("/%v", p)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// randomAmount picks a whole amount in [min, max], rounded to 100.
func randomAmount(rng *rand.Rand, min, max int) decimal.Decimal {
	n := min + rng.Intn(max-min+1)
	n -= n % 100
	return decimal.NewFromInt(int64(n))
}

// jitterAmount perturbs a decimal string by up to amountJitterPct
// either way, so matches score high without being exact.
func jitterAmount(rng *rand.Rand, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	pct := int64(rng.Intn(2*amountJitterPct+1) - amountJitterPct)
	return d.Add(d.Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100))).Round(2)
}

// jitterDay shifts an ISO day by up to dateJitterDays either way.
func jitterDay(rng *rand.Rand, s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	shift := rng.Intn(2*dateJitterDays+1) - dateJitterDays
	return day(t.AddDate(0, 0, shift))
}

// shiftDay moves an ISO day by a fixed number of days.
func shiftDay(s string, days int) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return day(t.AddDate(0, 0, days))
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
