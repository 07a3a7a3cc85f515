package fixture_test

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/buildflow/cashcast/internal/fixture"
	"github.com/buildflow/cashcast/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func generate(seed int64, projects int) (fixture.Batch, fixture.Stats) {
	cfg := &fixture.Config{OrgID: "demo", Projects: projects, Seed: seed}
	stats := fixture.Stats{}
	batch := fixture.Generate(context.Background(), cfg, &stats)
	return batch, stats
}

func TestGenerateDeterminism(t *testing.T) {
	Convey("Given a fixed seed", t, func() {
		first, _ := generate(42, 3)
		second, _ := generate(42, 3)

		Convey("When generating twice", func() {
			Convey("Then both batches should serialize identically", func() {
				a, err := json.Marshal(first)
				So(err, ShouldBeNil)
				b, err := json.Marshal(second)
				So(err, ShouldBeNil)
				So(string(a), ShouldEqual, string(b))
			})
		})

		Convey("When generating with another seed", func() {
			other, _ := generate(43, 3)

			Convey("Then the batch id should differ", func() {
				So(other.BatchID, ShouldNotEqual, first.BatchID)
			})
		})
	})
}

func TestGenerateShape(t *testing.T) {
	Convey("Given a generated portfolio", t, func() {
		batch, stats := generate(1, 4)

		Convey("Then projects and counters should line up", func() {
			So(len(batch.Projects), ShouldEqual, 4)
			So(stats.ProjectsGenerated, ShouldEqual, 4)
			So(stats.IncomesGenerated, ShouldEqual, len(batch.IncomeRecords))
			So(stats.CostsGenerated, ShouldEqual, len(batch.CostRecords))
			So(stats.TransactionsGenerated, ShouldEqual, len(batch.Transactions))
		})

		Convey("Then each project should carry between three and five milestones", func() {
			perProject := map[string]int{}
			for _, in := range batch.IncomeRecords {
				perProject[in.ProjectID]++
			}
			So(len(perProject), ShouldEqual, 4)
			for _, n := range perProject {
				So(n, ShouldBeBetweenOrEqual, 3, 5)
			}
		})

		Convey("Then every claim should anchor to one of its project's milestones", func() {
			incomeProject := map[string]string{}
			for _, in := range batch.IncomeRecords {
				incomeProject[in.ID] = in.ProjectID
			}
			for _, c := range batch.CostRecords {
				So(incomeProject[c.IncomeID], ShouldEqual, c.ProjectID)
				if c.Source == "claim" {
					So(c.OffsetDays, ShouldBeLessThan, 0)
				}
			}
		})

		Convey("Then each project should carry one itemized material order", func() {
			orders := map[string]int{}
			for _, c := range batch.CostRecords {
				if c.Source != "material_order" {
					continue
				}
				orders[c.ProjectID]++
				So(c.Mode, ShouldEqual, "itemized")
				So(len(c.Lines), ShouldEqual, 3)
				So(c.Amount, ShouldBeBlank)
			}
			So(len(orders), ShouldEqual, 4)
			for _, n := range orders {
				So(n, ShouldEqual, 1)
			}
		})

		Convey("Then all amounts should parse as decimals", func() {
			for _, in := range batch.IncomeRecords {
				a, err := decimal.NewFromString(in.Amount)
				So(err, ShouldBeNil)
				So(a.IsPositive(), ShouldBeTrue)
			}
			for _, txn := range batch.Transactions {
				_, err := decimal.NewFromString(txn.Amount)
				So(err, ShouldBeNil)
			}
		})

		Convey("Then all dates should parse as ISO days", func() {
			for _, in := range batch.IncomeRecords {
				_, err := time.Parse("2006-01-02", in.ExpectedDate)
				So(err, ShouldBeNil)
			}
			for _, txn := range batch.Transactions {
				_, err := time.Parse("2006-01-02", txn.OccurredAt)
				So(err, ShouldBeNil)
			}
		})

		Convey("Then claim actuals should drift around the projected claim date", func() {
			expected := map[string]string{}
			for _, in := range batch.IncomeRecords {
				expected[in.ID] = in.ExpectedDate
			}
			dueByProject := map[string][]time.Time{}
			for _, c := range batch.CostRecords {
				if c.Source != "claim" {
					continue
				}
				anchor, err := time.Parse("2006-01-02", expected[c.IncomeID])
				So(err, ShouldBeNil)
				dueByProject[c.ProjectID] = append(dueByProject[c.ProjectID], anchor.AddDate(0, 0, c.OffsetDays))
			}
			for _, txn := range batch.Transactions {
				if txn.Source != "claim" {
					continue
				}
				occurred, err := time.Parse("2006-01-02", txn.OccurredAt)
				So(err, ShouldBeNil)
				closest := 365 * 24 * time.Hour
				for _, due := range dueByProject[txn.ProjectID] {
					if d := occurred.Sub(due).Abs(); d < closest {
						closest = d
					}
				}
				So(closest, ShouldBeLessThanOrEqualTo, 4*24*time.Hour)
			}
		})

		Convey("Then noise transactions should carry no project attribution", func() {
			noise := 0
			for _, txn := range batch.Transactions {
				if txn.ProjectID == "" {
					noise++
				}
			}
			So(noise, ShouldEqual, 2)
		})
	})
}
