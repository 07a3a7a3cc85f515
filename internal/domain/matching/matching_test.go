package matching_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/buildflow/cashcast/internal/domain/matching"
	"github.com/buildflow/cashcast/internal/domain/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func amt(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func claimEvent(id, project, amount string, date time.Time) model.ProjectedCashEvent {
	return model.ProjectedCashEvent{
		SourceID: id, ProjectID: project, Direction: model.DirectionOutgo,
		Amount: amt(amount), Date: date, Source: model.SourceClaim,
	}
}

func milestoneEvent(id, project, amount string, date time.Time) model.ProjectedCashEvent {
	return model.ProjectedCashEvent{
		SourceID: id, ProjectID: project, Direction: model.DirectionIncome,
		Amount: amt(amount), Date: date, Source: model.SourceMilestone,
	}
}

func txn(id, project, amount string, date time.Time, dir model.Direction, src model.SourceType) model.ActualTransaction {
	return model.ActualTransaction{
		ID: id, ProjectID: project, Amount: amt(amount), OccurredAt: date,
		Direction: dir, Source: src, Basis: model.BasisCash,
	}
}

func TestMatcherScoring(t *testing.T) {
	Convey("Given a matcher with default configuration", t, func() {
		m := matching.New()

		Convey("When an actual mirrors the forecast exactly", func() {
			events := []model.ProjectedCashEvent{
				milestoneEvent("e1", "proj-1", "150000", day(2024, time.February, 1)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "150000", day(2024, time.February, 1), model.DirectionIncome, model.SourceMilestone),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then one perfect-confidence match should be emitted", func() {
				So(len(res.Matches), ShouldEqual, 1)
				So(res.Matches[0].Confidence, ShouldAlmostEqual, 1.0, 0.0001)
				So(res.Matches[0].Bucket(), ShouldEqual, model.ConfidenceHigh)
				So(res.Matches[0].Status, ShouldEqual, model.MatchMatched)
				So(res.UnmatchedEvents, ShouldBeEmpty)
				So(res.UnmatchedActuals, ShouldBeEmpty)
			})
		})

		Convey("When the actual drifts slightly in amount and date", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "120000", day(2024, time.January, 18)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "118500", day(2024, time.January, 20), model.DirectionOutgo, model.SourceClaim),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then the match should land in the high-confidence bucket", func() {
				So(len(res.Matches), ShouldEqual, 1)
				So(res.Matches[0].Confidence, ShouldBeGreaterThan, 0.9)
				So(res.Matches[0].Bucket(), ShouldEqual, model.ConfidenceHigh)
			})

			Convey("And the variances should be actual minus forecast", func() {
				So(res.Matches[0].AmountVariance.Equal(amt("-1500")), ShouldBeTrue)
				So(res.Matches[0].TimingVarianceDays, ShouldEqual, 2)
			})
		})

		Convey("When the only candidate is nothing like the event", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "120000", day(2024, time.January, 18)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-9", "75", day(2024, time.June, 1), model.DirectionOutgo, model.SourceOverhead),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then both sides should stay unmatched", func() {
				So(res.Matches, ShouldBeEmpty)
				So(len(res.UnmatchedEvents), ShouldEqual, 1)
				So(len(res.UnmatchedActuals), ShouldEqual, 1)
			})
		})

		Convey("When directions are incompatible", func() {
			events := []model.ProjectedCashEvent{
				milestoneEvent("e1", "proj-1", "1000", day(2024, time.March, 1)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "1000", day(2024, time.March, 1), model.DirectionOutgo, model.SourceMilestone),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then no match should be considered", func() {
				So(res.Matches, ShouldBeEmpty)
			})
		})

		Convey("When both amounts are zero", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "0", day(2024, time.March, 1)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "0", day(2024, time.March, 1), model.DirectionOutgo, model.SourceClaim),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then amount similarity should be perfect, not a division error", func() {
				So(len(res.Matches), ShouldEqual, 1)
				So(res.Matches[0].Confidence, ShouldAlmostEqual, 1.0, 0.0001)
			})
		})
	})
}

func TestMatcherAssignment(t *testing.T) {
	Convey("Given several events competing for candidates", t, func() {
		m := matching.New()

		Convey("When two events fit the same single actual", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e2", "proj-1", "1000", day(2024, time.March, 10)),
				claimEvent("e1", "proj-1", "1000", day(2024, time.March, 1)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "1000", day(2024, time.March, 1), model.DirectionOutgo, model.SourceClaim),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then the earlier event should win and the other stay unmatched", func() {
				So(len(res.Matches), ShouldEqual, 1)
				So(res.Matches[0].Event.SourceID, ShouldEqual, "e1")
				So(len(res.UnmatchedEvents), ShouldEqual, 1)
				So(res.UnmatchedEvents[0].SourceID, ShouldEqual, "e2")
			})

			Convey("And each transaction should be consumed at most once", func() {
				So(len(res.Matches)+len(res.UnmatchedActuals), ShouldEqual, len(actuals))
			})
		})

		Convey("When inputs are shuffled", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "500", day(2024, time.March, 1)),
				claimEvent("e2", "proj-2", "800", day(2024, time.March, 5)),
			}
			actuals := []model.ActualTransaction{
				txn("t2", "proj-2", "790", day(2024, time.March, 6), model.DirectionOutgo, model.SourceClaim),
				txn("t1", "proj-1", "505", day(2024, time.March, 2), model.DirectionOutgo, model.SourceClaim),
			}
			first := m.Match(context.Background(), events, actuals)
			swapped := m.Match(context.Background(),
				[]model.ProjectedCashEvent{events[1], events[0]}, actuals)

			Convey("Then results should be identical regardless of event order", func() {
				So(len(first.Matches), ShouldEqual, 2)
				So(swapped.Matches, ShouldResemble, first.Matches)
			})
		})

		Convey("When matching runs twice over the same inputs", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "500", day(2024, time.March, 1)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "500", day(2024, time.March, 1), model.DirectionOutgo, model.SourceClaim),
			}
			first := m.Match(context.Background(), events, actuals)
			second := m.Match(context.Background(), events, actuals)

			Convey("Then both runs should produce identical results", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When every input is accounted for", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "500", day(2024, time.March, 1)),
				milestoneEvent("e2", "proj-1", "9000", day(2024, time.April, 1)),
				claimEvent("e3", "proj-3", "77", day(2024, time.May, 20)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "505", day(2024, time.March, 3), model.DirectionOutgo, model.SourceClaim),
				txn("t2", "", "10", day(2024, time.December, 1), model.DirectionIncome, model.SourceOverhead),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then events and actuals should each appear exactly once", func() {
				So(len(res.Matches)+len(res.UnmatchedEvents), ShouldEqual, len(events))
				So(len(res.Matches)+len(res.UnmatchedActuals), ShouldEqual, len(actuals))
			})
		})
	})
}

func TestMatcherSchemes(t *testing.T) {
	Convey("Given the bank-feed weight scheme", t, func() {
		m := matching.New(matching.WithScheme(matching.SchemeBankFeed))

		Convey("When actuals carry no project attribution", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "1000", day(2024, time.March, 1)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "", "1000", day(2024, time.March, 2), model.DirectionOutgo, model.SourceClaim),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then the amount-heavy weights should still produce a match", func() {
				So(len(res.Matches), ShouldEqual, 1)
				// amount 0.4 + date ~0.29 + type 0.1, no project credit
				So(res.Matches[0].Confidence, ShouldBeGreaterThan, 0.75)
				So(res.Matches[0].Confidence, ShouldBeLessThan, 0.8)
			})
		})
	})

	Convey("Given invalid options", t, func() {
		m := matching.New(
			matching.WithThreshold(0),
			matching.WithThreshold(1.5),
			matching.WithScheme("fuzzy"),
		)

		Convey("Then the defaults should be kept", func() {
			So(m.Threshold(), ShouldEqual, matching.DefaultThreshold)
		})
	})

	Convey("Given a raised threshold", t, func() {
		m := matching.New(matching.WithThreshold(0.95))

		Convey("When a decent but imperfect candidate is scored", func() {
			events := []model.ProjectedCashEvent{
				claimEvent("e1", "proj-1", "1000", day(2024, time.March, 1)),
			}
			actuals := []model.ActualTransaction{
				txn("t1", "proj-1", "900", day(2024, time.March, 10), model.DirectionOutgo, model.SourceClaim),
			}
			res := m.Match(context.Background(), events, actuals)

			Convey("Then it should be rejected", func() {
				So(res.Matches, ShouldBeEmpty)
				So(len(res.UnmatchedEvents), ShouldEqual, 1)
			})
		})
	})
}

func TestConfidenceBuckets(t *testing.T) {
	Convey("Given the confidence bucket boundaries", t, func() {
		So(model.BucketForScore(0.95), ShouldEqual, model.ConfidenceHigh)
		So(model.BucketForScore(0.8), ShouldEqual, model.ConfidenceHigh)
		So(model.BucketForScore(0.79), ShouldEqual, model.ConfidenceMedium)
		So(model.BucketForScore(0.6), ShouldEqual, model.ConfidenceMedium)
		So(model.BucketForScore(0.59), ShouldEqual, model.ConfidenceLow)
		So(model.BucketForScore(0), ShouldEqual, model.ConfidenceLow)
	})
}
