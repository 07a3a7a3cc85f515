package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/buildflow/cashcast/internal/adapters/http/api"
	service "github.com/buildflow/cashcast/internal/app"
	"github.com/buildflow/cashcast/internal/domain/forecast"
	"github.com/buildflow/cashcast/internal/domain/model"
	"github.com/buildflow/cashcast/internal/domain/period"
)

// fakeDeps is a scriptable stand-in for the app service.
type fakeDeps struct {
	seen      map[string]bool
	enqueueOK bool

	enqueued   []model.RecordBatch
	unrecorded []string

	defaults service.QueryDefaults

	forecastRes  service.ForecastResult
	reconcileRes service.ReconcileResult
	gapReports   []service.GapReport

	lastForecastQuery  service.ForecastQuery
	lastReconcileQuery service.ReconcileQuery
	lastGapQuery       service.GapQuery
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		seen:      map[string]bool{},
		enqueueOK: true,
		defaults:  service.QueryDefaults{Granularity: period.Monthly},
	}
}

func (f *fakeDeps) SeenAndRecord(_ context.Context, id string) bool {
	if f.seen[id] {
		return true
	}
	f.seen[id] = true
	return false
}

func (f *fakeDeps) Unrecord(_ context.Context, id string) {
	delete(f.seen, id)
	f.unrecorded = append(f.unrecorded, id)
}

func (f *fakeDeps) Enqueue(_ context.Context, b model.RecordBatch) bool {
	if !f.enqueueOK {
		return false
	}
	f.enqueued = append(f.enqueued, b)
	return true
}

func (f *fakeDeps) Forecast(_ context.Context, q service.ForecastQuery) (service.ForecastResult, error) {
	f.lastForecastQuery = q
	return f.forecastRes, nil
}

func (f *fakeDeps) Reconcile(_ context.Context, q service.ReconcileQuery) (service.ReconcileResult, error) {
	f.lastReconcileQuery = q
	return f.reconcileRes, nil
}

func (f *fakeDeps) Gaps(_ context.Context, q service.GapQuery) ([]service.GapReport, error) {
	f.lastGapQuery = q
	return f.gapReports, nil
}

func (f *fakeDeps) Defaults() service.QueryDefaults {
	return f.defaults
}

type fakeStats struct{}

func (fakeStats) Stats(context.Context) map[string]interface{} {
	return map[string]interface{}{"started": true, "organizations": 2}
}

func newTestServer(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, fakeStats{}).Register(context.Background(), mux)
	return mux
}

func doJSON(mux *http.ServeMux, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	decoded := map[string]interface{}{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

const minimalBatch = `{
	"batch_id": "batch-1",
	"org_id": "org-1",
	"income_records": [
		{"id": "inc-1", "project_id": "proj-1", "amount": "150000.00", "expected_date": "2024-02-01", "status": "pending"}
	],
	"transactions": [
		{"id": "txn-1", "project_id": "proj-1", "amount": "150000.00", "occurred_at": "2024-02-02", "direction": "income", "source": "milestone", "basis": "cash"}
	]
}`

func TestBatchEndpoint(t *testing.T) {
	Convey("Given the batch endpoint", t, func() {
		deps := newFakeDeps()
		mux := newTestServer(deps)

		Convey("When a fresh batch is posted", func() {
			rec, body := doJSON(mux, http.MethodPost, "/batches", minimalBatch)

			Convey("Then it should be accepted and enqueued", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(body["status"], ShouldEqual, "accepted")
				So(body["duplicate"], ShouldBeFalse)
				So(len(deps.enqueued), ShouldEqual, 1)
			})

			Convey("And the payload should decode into domain records", func() {
				b := deps.enqueued[0]
				So(b.OrgID, ShouldEqual, "org-1")
				So(len(b.Incomes), ShouldEqual, 1)
				So(b.Incomes[0].Amount.Equal(decimal.NewFromInt(150000)), ShouldBeTrue)
				So(b.Incomes[0].ExpectedDate.Month(), ShouldEqual, time.February)
				So(len(b.Transactions), ShouldEqual, 1)
				So(b.Transactions[0].Direction, ShouldEqual, model.DirectionIncome)
			})
		})

		Convey("When the same batch is posted twice", func() {
			doJSON(mux, http.MethodPost, "/batches", minimalBatch)
			rec, body := doJSON(mux, http.MethodPost, "/batches", minimalBatch)

			Convey("Then the replay should be acknowledged without re-enqueueing", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body["duplicate"], ShouldBeTrue)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			deps.enqueueOK = false
			rec, body := doJSON(mux, http.MethodPost, "/batches", minimalBatch)

			Convey("Then backpressure should be signalled", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(body["code"], ShouldEqual, "backpressure")
			})

			Convey("And the batch id should be released for retry", func() {
				So(deps.unrecorded, ShouldContain, "batch-1")
				So(deps.seen["batch-1"], ShouldBeFalse)
			})
		})

		Convey("When the body is not JSON", func() {
			rec, body := doJSON(mux, http.MethodPost, "/batches", "{nope")

			Convey("Then a bad request should be returned", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When identifiers are missing", func() {
			rec, _ := doJSON(mux, http.MethodPost, "/batches", `{"org_id": "org-1"}`)

			Convey("Then the batch should be rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the method is GET", func() {
			rec, _ := doJSON(mux, http.MethodGet, "/batches", "")

			Convey("Then the route should not be found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestForecastEndpoint(t *testing.T) {
	Convey("Given the forecast endpoint", t, func() {
		deps := newFakeDeps()
		deps.forecastRes = service.ForecastResult{
			Forecast: forecast.Forecast{
				Periods: []model.ForecastPeriod{{
					Start:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
					End:     time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
					Income:  decimal.NewFromInt(150000),
					Net:     decimal.NewFromInt(150000),
					Balance: decimal.NewFromInt(250000),
				}},
				TotalIncome:    decimal.NewFromInt(150000),
				TotalNet:       decimal.NewFromInt(150000),
				ClosingBalance: decimal.NewFromInt(250000),
			},
			EventCount: 1,
		}
		mux := newTestServer(deps)

		Convey("When queried with all parameters", func() {
			rec, body := doJSON(mux, http.MethodGet,
				"/forecast?org=org-1&start=2024-01-01&end=2024-03-31&granularity=weekly&opening=100000", "")

			Convey("Then the forecast should be rendered with fixed-point amounts", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body["org_id"], ShouldEqual, "org-1")
				So(body["closing_balance"], ShouldEqual, "250000.00")
				So(body["event_count"], ShouldEqual, 1)
				periods := body["periods"].([]interface{})
				So(len(periods), ShouldEqual, 1)
			})

			Convey("And the query should be passed through", func() {
				q := deps.lastForecastQuery
				So(q.OrgID, ShouldEqual, "org-1")
				So(string(q.Granularity), ShouldEqual, "weekly")
				So(q.OpeningBalance.Equal(decimal.NewFromInt(100000)), ShouldBeTrue)
			})
		})

		Convey("When the granularity is omitted", func() {
			rec, _ := doJSON(mux, http.MethodGet, "/forecast?org=org-1&start=2024-01-01&end=2024-03-31", "")

			Convey("Then monthly should be the default", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(string(deps.lastForecastQuery.Granularity), ShouldEqual, "monthly")
			})
		})

		Convey("When granularity and opening are omitted under configured defaults", func() {
			deps.defaults = service.QueryDefaults{
				Granularity:    period.Weekly,
				OpeningBalance: decimal.NewFromInt(100000),
			}
			rec, _ := doJSON(mux, http.MethodGet, "/forecast?org=org-1&start=2024-01-01&end=2024-03-31", "")

			Convey("Then the configured defaults should be applied", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(string(deps.lastForecastQuery.Granularity), ShouldEqual, "weekly")
				So(deps.lastForecastQuery.OpeningBalance.Equal(decimal.NewFromInt(100000)), ShouldBeTrue)
			})
		})

		Convey("When opening is given explicitly as zero", func() {
			deps.defaults.OpeningBalance = decimal.NewFromInt(100000)
			rec, _ := doJSON(mux, http.MethodGet, "/forecast?org=org-1&start=2024-01-01&end=2024-03-31&opening=0", "")

			Convey("Then the explicit value should win over the default", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastForecastQuery.OpeningBalance.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When the org is missing", func() {
			rec, _ := doJSON(mux, http.MethodGet, "/forecast?start=2024-01-01&end=2024-03-31", "")

			Convey("Then the request should be rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a date is malformed", func() {
			rec, body := doJSON(mux, http.MethodGet, "/forecast?org=org-1&start=Jan-1&end=2024-03-31", "")

			Convey("Then the error should name the expected layout", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(body["message"], ShouldContainSubstring, "YYYY-MM-DD")
			})
		})
	})
}

func TestReconciliationEndpoint(t *testing.T) {
	Convey("Given the reconciliation endpoint", t, func() {
		deps := newFakeDeps()
		deps.reconcileRes = service.ReconcileResult{
			Matches: []model.VarianceMatch{{
				Event: model.ProjectedCashEvent{
					SourceID: "inc-1", ProjectID: "proj-1",
					Amount: decimal.NewFromInt(150000),
					Date:   time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
					Source: model.SourceMilestone, Direction: model.DirectionIncome,
				},
				Transaction: model.ActualTransaction{
					ID: "txn-1", Amount: decimal.NewFromInt(150000),
					OccurredAt: time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC),
				},
				AmountVariance:     decimal.Zero,
				TimingVarianceDays: 1,
				Confidence:         0.99,
				Status:             model.MatchMatched,
			}},
		}
		mux := newTestServer(deps)

		Convey("When queried with a threshold", func() {
			rec, body := doJSON(mux, http.MethodGet, "/reconciliation?org=org-1&threshold=0.6&scheme=bank_feed", "")

			Convey("Then matches should be rendered with confidence buckets", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				matches := body["matches"].([]interface{})
				So(len(matches), ShouldEqual, 1)
				first := matches[0].(map[string]interface{})
				So(first["bucket"], ShouldEqual, "high")
			})

			Convey("And the query should be passed through", func() {
				So(deps.lastReconcileQuery.Threshold, ShouldEqual, 0.6)
				So(string(deps.lastReconcileQuery.Scheme), ShouldEqual, "bank_feed")
			})
		})

		Convey("When the threshold is out of range", func() {
			rec, _ := doJSON(mux, http.MethodGet, "/reconciliation?org=org-1&threshold=1.5", "")

			Convey("Then the request should be rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the org is missing", func() {
			rec, _ := doJSON(mux, http.MethodGet, "/reconciliation", "")

			Convey("Then the request should be rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestGapsEndpoint(t *testing.T) {
	Convey("Given the gaps endpoint", t, func() {
		deps := newFakeDeps()
		deps.gapReports = []service.GapReport{{
			Gap: model.CashGap{
				Start:         time.Date(2024, time.January, 18, 0, 0, 0, 0, time.UTC),
				End:           time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
				LowestBalance: decimal.NewFromInt(-20000),
				GapAmount:     decimal.NewFromInt(70000),
			},
			Suggestions: []model.PaymentSuggestion{{
				Kind:                model.SuggestDelay,
				OffsetDays:          30,
				CashFlowImprovement: decimal.NewFromInt(120000),
				Risk:                model.RiskMedium,
			}},
		}}
		mux := newTestServer(deps)

		Convey("When queried with balances", func() {
			rec, body := doJSON(mux, http.MethodGet, "/gaps?org=org-1&opening=100000&minimum=50000", "")

			Convey("Then gap reports should be rendered with their suggestions", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				reports := body["reports"].([]interface{})
				So(len(reports), ShouldEqual, 1)
				first := reports[0].(map[string]interface{})
				gap := first["gap"].(map[string]interface{})
				So(gap["gap_amount"], ShouldEqual, "70000.00")
				suggestions := first["suggestions"].([]interface{})
				So(len(suggestions), ShouldEqual, 1)
			})

			Convey("And the balances should be passed through", func() {
				So(deps.lastGapQuery.OpeningBalance.Equal(decimal.NewFromInt(100000)), ShouldBeTrue)
				So(deps.lastGapQuery.MinimumBalance.Equal(decimal.NewFromInt(50000)), ShouldBeTrue)
			})
		})

		Convey("When balances are omitted under configured defaults", func() {
			deps.defaults = service.QueryDefaults{
				Granularity:    period.Monthly,
				OpeningBalance: decimal.NewFromInt(100000),
				MinimumBalance: decimal.NewFromInt(50000),
			}
			rec, _ := doJSON(mux, http.MethodGet, "/gaps?org=org-1", "")

			Convey("Then the configured balances should be applied", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.lastGapQuery.OpeningBalance.Equal(decimal.NewFromInt(100000)), ShouldBeTrue)
				So(deps.lastGapQuery.MinimumBalance.Equal(decimal.NewFromInt(50000)), ShouldBeTrue)
			})
		})

		Convey("When the org is missing", func() {
			rec, _ := doJSON(mux, http.MethodGet, "/gaps", "")

			Convey("Then the request should be rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		mux := newTestServer(newFakeDeps())

		Convey("When the health endpoint is queried", func() {
			rec, body := doJSON(mux, http.MethodGet, "/healthz", "")

			Convey("Then it should report ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, "ok")
			})
		})

		Convey("When the stats endpoint is queried", func() {
			rec, body := doJSON(mux, http.MethodGet, "/stats", "")

			Convey("Then provider stats should be rendered", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body["started"], ShouldBeTrue)
				So(body["organizations"], ShouldEqual, 2)
			})
		})

		Convey("When stats is posted to", func() {
			rec, _ := doJSON(mux, http.MethodPost, "/stats", "")

			Convey("Then the route should not be found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the metrics endpoint is queried", func() {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then an exposition payload should be served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
