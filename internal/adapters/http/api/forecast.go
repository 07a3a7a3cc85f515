package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	service "github.com/buildflow/cashcast/internal/app"
	"github.com/buildflow/cashcast/internal/domain/period"
	"github.com/buildflow/cashcast/internal/domain/types"
)

// ForecastHandler handles forecast queries.
type ForecastHandler struct {
	deps Dependencies
}

// NewForecastHandler creates a new forecast handler.
func NewForecastHandler(deps Dependencies) *ForecastHandler {
	return &ForecastHandler{deps: deps}
}

// forecastResponse is the wire shape for GET /forecast.
type forecastResponse struct {
	OrgID          string                    `json:"org_id"`
	Periods        []types.Period            `json:"periods"`
	PerProject     map[string][]types.Period `json:"per_project,omitempty"`
	TotalIncome    string                    `json:"total_income"`
	TotalOutgo     string                    `json:"total_outgo"`
	TotalNet       string                    `json:"total_net"`
	ClosingBalance string                    `json:"closing_balance"`
	EventCount     int                       `json:"event_count"`
}

// HandleGetForecast handles GET /forecast requests.
// Query: org, start, end, granularity (monthly|weekly), opening.
func (h *ForecastHandler) HandleGetForecast(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_forecast"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	org := r.URL.Query().Get("org")
	if org == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing org")))
		return
	}
	start, err := parseQueryDate(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	end, err := parseQueryDate(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	defaults := h.deps.Defaults()
	granularity := period.Granularity(r.URL.Query().Get("granularity"))
	if granularity == "" {
		granularity = defaults.Granularity
	}
	opening := defaults.OpeningBalance
	if r.URL.Query().Has("opening") {
		opening = parseQueryAmount(r, "opening")
	}

	res, err := h.deps.Forecast(r.Context(), service.ForecastQuery{
		OrgID:          org,
		Start:          start,
		End:            end,
		Granularity:    granularity,
		OpeningBalance: opening,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	resp := forecastResponse{
		OrgID:          org,
		Periods:        types.FromPeriods(res.Forecast.Periods),
		TotalIncome:    res.Forecast.TotalIncome.StringFixed(2),
		TotalOutgo:     res.Forecast.TotalOutgo.StringFixed(2),
		TotalNet:       res.Forecast.TotalNet.StringFixed(2),
		ClosingBalance: res.Forecast.ClosingBalance.StringFixed(2),
		EventCount:     res.EventCount,
	}
	if len(res.Forecast.PerProject) > 0 {
		resp.PerProject = make(map[string][]types.Period, len(res.Forecast.PerProject))
		for id, ps := range res.Forecast.PerProject {
			resp.PerProject[id] = types.FromPeriods(ps)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseQueryDate reads a required ISO-8601 day query parameter.
func parseQueryDate(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, errors.New("missing " + key)
	}
	t, err := time.Parse(types.DateLayout, v)
	if err != nil {
		return time.Time{}, errors.New("invalid " + key + "; must be YYYY-MM-DD")
	}
	return t, nil
}

// parseQueryAmount reads an optional decimal query parameter,
// defaulting to zero.
func parseQueryAmount(r *http.Request, key string) decimal.Decimal {
	d, err := decimal.NewFromString(r.URL.Query().Get(key))
	if err != nil {
		return decimal.Zero
	}
	return d
}
