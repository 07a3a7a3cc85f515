package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/buildflow/cashcast/internal/domain/model"
	"github.com/buildflow/cashcast/internal/domain/types"
)

// BatchHandler handles record batch ingestion.
type BatchHandler struct {
	deps Dependencies
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps Dependencies) *BatchHandler {
	return &BatchHandler{deps: deps}
}

// batchRequest is the wire shape for POST /batches. Amounts are
// decimal strings and dates are ISO-8601 days; malformed values
// degrade to zero rather than rejecting the batch, matching how the
// projector excludes records that cannot contribute an event.
type batchRequest struct {
	BatchID       string               `json:"batch_id"`
	OrgID         string               `json:"org_id"`
	Projects      []projectPayload     `json:"projects"`
	IncomeRecords []incomePayload      `json:"income_records"`
	CostRecords   []costPayload        `json:"cost_records"`
	Transactions  []transactionPayload `json:"transactions"`
}

type projectPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type incomePayload struct {
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	Amount       string `json:"amount"`
	ExpectedDate string `json:"expected_date"`
	Status       string `json:"status"`
	Description  string `json:"description"`
}

type costLinePayload struct {
	Amount      string `json:"amount"`
	OffsetDays  int    `json:"offset_days"`
	Description string `json:"description"`
}

type costPayload struct {
	ID          string            `json:"id"`
	ProjectID   string            `json:"project_id"`
	IncomeID    string            `json:"income_id"`
	Source      string            `json:"source"`
	Mode        string            `json:"mode"`
	Amount      string            `json:"amount"`
	OffsetDays  int               `json:"offset_days"`
	Lines       []costLinePayload `json:"lines"`
	Status      string            `json:"status"`
	Description string            `json:"description"`
}

type transactionPayload struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Amount      string `json:"amount"`
	OccurredAt  string `json:"occurred_at"`
	Direction   string `json:"direction"`
	Source      string `json:"source"`
	Basis       string `json:"basis"`
	Description string `json:"description"`
}

func (b batchRequest) validate() error {
	switch {
	case strings.TrimSpace(b.BatchID) == "":
		return errors.New("missing batch_id")
	case strings.TrimSpace(b.OrgID) == "":
		return errors.New("missing org_id")
	}
	return nil
}

// HandlePostBatch handles POST /batches requests.
func (h *BatchHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	// Idempotency check first; replayed batches are acknowledged, not
	// re-applied.
	if h.deps.SeenAndRecord(r.Context(), req.BatchID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	if ok := h.deps.Enqueue(r.Context(), req.toBatch()); !ok {
		// Roll back the seen mark so the client can retry.
		h.deps.Unrecord(r.Context(), req.BatchID)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}

func (b batchRequest) toBatch() model.RecordBatch {
	out := model.RecordBatch{BatchID: b.BatchID, OrgID: b.OrgID}
	for _, p := range b.Projects {
		out.Projects = append(out.Projects, model.Project{ID: p.ID, Name: p.Name})
	}
	for _, in := range b.IncomeRecords {
		out.Incomes = append(out.Incomes, model.IncomeRecord{
			ID:           in.ID,
			ProjectID:    in.ProjectID,
			Amount:       parseAmount(in.Amount),
			ExpectedDate: parseDate(in.ExpectedDate),
			Status:       model.RecordStatus(in.Status),
			Description:  in.Description,
		})
	}
	for _, c := range b.CostRecords {
		cost := model.CostRecord{
			ID:          c.ID,
			ProjectID:   c.ProjectID,
			IncomeID:    c.IncomeID,
			Source:      model.SourceType(c.Source),
			Mode:        model.CostMode(c.Mode),
			Amount:      parseAmount(c.Amount),
			OffsetDays:  c.OffsetDays,
			Status:      model.RecordStatus(c.Status),
			Description: c.Description,
		}
		for _, line := range c.Lines {
			cost.Lines = append(cost.Lines, model.CostLine{
				Amount:      parseAmount(line.Amount),
				OffsetDays:  line.OffsetDays,
				Description: line.Description,
			})
		}
		out.Costs = append(out.Costs, cost)
	}
	for _, t := range b.Transactions {
		out.Transactions = append(out.Transactions, model.ActualTransaction{
			ID:          t.ID,
			ProjectID:   t.ProjectID,
			Amount:      parseAmount(t.Amount),
			OccurredAt:  parseDate(t.OccurredAt),
			Direction:   model.Direction(t.Direction),
			Source:      model.SourceType(t.Source),
			Basis:       model.Basis(t.Basis),
			Description: t.Description,
		})
	}
	return out
}

// parseAmount reads a decimal string; anything unreadable becomes zero
// and the record is later excluded from projection.
func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDate reads an ISO-8601 day; anything unreadable becomes the
// zero time.
func parseDate(s string) time.Time {
	t, err := time.Parse(types.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
