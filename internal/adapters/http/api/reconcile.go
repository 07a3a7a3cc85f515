package api

import (
	"errors"
	"net/http"
	"strconv"

	service "github.com/buildflow/cashcast/internal/app"
	"github.com/buildflow/cashcast/internal/domain/matching"
	"github.com/buildflow/cashcast/internal/domain/types"
)

// ReconcileHandler handles reconciliation queries.
type ReconcileHandler struct {
	deps Dependencies
}

// NewReconcileHandler creates a new reconciliation handler.
func NewReconcileHandler(deps Dependencies) *ReconcileHandler {
	return &ReconcileHandler{deps: deps}
}

// reconcileResponse is the wire shape for GET /reconciliation.
type reconcileResponse struct {
	OrgID                 string        `json:"org_id"`
	Matches               []types.Match `json:"matches"`
	UnmatchedEvents       []types.Event `json:"unmatched_events"`
	UnmatchedEventCount   int           `json:"unmatched_event_count"`
	UnmatchedTransactions int           `json:"unmatched_transactions"`
}

// HandleGetReconciliation handles GET /reconciliation requests.
// Query: org, threshold (optional), scheme (optional).
func (h *ReconcileHandler) HandleGetReconciliation(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_reconciliation"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	org := r.URL.Query().Get("org")
	if org == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing org")))
		return
	}
	var threshold float64
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t <= 0 || t >= 1 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid threshold; must be in (0,1)")))
			return
		}
		threshold = t
	}

	res, err := h.deps.Reconcile(r.Context(), service.ReconcileQuery{
		OrgID:     org,
		Threshold: threshold,
		Scheme:    matching.Scheme(r.URL.Query().Get("scheme")),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	resp := reconcileResponse{
		OrgID:                 org,
		Matches:               make([]types.Match, len(res.Matches)),
		UnmatchedEvents:       make([]types.Event, len(res.UnmatchedEvents)),
		UnmatchedEventCount:   len(res.UnmatchedEvents),
		UnmatchedTransactions: len(res.UnmatchedActuals),
	}
	for i, m := range res.Matches {
		resp.Matches[i] = types.FromMatch(m)
	}
	for i, e := range res.UnmatchedEvents {
		resp.UnmatchedEvents[i] = types.FromEvent(e)
	}
	writeJSON(w, http.StatusOK, resp)
}
