package api

import (
	"errors"
	"net/http"

	service "github.com/buildflow/cashcast/internal/app"
	"github.com/buildflow/cashcast/internal/domain/types"
)

// GapsHandler handles gap-detection queries.
type GapsHandler struct {
	deps Dependencies
}

// NewGapsHandler creates a new gaps handler.
func NewGapsHandler(deps Dependencies) *GapsHandler {
	return &GapsHandler{deps: deps}
}

// gapReport pairs one gap with its suggestions on the wire.
type gapReport struct {
	Gap         types.Gap          `json:"gap"`
	Suggestions []types.Suggestion `json:"suggestions"`
}

// gapsResponse is the wire shape for GET /gaps.
type gapsResponse struct {
	OrgID   string      `json:"org_id"`
	Reports []gapReport `json:"reports"`
}

// HandleGetGaps handles GET /gaps requests.
// Query: org, opening (optional), minimum (optional).
func (h *GapsHandler) HandleGetGaps(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_gaps"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	org := r.URL.Query().Get("org")
	if org == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing org")))
		return
	}

	defaults := h.deps.Defaults()
	opening := defaults.OpeningBalance
	if r.URL.Query().Has("opening") {
		opening = parseQueryAmount(r, "opening")
	}
	minimum := defaults.MinimumBalance
	if r.URL.Query().Has("minimum") {
		minimum = parseQueryAmount(r, "minimum")
	}

	reports, err := h.deps.Gaps(r.Context(), service.GapQuery{
		OrgID:          org,
		OpeningBalance: opening,
		MinimumBalance: minimum,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	resp := gapsResponse{OrgID: org, Reports: make([]gapReport, len(reports))}
	for i, rep := range reports {
		out := gapReport{Gap: types.FromGap(rep.Gap)}
		for _, sug := range rep.Suggestions {
			out.Suggestions = append(out.Suggestions, types.FromSuggestion(sug))
		}
		resp.Reports[i] = out
	}
	writeJSON(w, http.StatusOK, resp)
}
