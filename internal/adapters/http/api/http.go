// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/buildflow/cashcast/internal/app"
	"github.com/buildflow/cashcast/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle
// keeps the handler layer loosely coupled to the app service.
type Dependencies interface {
	// SeenAndRecord / Unrecord implement idempotent batch ingestion.
	SeenAndRecord(ctx context.Context, id string) bool
	Unrecord(ctx context.Context, id string)

	// Enqueue pushes a batch for async ingestion. Returns false on
	// backpressure.
	Enqueue(ctx context.Context, b model.RecordBatch) bool

	// Pipeline operations.
	Forecast(ctx context.Context, q service.ForecastQuery) (service.ForecastResult, error)
	Reconcile(ctx context.Context, q service.ReconcileQuery) (service.ReconcileResult, error)
	Gaps(ctx context.Context, q service.GapQuery) ([]service.GapReport, error)

	// Defaults supplies the configured fallbacks for query parameters
	// the request omits.
	Defaults() service.QueryDefaults
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	batchHandler     *BatchHandler
	forecastHandler  *ForecastHandler
	reconcileHandler *ReconcileHandler
	gapsHandler      *GapsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		batchHandler:     NewBatchHandler(deps),
		forecastHandler:  NewForecastHandler(deps),
		reconcileHandler: NewReconcileHandler(deps),
		gapsHandler:      NewGapsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/batches", MetricsMiddleware(s.batchHandler.HandlePostBatch, "batches"))
	mux.HandleFunc("/forecast", MetricsMiddleware(s.forecastHandler.HandleGetForecast, "forecast"))
	mux.HandleFunc("/reconciliation", MetricsMiddleware(s.reconcileHandler.HandleGetReconciliation, "reconciliation"))
	mux.HandleFunc("/gaps", MetricsMiddleware(s.gapsHandler.HandleGetGaps, "gaps"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
