// Package service provides the core business service that implements
// the dependencies required by the HTTP API: batch ingestion on one
// side, the forecasting/reconciliation pipeline on the other.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildflow/cashcast/internal/adapters/mq/queue"
	workerpool "github.com/buildflow/cashcast/internal/adapters/mq/worker"
	"github.com/buildflow/cashcast/internal/adapters/repository"
	"github.com/buildflow/cashcast/internal/domain/dedupe"
	"github.com/buildflow/cashcast/internal/domain/forecast"
	"github.com/buildflow/cashcast/internal/domain/gap"
	"github.com/buildflow/cashcast/internal/domain/matching"
	"github.com/buildflow/cashcast/internal/domain/model"
	"github.com/buildflow/cashcast/internal/domain/period"
	"github.com/buildflow/cashcast/internal/domain/projector"
	"github.com/buildflow/cashcast/internal/domain/suggest"
	"github.com/buildflow/cashcast/internal/syncjob"
	"github.com/buildflow/cashcast/pkg/logger"
	"github.com/buildflow/cashcast/pkg/metrics"
)

// ForecastQuery parameterizes one forecast run.
type ForecastQuery struct {
	OrgID          string
	Start          time.Time
	End            time.Time
	Granularity    period.Granularity
	OpeningBalance decimal.Decimal
}

// ForecastResult is the aggregated forecast plus run bookkeeping.
type ForecastResult struct {
	Forecast   forecast.Forecast
	EventCount int
}

// ReconcileQuery parameterizes one reconciliation run.
type ReconcileQuery struct {
	OrgID     string
	Threshold float64         // zero means the service default
	Scheme    matching.Scheme // empty means auto-select
}

// ReconcileResult carries the emitted matches and the leftovers.
type ReconcileResult struct {
	Matches          []model.VarianceMatch
	UnmatchedEvents  []model.ProjectedCashEvent
	UnmatchedActuals []model.ActualTransaction
}

// GapQuery parameterizes one gap-detection run.
type GapQuery struct {
	OrgID          string
	OpeningBalance decimal.Decimal
	MinimumBalance decimal.Decimal
}

// QueryDefaults are the configured fallbacks applied when a request
// omits the corresponding query parameters.
type QueryDefaults struct {
	Granularity    period.Granularity
	OpeningBalance decimal.Decimal
	MinimumBalance decimal.Decimal
}

// GapReport pairs one detected gap with its suggestions.
type GapReport struct {
	Gap         model.CashGap
	Suggestions []model.PaymentSuggestion
}

// Service wires the ingestion adapters to the forecasting pipeline.
// Each pipeline run operates on an immutable store snapshot, so
// concurrent runs for different organizations need no coordination.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	deduper    dedupe.Deduper
	batchQueue queue.Queue
	pool       *workerpool.Pool

	projector  *projector.Projector
	aggregator *forecast.Aggregator
	detector   *gap.Detector
	suggester  *suggest.Generator

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	matchThreshold float64
	matchScheme    matching.Scheme
	delayDays      int
	advanceDays    int
	policy         syncjob.Policy
	defaults       QueryDefaults

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets a custom record store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithWorkerCount sets the number of sync workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize sets the sync queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithDedupeSize sets the batch-id dedupe cache size.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithMatchThreshold sets the default variance-match threshold.
func WithMatchThreshold(t float64) Option {
	return func(s *Service) {
		if t > 0 && t < 1 {
			s.matchThreshold = t
		}
	}
}

// WithMatchScheme sets the default weight scheme.
func WithMatchScheme(scheme matching.Scheme) Option {
	return func(s *Service) {
		if scheme != "" {
			s.matchScheme = scheme
		}
	}
}

// WithSuggestionOffsets sets the nominal delay and advance days.
func WithSuggestionOffsets(delayDays, advanceDays int) Option {
	return func(s *Service) {
		if delayDays > 0 {
			s.delayDays = delayDays
		}
		if advanceDays > 0 {
			s.advanceDays = advanceDays
		}
	}
}

// WithBackoffPolicy sets the sync retry policy.
func WithBackoffPolicy(p syncjob.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithDefaultGranularity sets the forecast granularity used when a
// request does not specify one.
func WithDefaultGranularity(g period.Granularity) Option {
	return func(s *Service) {
		if g == period.Monthly || g == period.Weekly {
			s.defaults.Granularity = g
		}
	}
}

// WithDefaultBalances sets the opening and minimum balances used when
// a request does not specify them.
func WithDefaultBalances(opening, minimum decimal.Decimal) Option {
	return func(s *Service) {
		s.defaults.OpeningBalance = opening
		s.defaults.MinimumBalance = minimum
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    4,
		queueSize:      10_000,
		dedupeSize:     50_000,
		matchThreshold: matching.DefaultThreshold,
		matchScheme:    matching.SchemeProjectAware,
		delayDays:      suggest.DefaultDelayDays,
		advanceDays:    suggest.DefaultAdvanceDays,
		policy:         syncjob.NewPolicy(),
		defaults:       QueryDefaults{Granularity: period.Monthly},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
	}
	s.deduper = dedupe.NewMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.batchQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.batchQueue, s.store,
		workerpool.WithPolicy(s.policy),
		// A batch that exhausts its retries must become submittable
		// again, or the client sees "duplicate" forever.
		workerpool.WithOnFailure(func(ctx context.Context, b workerpool.Batch) {
			s.deduper.Unrecord(ctx, b.BatchID)
		}),
	)
	s.pool.Start(ctx)

	s.projector = projector.New()
	s.aggregator = forecast.New()
	s.detector = gap.New()
	s.suggester = suggest.New(
		suggest.WithDelayDays(s.delayDays),
		suggest.WithAdvanceDays(s.advanceDays),
	)

	s.started = true
	s.logger.Info(ctx, "cashcast service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Float64("matchThreshold", s.matchThreshold),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping cashcast service...")
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.batchQueue != nil {
		_ = s.batchQueue.Close()
	}
	s.started = false
	s.logger.Info(ctx, "cashcast service stopped")
}

// SeenAndRecord atomically checks whether a batch id was seen and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordBatchDuplicate()
	}
	return seen
}

// Unrecord removes a batch id from the seen list, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Defaults returns the configured query fallbacks.
func (s *Service) Defaults() QueryDefaults {
	return s.defaults
}

// Enqueue submits a batch for asynchronous ingestion. Returns false on
// backpressure.
func (s *Service) Enqueue(ctx context.Context, b model.RecordBatch) bool {
	ok := s.batchQueue.Enqueue(ctx, b)
	if !ok {
		s.logger.Warn(ctx, "batch rejected, queue full",
			logger.String("batchID", b.BatchID),
			logger.String("orgID", b.OrgID),
		)
	}
	return ok
}

// Forecast projects an organization's records into cash events and
// aggregates them over the requested period sequence. Empty inputs
// produce an empty forecast, not an error.
func (s *Service) Forecast(ctx context.Context, q ForecastQuery) (ForecastResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordPipelineDuration(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordForecastRun()

	if q.Granularity == "" {
		q.Granularity = s.defaults.Granularity
	}

	snap := s.store.Snapshot(ctx, q.OrgID)
	events := s.projector.Project(ctx, snap.Incomes, snap.Costs)
	metrics.RecordEventsProjected(len(events))

	spans := period.Generate(q.Start, q.End, q.Granularity)
	f := s.aggregator.Aggregate(ctx, events, spans, q.OpeningBalance)

	s.logger.Debug(ctx, "forecast run complete",
		logger.String("orgID", q.OrgID),
		logger.Int("events", len(events)),
		logger.Int("periods", len(f.Periods)),
	)
	return ForecastResult{Forecast: f, EventCount: len(events)}, nil
}

// Reconcile fuzzy-matches projected events against the stored actual
// transactions. Events are matched per source partition (milestones,
// then claims, then material orders, then overheads); unmatched actuals
// carry over between partitions so each transaction is consumed at most
// once.
func (s *Service) Reconcile(ctx context.Context, q ReconcileQuery) (ReconcileResult, error) {
	snap := s.store.Snapshot(ctx, q.OrgID)
	events := s.projector.Project(ctx, snap.Incomes, snap.Costs)

	threshold := q.Threshold
	if threshold == 0 {
		threshold = s.matchThreshold
	}
	scheme := q.Scheme
	if scheme == "" {
		scheme = s.selectScheme(snap.Transactions)
	}
	m := matching.New(
		matching.WithThreshold(threshold),
		matching.WithScheme(scheme),
	)

	res := ReconcileResult{}
	remaining := snap.Transactions
	for _, source := range []model.SourceType{
		model.SourceMilestone, model.SourceClaim, model.SourceMaterialOrder, model.SourceOverhead,
	} {
		partition := eventsOfSource(events, source)
		if len(partition) == 0 {
			continue
		}
		out := m.Match(ctx, partition, remaining)
		res.Matches = append(res.Matches, out.Matches...)
		res.UnmatchedEvents = append(res.UnmatchedEvents, out.UnmatchedEvents...)
		remaining = out.UnmatchedActuals
	}
	res.UnmatchedActuals = remaining

	for _, match := range res.Matches {
		metrics.RecordMatch(match.Confidence)
	}
	metrics.RecordUnmatched(len(res.UnmatchedEvents), len(res.UnmatchedActuals))

	s.logger.Debug(ctx, "reconciliation complete",
		logger.String("orgID", q.OrgID),
		logger.Int("matches", len(res.Matches)),
		logger.Int("unmatchedEvents", len(res.UnmatchedEvents)),
		logger.Int("unmatchedActuals", len(res.UnmatchedActuals)),
	)
	return res, nil
}

// selectScheme falls back to the bank-feed weights when no stored
// transaction carries a project attribution.
func (s *Service) selectScheme(actuals []model.ActualTransaction) matching.Scheme {
	for _, a := range actuals {
		if a.ProjectID != "" {
			return s.matchScheme
		}
	}
	if len(actuals) == 0 {
		return s.matchScheme
	}
	return matching.SchemeBankFeed
}

// Gaps detects below-threshold balance windows over the projected
// event stream and generates payment-timing suggestions for each.
func (s *Service) Gaps(ctx context.Context, q GapQuery) ([]GapReport, error) {
	snap := s.store.Snapshot(ctx, q.OrgID)
	events := s.projector.Project(ctx, snap.Incomes, snap.Costs)

	gaps := s.detector.Detect(ctx, events, q.OpeningBalance, q.MinimumBalance)
	metrics.RecordGapsDetected(len(gaps))

	reports := make([]GapReport, len(gaps))
	total := 0
	for i, g := range gaps {
		suggestions := s.suggester.Suggest(ctx, g)
		reports[i] = GapReport{Gap: g, Suggestions: suggestions}
		total += len(suggestions)
	}
	metrics.RecordSuggestionsGenerated(total)

	s.logger.Debug(ctx, "gap detection complete",
		logger.String("orgID", q.OrgID),
		logger.Int("gaps", len(gaps)),
		logger.Int("suggestions", total),
	)
	return reports, nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		counts := s.store.Counts(ctx)
		orgs := s.store.Orgs(ctx)
		stats["queueLength"] = s.batchQueue.Len(ctx)
		stats["organizations"] = orgs
		stats["projects"] = counts.Projects
		stats["incomeRecords"] = counts.Incomes
		stats["costRecords"] = counts.Costs
		stats["transactions"] = counts.Transactions
		stats["dedupeSize"] = s.deduper.Size()

		metrics.UpdateStoreSize(orgs, counts.Projects+counts.Incomes+counts.Costs+counts.Transactions)
	}
	return stats
}

func eventsOfSource(events []model.ProjectedCashEvent, source model.SourceType) []model.ProjectedCashEvent {
	var out []model.ProjectedCashEvent
	for _, e := range events {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}
