// Package worker runs the ingestion side of the sync boundary: workers
// drain the batch queue and apply batches to the store under the
// exponential-backoff retry policy.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/buildflow/cashcast/internal/adapters/mq/queue"
	"github.com/buildflow/cashcast/internal/syncjob"
	"github.com/buildflow/cashcast/pkg/logger"
	"github.com/buildflow/cashcast/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount = 4
)

// Batch is what workers read off the queue.
type Batch = queue.Batch

// Applier persists one ingestion batch. Implemented by the repository
// store.
type Applier interface {
	Apply(ctx context.Context, b Batch) error
}

// Worker processes batches from a queue until its context is canceled.
type Worker struct {
	queue     queue.Queue
	applier   Applier
	policy    syncjob.Policy
	name      string
	onFailure func(ctx context.Context, b Batch)

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithPolicy sets the retry policy applied to each batch.
func WithPolicy(p syncjob.Policy) Option {
	return func(w *Worker) {
		w.policy = p
	}
}

// WithOnFailure sets a callback invoked when a batch exhausts its
// retry policy.
func WithOnFailure(fn func(ctx context.Context, b Batch)) Option {
	return func(w *Worker) {
		if fn != nil {
			w.onFailure = fn
		}
	}
}

// NewWorker creates a worker with configuration options.
func NewWorker(q queue.Queue, applier Applier, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		applier:  applier,
		policy:   syncjob.NewPolicy(),
		name:     "sync-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("sync-worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	batches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case b, ok := <-batches:
			if !ok {
				return
			}
			if err := w.processBatch(ctx, b); err != nil {
				w.logger.Error(ctx, "batch failed",
					logger.String("batchID", b.BatchID),
					logger.String("orgID", b.OrgID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processBatch applies one batch, retrying under the backoff policy.
// A batch that exhausts the policy is marked failed; the core's
// freshness assumption stays intact because failed batches never reach
// the store partially.
func (w *Worker) processBatch(ctx context.Context, b Batch) error {
	attempt := 0
	err := syncjob.Execute(ctx, w.policy, func(ctx context.Context) error {
		if attempt > 0 {
			metrics.RecordSyncRetry()
			w.logger.Warn(ctx, "retrying batch",
				logger.String("batchID", b.BatchID),
				logger.Int("attempt", attempt),
			)
		}
		attempt++
		return w.applier.Apply(ctx, b)
	})
	if err != nil {
		metrics.RecordBatchFailed()
		if w.onFailure != nil {
			w.onFailure(ctx, b)
		}
		return fmt.Errorf("apply batch %s: %w", b.BatchID, err)
	}
	metrics.RecordBatchApplied()
	return nil
}

// Pool manages multiple workers draining the same queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, q queue.Queue, applier Applier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("sync-pool"),
	}
	for i := range p.workers {
		workerOpts := append([]Option{WithName("sync-worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewWorker(q, applier, workerOpts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop shuts all workers down, bounded by a short grace period.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop cleanly",
				logger.String("name", w.name),
				logger.Error(err),
			)
		}
	}
	metrics.UpdateWorkerCount(0)
}
