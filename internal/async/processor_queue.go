package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/price-bulletin/internal/pipeline"
)

// Publisher is the work a queue worker runs for each job.
type Publisher interface {
	Publish(ctx context.Context, req pipeline.Request) (uuid.UUID, pipeline.Outcome, error)
}

type ProcessorQueue struct {
	pub     Publisher
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Job, uuid.UUID, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex // guards closed and sends on ch
	closed bool

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback run by the worker after each job.
func WithOnDone(fn func(job Job, runID uuid.UUID, err error)) Option {
	return func(q *ProcessorQueue) {
		q.onDone = fn
	}
}

func NewProcessorQueue(pub Publisher, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		pub:     pub,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
		pending: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	runID, out, err := q.pub.Publish(ctx, pipeline.Request{Path: job.Path, Date: job.Date})
	cancel()

	q.pendingMu.Lock()
	delete(q.pending, job.Path)
	q.pendingMu.Unlock()

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "run_id", runID, "error", err)
	} else {
		q.logger.Info("processed bulletin successfully",
			"worker_id", workerID,
			"path", job.Path,
			"run_id", runID,
			"products", len(out.Bulletin.Products),
			"queued_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.onDone != nil {
		q.onDone(job, runID, err)
	}
}

// Enqueue blocks while the queue is full until ctx is done. A path that is
// already pending is skipped unless job.Force is set.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}

	q.pendingMu.Lock()
	if _, dup := q.pending[job.Path]; dup && !job.Force {
		q.pendingMu.Unlock()
		q.logger.Info("skipping duplicate job", "path", job.Path)
		return nil
	}
	q.pending[job.Path] = struct{}{}
	q.pendingMu.Unlock()

	select {
	case q.ch <- job:
		q.logger.Info("queued bulletin for processing", "path", job.Path, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.pendingMu.Lock()
		delete(q.pending, job.Path)
		q.pendingMu.Unlock()
		return ctx.Err()
	}
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
