// Package worker provides an asynchronous worker pool that persists
// completed exchanges and ingest runs to a storage.Driver and publishes
// matching events.
//
// The pool decouples bookkeeping from the answer path: a slow or failing
// transcript store never delays or fails a user-facing call.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/pitch/pkg/eventstream"
	"github.com/papercomputeco/pitch/pkg/storage"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 30 * time.Second
)

// Job is a unit of work for the worker pool. Exactly one of Exchange and
// Ingest is set.
type Job struct {
	Exchange *storage.Exchange
	Ingest   *storage.IngestRun
}

func (j Job) sessionID() string {
	switch {
	case j.Exchange != nil:
		return j.Exchange.SessionID
	case j.Ingest != nil:
		return j.Ingest.SessionID
	}
	return ""
}

func (j Job) kind() string {
	if j.Exchange != nil {
		return "exchange"
	}
	return "ingest"
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the transcript store. Nil skips persistence.
	Driver storage.Driver

	// Publisher receives an event per job. Nil skips publishing.
	Publisher eventstream.Publisher

	// Service names the event source.
	Service string

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds the storage and publish calls for one job.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.Service == "" {
		c.Service = "pitch"
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "kind", job.kind(), "session_id", job.sessionID())
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "kind", job.kind(), "session_id", job.sessionID())
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "kind", job.kind(), "session_id", job.sessionID())
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob persists the job and then publishes its event. Failures are
// logged and never retried.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.persist(ctx, job); err != nil {
		p.logger.Error("async transcript storage failed",
			"kind", job.kind(),
			"session_id", job.sessionID(),
			"error", err,
		)
		return
	}

	if p.config.Publisher == nil {
		return
	}

	if err := p.config.Publisher.Publish(ctx, p.event(job)); err != nil {
		p.logger.Warn("event publish failed",
			"kind", job.kind(),
			"session_id", job.sessionID(),
			"error", err,
		)
	}
}

func (p *Pool) persist(ctx context.Context, job Job) error {
	if p.config.Driver == nil {
		return nil
	}

	switch {
	case job.Exchange != nil:
		if err := p.config.Driver.PutExchange(ctx, job.Exchange); err != nil {
			return fmt.Errorf("storing exchange: %w", err)
		}
		p.logger.Debug("exchange stored", "exchange_id", job.Exchange.ID)
	case job.Ingest != nil:
		if err := p.config.Driver.PutIngestRun(ctx, job.Ingest); err != nil {
			return fmt.Errorf("storing ingest run: %w", err)
		}
		p.logger.Debug("ingest run stored", "run_id", job.Ingest.ID)
	default:
		return fmt.Errorf("empty job")
	}
	return nil
}

func (p *Pool) event(job Job) *eventstream.Event {
	if ex := job.Exchange; ex != nil {
		e := eventstream.NewEvent(eventstream.EventTypeExchangeCompleted, ex.SessionID, eventstream.EventSource{
			Service:  p.config.Service,
			Provider: ex.Provider,
			Model:    ex.Model,
		})
		e.Exchange = &eventstream.ExchangeEvent{
			ExchangeID: ex.ID,
			Query:      ex.Query,
			Answer:     ex.Answer,
			ContextIDs: ex.ContextIDs,
			Degraded:   ex.Degraded,
			DurationMs: ex.CompletedAt.Sub(ex.StartedAt).Milliseconds(),
		}
		return e
	}

	run := job.Ingest
	e := eventstream.NewEvent(eventstream.EventTypeIngestCompleted, run.SessionID, eventstream.EventSource{
		Service: p.config.Service,
	})
	e.Ingest = &eventstream.IngestEvent{
		RunID:           run.ID,
		Source:          run.Source,
		Rows:            run.Rows,
		ChunksCreated:   run.ChunksCreated,
		RecordsUpserted: run.RecordsUpserted,
		Failures:        run.Failures,
	}
	return e
}
