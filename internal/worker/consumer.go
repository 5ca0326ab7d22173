package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fileconv/internal/logging"
	"fileconv/internal/pipeline"
	"fileconv/internal/queue"
	"fileconv/internal/services"
)

// JobRunner executes one job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, jobID string) error
}

// Options configures a Consumer.
type Options struct {
	Queue       queue.Queue
	Runner      JobRunner
	Concurrency int
	// ErrorRetryInterval is the pause after a failed dequeue or before a
	// failed delivery is returned to the queue.
	ErrorRetryInterval time.Duration
	// HeartbeatInterval is how often the lease of a running delivery is renewed.
	HeartbeatInterval time.Duration
	// ReclaimInterval is how often expired leases are returned to the queue.
	ReclaimInterval time.Duration
	Logger          *slog.Logger
}

// Status summarizes consumer activity.
type Status struct {
	Running   bool
	Workers   int
	Active    int64
	Processed int64
	Retried   int64
	LastError string
}

// Consumer is the queue-driven job loop.
type Consumer struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr string

	active    atomic.Int64
	processed atomic.Int64
	retried   atomic.Int64
}

// New constructs a Consumer, filling unset intervals with defaults.
func New(opts Options) *Consumer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.ErrorRetryInterval <= 0 {
		opts.ErrorRetryInterval = 10 * time.Second
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = time.Minute
	}
	if opts.ReclaimInterval <= 0 {
		opts.ReclaimInterval = time.Minute
	}
	return &Consumer{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "worker")}
}

// Start begins background processing.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("worker already running")
	}
	if c.opts.Queue == nil || c.opts.Runner == nil {
		return errors.New("worker queue and runner are required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.running = true

	c.wg.Add(c.opts.Concurrency + 1)
	for i := 0; i < c.opts.Concurrency; i++ {
		go c.runLoop(runCtx, c.logger.With(logging.Int("worker", i+1)))
	}
	go c.reclaimLoop(runCtx)

	c.logger.Info("worker started",
		logging.String(logging.FieldEventType, "worker_started"),
		logging.Int("concurrency", c.opts.Concurrency),
	)
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// return.
func (c *Consumer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	c.running = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	c.logger.Info("worker stopped", logging.String(logging.FieldEventType, "worker_stopped"))
}

// Wait blocks until every loop has exited.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

// Status returns a snapshot of consumer activity.
func (c *Consumer) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Running:   c.running,
		Workers:   c.opts.Concurrency,
		Active:    c.active.Load(),
		Processed: c.processed.Load(),
		Retried:   c.retried.Load(),
		LastError: c.lastErr,
	}
}

func (c *Consumer) setLastError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}

func (c *Consumer) runLoop(ctx context.Context, logger *slog.Logger) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		delivery, err := c.opts.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.handleDequeueError(ctx, logger, err)
			continue
		}
		if delivery == nil {
			continue
		}
		c.process(ctx, logger, delivery)
	}
}

func (c *Consumer) handleDequeueError(ctx context.Context, logger *slog.Logger, err error) {
	c.setLastError(err)
	logger.Error("failed to fetch next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue connectivity"),
	)
	c.pause(ctx)
}

func (c *Consumer) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.opts.ErrorRetryInterval):
	}
}

func (c *Consumer) process(ctx context.Context, logger *slog.Logger, d *queue.Delivery) {
	jobID := d.Message.JobID
	logger = logger.With(logging.String(logging.FieldJobID, jobID))
	c.active.Add(1)
	defer c.active.Add(-1)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	var hb sync.WaitGroup
	hb.Add(1)
	go c.heartbeat(hbCtx, &hb, logger, d)

	err := c.opts.Runner.Run(ctx, jobID)
	stopHeartbeat()
	hb.Wait()

	// Settle with a fresh context so a shutdown still returns the message.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	switch {
	case err == nil:
		c.processed.Add(1)
		c.ack(settleCtx, logger, d)
	case errors.Is(err, services.ErrNotFound):
		logger.Warn("dropping message for unknown job",
			logging.String(logging.FieldEventType, "job_dropped"),
			logging.String(logging.FieldImpact, "the job record expired or was never written"),
		)
		c.ack(settleCtx, logger, d)
	case errors.Is(err, services.ErrValidation):
		c.setLastError(err)
		logging.ErrorWithContext(logger, "dropping message that can never be processed", "job_rejected",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the job stays in its current state"),
			logging.String(logging.FieldErrorHint, "inspect the job id and job.json"),
		)
		c.ack(settleCtx, logger, d)
	case errors.Is(err, pipeline.ErrJobBusy):
		logger.Info("job already running on this host; dropping duplicate delivery",
			logging.String(logging.FieldEventType, "job_duplicate"),
		)
		c.ack(settleCtx, logger, d)
	case ctx.Err() != nil:
		c.nack(settleCtx, logger, d)
	default:
		c.setLastError(err)
		c.retried.Add(1)
		logging.WarnWithContext(logger, "job could not be settled; returning to queue", "job_requeued",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check object storage access"),
		)
		c.pause(ctx)
		c.nack(settleCtx, logger, d)
	}
}

func (c *Consumer) ack(ctx context.Context, logger *slog.Logger, d *queue.Delivery) {
	if err := d.Ack(ctx); err != nil {
		logger.Warn("ack failed; message may be delivered again", logging.Error(err))
	}
}

func (c *Consumer) nack(ctx context.Context, logger *slog.Logger, d *queue.Delivery) {
	if err := d.Nack(ctx); err != nil {
		logger.Warn("nack failed; message returns after its lease expires", logging.Error(err))
	}
}
