package jobs

import (
	"context"
	"log/slog"
	"time"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory queue
	QueueSize int

	// JobTimeout bounds each job's execution
	JobTimeout time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
		JobTimeout:  30 * time.Second,
	}
}

// Runner owns a queue and the worker pool that drains it.
type Runner struct {
	queue  *Queue
	pool   *WorkerPool
	logger *slog.Logger
}

// NewRunner creates a Runner. Call Start before submitting work.
func NewRunner(config RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRunnerConfig().QueueSize
	}

	queue := NewQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{
		WorkerCount: config.WorkerCount,
		JobTimeout:  config.JobTimeout,
	}, logger)

	return &Runner{
		queue:  queue,
		pool:   pool,
		logger: logger.With("component", "job_runner"),
	}
}

// SetErrorHandler forwards to the worker pool.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Start begins processing jobs.
func (r *Runner) Start() {
	r.pool.Start()
}

// Submit enqueues a job without blocking. The context is accepted for
// symmetry with other submitters and is not retained.
func (r *Runner) Submit(_ context.Context, job Job) error {
	if err := r.queue.Enqueue(job); err != nil {
		r.logger.Warn("job rejected",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err)
		return err
	}
	return nil
}

// Stop closes the queue and waits for in-flight jobs.
func (r *Runner) Stop() {
	r.queue.Close()
	r.pool.Stop()
}
