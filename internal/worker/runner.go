// Package worker delivers high-risk alert emails in the background. It is
// decoupled from the HTTP layer: the api package holds a worker.Enqueuer and
// calls Enqueue. It never waits on delivery.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ─── ENQUEUER INTERFACE ───────────────────────────────────────────────────────

// Enqueuer is the narrow interface the api package uses to hand off an alert
// after recording a high-risk assessment.
//
// The concrete implementation is *Runner. In tests, any struct with an Enqueue
// method satisfies the interface.
type Enqueuer interface {
	Enqueue(ctx context.Context, a Alert) error
}

// ErrQueueFull is returned by Enqueue when every buffered slot is taken.
var ErrQueueFull = errors.New("worker: queue is full")

// ─── RUNNER ───────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. Zero fields take the
// values from DefaultRunnerConfig.
type RunnerConfig struct {
	// Workers is the number of concurrent job goroutines. Default: 3.
	Workers int

	// QueueSize is the channel buffer. Default: Workers*2.
	QueueSize int

	// JobTimeout is the per-attempt context deadline. Default: 30s.
	JobTimeout time.Duration

	// MaxRetries is the number of attempts before an alert is dropped.
	// Default: 3.
	MaxRetries int

	// Backoff is the wait after the first failed attempt; it doubles after
	// each further failure. Default: 2s.
	Backoff time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:    3,
		JobTimeout: 30 * time.Second,
		MaxRetries: 3,
		Backoff:    2 * time.Second,
	}
}

// Runner manages a pool of worker goroutines fed by an in-process channel.
// Alerts still queued when the process stops are lost.
type Runner struct {
	job    *Job
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan Alert
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(job *Job, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}

	return &Runner{
		job:    job,
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Alert, cfg.QueueSize),
	}
}

// Enqueue pushes an alert onto the in-process channel. It satisfies the
// Enqueuer interface. If the channel is full it returns ErrQueueFull rather
// than blocking the HTTP response.
func (r *Runner) Enqueue(_ context.Context, a Alert) error {
	select {
	case r.queue <- a:
		r.logger.Info("worker: enqueued alert", "patient_id", a.PatientID)
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the worker pool. It blocks until ctx is cancelled and every
// worker has returned. Call it in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers, "max_retries", r.cfg.MaxRetries)

	for i := range r.cfg.Workers {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each worker goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)
	log.Debug("worker: goroutine started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker: goroutine stopping")
			return
		case a := <-r.queue:
			r.runWithRetry(ctx, a, log)
		}
	}
}

// runWithRetry executes the job up to MaxRetries times. After exhausting
// retries the alert is logged and dropped.
func (r *Runner) runWithRetry(ctx context.Context, a Alert, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
		lastErr = r.job.Run(jobCtx, a)
		cancel()

		if lastErr == nil {
			return
		}

		log.Warn("worker: alert attempt failed",
			"patient_id", a.PatientID,
			"attempt", attempt,
			"max", r.cfg.MaxRetries,
			"error", lastErr,
		)

		if attempt < r.cfg.MaxRetries {
			// Exponential back-off: 2s, 4s, 8s …
			backoff := r.cfg.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
		}
	}

	log.Error("worker: alert permanently failed", "patient_id", a.PatientID, "error", lastErr)
}
