// Package scheduler runs the fetch-transform-persist pipeline over a bounded
// worker pool.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/grocerytrack/modality-scout/internal/availability"
	"github.com/grocerytrack/modality-scout/internal/jitter"
	"github.com/grocerytrack/modality-scout/internal/metrics"
	"github.com/grocerytrack/modality-scout/internal/transform"
)

// Fetcher fetches the raw modality payload for one postal code.
type Fetcher interface {
	Fetch(ctx context.Context, postalCode string) ([]byte, error)
}

// Transformer turns a raw payload into a ledger record.
type Transformer interface {
	Transform(raw []byte, task availability.Task) (availability.Record, error)
}

// Sink appends one record to the output ledger.
type Sink interface {
	Append(rec availability.Record) error
}

// Config controls pool size, retry policy, and pacing.
type Config struct {
	Source      string
	Workers     int
	RetryBudget int

	BackoffMin  time.Duration
	BackoffMax  time.Duration
	JitterMin   time.Duration
	JitterMax   time.Duration
	CooldownMin time.Duration
	CooldownMax time.Duration

	// RequestsPerSecond caps aggregate request rate across all workers;
	// zero means the jitter and cooldown sleeps are the only throttle.
	RequestsPerSecond float64
	Burst             int
}

// Summary reports what one run did.
type Summary struct {
	Written   int
	Malformed int
	Failed    int
}

// Scheduler coordinates the worker pool.
type Scheduler struct {
	fetcher     Fetcher
	transformer Transformer
	sink        Sink
	limiter     *rate.Limiter
	cfg         Config
	logger      *zap.Logger

	// Swappable for deterministic tests.
	sleep func(ctx context.Context, d time.Duration) bool
	draw  func(min, max time.Duration) time.Duration
}

// New constructs a Scheduler.
func New(fetcher Fetcher, transformer Transformer, sink Sink, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 12
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 3
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Scheduler{
		fetcher:     fetcher,
		transformer: transformer,
		sink:        sink,
		limiter:     limiter,
		cfg:         cfg,
		logger:      logger,
		sleep:       sleepCtx,
		draw:        jitter.Between,
	}
}

// Run drains tasks through the pool and blocks until every submitted task
// settles or the context finishes. Tasks are submitted in input order with a
// randomized delay between submissions; row order in the ledger follows
// completion order, not input order.
func (s *Scheduler) Run(ctx context.Context, tasks []availability.Task) Summary {
	runLogger := s.logger.With(zap.String("run_id", uuid.NewString()))
	runLogger.Info("pipeline run starting",
		zap.Int("pending_tasks", len(tasks)),
		zap.Int("workers", s.cfg.Workers),
	)

	ch := make(chan availability.Task)
	counts := &summaryCounter{}

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			s.runWorker(ctx, runLogger.Named("worker").With(zap.Int("index", index)), ch, counts)
		}(i)
	}

	s.feed(ctx, ch, tasks)
	close(ch)
	wg.Wait()

	summary := counts.snapshot()
	runLogger.Info("pipeline run finished",
		zap.Int("written", summary.Written),
		zap.Int("malformed", summary.Malformed),
		zap.Int("failed", summary.Failed),
	)
	return summary
}

func (s *Scheduler) feed(ctx context.Context, ch chan<- availability.Task, tasks []availability.Task) {
	for i, task := range tasks {
		if i > 0 && !s.sleep(ctx, s.draw(s.cfg.JitterMin, s.cfg.JitterMax)) {
			return
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case ch <- task:
		}
	}
}

func (s *Scheduler) runWorker(
	ctx context.Context,
	logger *zap.Logger,
	ch <-chan availability.Task,
	counts *summaryCounter,
) {
	for task := range ch {
		if ctx.Err() != nil {
			return
		}
		metrics.IncActiveWorkers()
		outcome := s.processTask(ctx, logger, task)
		metrics.DecActiveWorkers()

		switch outcome {
		case metrics.OutcomeWritten, metrics.OutcomeRejected:
			counts.written()
			metrics.ObserveTask(outcome)
			// Post-success cooldown throttles aggregate request rate
			// independent of pool size.
			if !s.sleep(ctx, s.draw(s.cfg.CooldownMin, s.cfg.CooldownMax)) {
				return
			}
		case metrics.OutcomeMalformed:
			counts.malformed()
			metrics.ObserveTask(outcome)
		default:
			counts.failed()
			metrics.ObserveTask(metrics.OutcomeFailed)
		}
	}
}

// processTask runs the bounded fetch retry loop and hands successes to the
// transformer and sink. The returned outcome is a metrics label.
func (s *Scheduler) processTask(ctx context.Context, logger *zap.Logger, task availability.Task) string {
	for attempt := 1; attempt <= s.cfg.RetryBudget; attempt++ {
		raw, err := s.fetcher.Fetch(ctx, task.PostalCode)
		switch {
		case err == nil:
			metrics.ObserveFetchAttempt(metrics.FetchSuccess)
			return s.settle(logger, task, raw)

		case availability.IsTerminal(err):
			metrics.ObserveFetchAttempt(metrics.FetchTerminal)
			logger.Info("postal code rejected by upstream",
				zap.String("postal_code", task.PostalCode),
				zap.Error(err),
			)
			if out := s.writeRecord(logger, task, availability.NewRecord(s.cfg.Source, task)); out != metrics.OutcomeWritten {
				return out
			}
			return metrics.OutcomeRejected

		case availability.IsTransient(err):
			metrics.ObserveFetchAttempt(metrics.FetchTransient)
			if attempt == s.cfg.RetryBudget {
				logger.Error("retry budget exhausted, dropping task",
					zap.String("postal_code", task.PostalCode),
					zap.Int("attempts", attempt),
					zap.Error(err),
				)
				return metrics.OutcomeFailed
			}
			backoff := s.draw(s.cfg.BackoffMin, s.cfg.BackoffMax)
			metrics.ObserveBackoff(backoff)
			logger.Warn("transient fetch failure, backing off",
				zap.String("postal_code", task.PostalCode),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			if !s.sleep(ctx, backoff) {
				return metrics.OutcomeFailed
			}

		default:
			logger.Error("unclassified fetch failure, dropping task",
				zap.String("postal_code", task.PostalCode),
				zap.Error(err),
			)
			return metrics.OutcomeFailed
		}
	}
	return metrics.OutcomeFailed
}

func (s *Scheduler) settle(logger *zap.Logger, task availability.Task, raw []byte) string {
	rec, err := s.transformer.Transform(raw, task)
	if err != nil {
		if errors.Is(err, transform.ErrMalformedPayload) {
			logger.Error("response body unparseable, dropping task",
				zap.String("postal_code", task.PostalCode),
				zap.Error(err),
			)
			return metrics.OutcomeMalformed
		}
		logger.Error("transform failed, dropping task",
			zap.String("postal_code", task.PostalCode),
			zap.Error(err),
		)
		return metrics.OutcomeFailed
	}
	return s.writeRecord(logger, task, rec)
}

func (s *Scheduler) writeRecord(logger *zap.Logger, task availability.Task, rec availability.Record) string {
	if err := s.sink.Append(rec); err != nil {
		logger.Error("ledger append failed",
			zap.String("postal_code", task.PostalCode),
			zap.Error(err),
		)
		return metrics.OutcomeFailed
	}
	metrics.ObserveRowWritten()
	logger.Info("row written",
		zap.String("postal_code", task.PostalCode),
		zap.String("delivery", rec.Delivery),
		zap.String("pickup", rec.Pickup),
	)
	return metrics.OutcomeWritten
}

type summaryCounter struct {
	mu  sync.Mutex
	sum Summary
}

func (c *summaryCounter) written()   { c.mu.Lock(); c.sum.Written++; c.mu.Unlock() }
func (c *summaryCounter) malformed() { c.mu.Lock(); c.sum.Malformed++; c.mu.Unlock() }
func (c *summaryCounter) failed()    { c.mu.Lock(); c.sum.Failed++; c.mu.Unlock() }

func (c *summaryCounter) snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sum
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
