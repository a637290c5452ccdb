/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package resilience

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/metrics"
)

// Config holds retry and circuit-breaker configuration.
//
// Backoff strategy:
//   - Exponential: delay grows by BackoffFactor after each attempt
//   - Capped: no delay exceeds MaxDelay
//   - Jitter: each delay moves randomly by up to JitterFactor of itself
type Config struct {
	MaxAttempts   int           // Total attempts, the first one included
	InitialDelay  time.Duration // Delay before the first retry
	MaxDelay      time.Duration // Maximum delay between retries
	BackoffFactor float64       // Exponential backoff multiplier
	JitterFactor  float64       // Random jitter factor (0.0 to 1.0)

	BreakerName         string
	BreakerFailureRatio float64       // Trip when this share of requests failed
	BreakerMinRequests  uint32        // ...and at least this many were made
	BreakerInterval     time.Duration // Window after which closed-state counts reset
	BreakerTimeout      time.Duration // Open-state duration before probing
}

// DefaultConfig returns sensible defaults for DynamoDB calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:         4,
		InitialDelay:        50 * time.Millisecond,
		MaxDelay:            2 * time.Second,
		BackoffFactor:       2.0,
		JitterFactor:        0.2,
		BreakerName:         "dynamodb",
		BreakerFailureRatio: 0.6,
		BreakerMinRequests:  10,
		BreakerInterval:     30 * time.Second,
		BreakerTimeout:      15 * time.Second,
	}
}

// Retrier runs store calls with bounded exponential backoff behind a circuit breaker.
// Only throttling and transient unavailability are retried; when attempts run out the
// last error is surfaced as a StoreError.
type Retrier struct {
	config  Config
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	metrics *metrics.Collector

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retrier) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records attempts, outcomes and retries on collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(r *Retrier) {
		r.metrics = collector
	}
}

// New creates a Retrier.
func New(config Config, opts ...Option) *Retrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}

	r := &Retrier{
		config: config,
		logger: zap.NewNop(),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.BreakerName,
		MaxRequests: 1,
		Interval:    config.BreakerInterval,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if config.BreakerFailureRatio <= 0 || counts.Requests < config.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.BreakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Misses, schema violations and failed conditions say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.IsTransient(err)
		},
	})
	return r
}

// Do runs fn until it succeeds, fails permanently or attempts run out.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := r.run(ctx, operation, fn)
	r.metrics.Observe(operation, start, err)
	return err
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, r *Retrier, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// State reports the circuit breaker state.
func (r *Retrier) State() gobreaker.State {
	return r.breaker.State()
}

func (r *Retrier) run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.NewStoreError(operation, attempt-1, err)
		}

		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			err = errors.NewUnavailableError(operation, err)
		}

		if err == nil {
			if attempt > 1 {
				r.logger.Info("operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}
		if !errors.IsTransient(err) {
			return err
		}

		lastErr = err
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt - 1)
		r.metrics.RetryAttempt(operation)
		r.logger.Warn("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return errors.NewStoreError(operation, attempt, ctx.Err())
		}
	}

	r.logger.Error("operation failed after retries",
		zap.String("operation", operation),
		zap.Int("attempts", r.config.MaxAttempts),
		zap.Error(lastErr),
	)
	return errors.NewStoreError(operation, r.config.MaxAttempts, lastErr)
}

// delay calculates the wait before retry number attempt (0-based).
func (r *Retrier) delay(attempt int) time.Duration {
	baseDelay := float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt))
	if r.config.MaxDelay > 0 && baseDelay > float64(r.config.MaxDelay) {
		baseDelay = float64(r.config.MaxDelay)
	}

	r.randMu.Lock()
	jitter := r.config.JitterFactor * baseDelay * (r.rand.Float64()*2 - 1)
	r.randMu.Unlock()

	finalDelay := baseDelay + jitter
	if finalDelay < 0 {
		finalDelay = 0
	}
	return time.Duration(finalDelay)
}
