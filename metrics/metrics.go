/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics holds the Prometheus collectors for store operations.
package metrics

import (
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suparena/trastore/errors"
)

// Outcome labels.
const (
	OutcomeSuccess         = "success"
	OutcomeNotFound        = "not_found"
	OutcomeSchemaViolation = "schema_violation"
	OutcomeConditionFailed = "condition_failed"
	OutcomeThrottled       = "throttled"
	OutcomeUnavailable     = "unavailable"
	OutcomeError           = "error"
)

// Collector holds all store metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Retries    *prometheus.CounterVec
}

// NewCollector creates the collectors and registers them on reg. Collectors that are
// already registered are reused, so tests may build several collectors on one registry.
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of store operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Store operation duration in seconds, retries included",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_retries_total",
				Help:      "Total number of retried store attempts",
			},
			[]string{"operation"},
		),
	}

	if reg == nil {
		return c, nil
	}

	var err error
	if c.Operations, err = register(reg, c.Operations); err != nil {
		return nil, err
	}
	if c.Duration, err = register(reg, c.Duration); err != nil {
		return nil, err
	}
	if c.Retries, err = register(reg, c.Retries); err != nil {
		return nil, err
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe records one completed operation.
func (c *Collector) Observe(operation string, start time.Time, err error) {
	if c == nil {
		return
	}
	c.Operations.WithLabelValues(operation, Outcome(err)).Inc()
	c.Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RetryAttempt records one retry.
func (c *Collector) RetryAttempt(operation string) {
	if c == nil {
		return
	}
	c.Retries.WithLabelValues(operation).Inc()
}

// Outcome maps an error onto its outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.IsNotFound(err):
		return OutcomeNotFound
	case errors.IsSchemaViolation(err):
		return OutcomeSchemaViolation
	case errors.IsConditionFailed(err):
		return OutcomeConditionFailed
	case errors.IsStoreError(err):
		return OutcomeError
	case errors.IsThrottled(err):
		return OutcomeThrottled
	case errors.IsUnavailable(err):
		return OutcomeUnavailable
	}
	return OutcomeError
}
