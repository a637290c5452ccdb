/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/trastore/errors"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector("trastore", reg)
	require.NoError(t, err)

	start := time.Now()
	c.Observe("PutItem", start, nil)
	c.Observe("PutItem", start, nil)
	c.Observe("GetItem", start, errors.NewNotFoundError("assessment", "a1"))
	c.RetryAttempt("PutItem")

	assert.Equal(t, 2.0, counterValue(t, c.Operations.WithLabelValues("PutItem", OutcomeSuccess)))
	assert.Equal(t, 1.0, counterValue(t, c.Operations.WithLabelValues("GetItem", OutcomeNotFound)))
	assert.Equal(t, 1.0, counterValue(t, c.Retries.WithLabelValues("PutItem")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["trastore_store_operations_total"])
	assert.True(t, names["trastore_store_operation_duration_seconds"])
	assert.True(t, names["trastore_store_retries_total"])
}

func TestCollectorReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector("trastore", reg)
	require.NoError(t, err)
	second, err := NewCollector("trastore", reg)
	require.NoError(t, err)

	second.RetryAttempt("Query")
	assert.Equal(t, 1.0, counterValue(t, first.Retries.WithLabelValues("Query")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.Observe("PutItem", time.Now(), nil)
		c.RetryAttempt("PutItem")
	})
}

func TestOutcome(t *testing.T) {
	cause := fmt.Errorf("boom")
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{errors.NewSchemaViolation("assessment", "title", "missing"), OutcomeSchemaViolation},
		{errors.NewConditionFailedError("PutItem", "entity_type"), OutcomeConditionFailed},
		{errors.NewThrottledError("PutItem", cause), OutcomeThrottled},
		{errors.NewUnavailableError("PutItem", cause), OutcomeUnavailable},
		{errors.NewStoreError("PutItem", 4, errors.NewThrottledError("PutItem", cause)), OutcomeError},
		{cause, OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "error %v", tt.err)
	}
}
