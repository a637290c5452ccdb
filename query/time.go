/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/suparena/trastore/router"
	"github.com/suparena/trastore/storagemodels"
)

// Time range options for routes whose range key is a timestamp (updated_at,
// created_at). Timestamps are stored as UTC RFC 3339 strings with millisecond
// precision, so lexical comparison is chronological.

// Timestamp formats t the way timestamps are stored.
func Timestamp(t time.Time) string {
	return strfmt.DateTime(t.UTC()).String()
}

// Since matches range keys at or after t.
func Since(t time.Time) router.Option {
	return router.WithRange(storagemodels.RangeGreaterOrEqual, Timestamp(t))
}

// Until matches range keys at or before t.
func Until(t time.Time) router.Option {
	return router.WithRange(storagemodels.RangeLessOrEqual, Timestamp(t))
}

// Between matches range keys in [start, end].
func Between(start, end time.Time) router.Option {
	return router.WithBetween(Timestamp(start), Timestamp(end))
}

// InLastHours matches range keys within the last n hours.
func InLastHours(n int) router.Option {
	return Since(time.Now().Add(-time.Duration(n) * time.Hour))
}

// InLastDays matches range keys within the last n days.
func InLastDays(n int) router.Option {
	return Since(time.Now().AddDate(0, 0, -n))
}

// Today matches range keys since local midnight.
func Today() router.Option {
	now := time.Now()
	return Since(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))
}
