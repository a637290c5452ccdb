/*
Package trastore is the data-access layer for technology risk assessments: one
DynamoDB table holding assessments, their documents, chat messages and lifecycle
events, with secondary indexes derived from plain item attributes so that every
read is an index query and never a scan.

The layer is split into small packages that the Store ties together:
  - registry: declarative schema (kinds, keys, required and derived attributes, indexes)
  - keys: pure primary and index key construction
  - writer: the single write path; derive, validate, one conditional put
  - router: named access patterns, each bound to exactly one index
  - query: pages with opaque cursors, lazy iterators and channel streams
  - resilience: bounded backoff with jitter behind a circuit breaker

Basic Usage:

	settings, _ := config.Load()
	store, _ := trastore.Open(ctx, settings)

	a, _ := store.CreateAssessment(ctx, models.Assessment{Title: "Payroll SaaS"})
	_, _ = store.TransitionState(ctx, a.ID, models.StateSubmitted, "alice")

	// Named access patterns
	page, _ := store.Query(ctx, router.AssessmentsByState, models.StateSubmitted,
		router.WithLimit(20))
	next, _ := store.Query(ctx, router.AssessmentsByState, models.StateSubmitted,
		router.WithLimit(20), router.WithCursor(page.Cursor))

	// Typed reads
	got, err := trastore.GetAs[models.Assessment](ctx, store, a.ID)
	if errors.IsNotFound(err) {
		// a normal outcome
	}

A miss is a NotFoundError, a payload missing a required attribute is a
SchemaViolationError returned before any store call, and throttling or transient
failures are retried before surfacing as a StoreError.
*/
package trastore
