/*
Package resilience retries transient store failures.

	retrier := resilience.New(resilience.DefaultConfig(),
	    resilience.WithLogger(logger),
	    resilience.WithMetrics(collector),
	)
	err := retrier.Do(ctx, "PutItem", func(ctx context.Context) error {
	    return store.PutItem(ctx, item, cond)
	})

Throttled and Unavailable errors are retried with exponential backoff and
jitter up to Config.MaxAttempts; anything else returns immediately. When the
attempts are exhausted the caller receives a StoreError. A circuit breaker sits
in front of the store and fails fast while the store keeps reporting transient
errors; an open breaker counts as Unavailable.

Writes are full-item overwrites, so retrying a put that already committed
leaves exactly one item.
*/
package resilience
