/*
Package errors provides the error taxonomy of the trastore data-access layer.

Errors fall into four groups:

	SchemaViolation     payload lacks a required or derived attribute; rejected
	                    before any store call and never retried
	NotFound            point lookup miss; a normal outcome, not an exception path
	Throttled/Unavailable
	                    transient store pressure; retried with backoff
	StoreError          terminal; surfaced once retries are exhausted or the
	                    store fails permanently

Usage:

	item, err := store.GetByID(ctx, "assessment", id)
	if errors.IsNotFound(err) {
	    // render an empty state
	}

	_, err = store.Put(ctx, "assessment", payload)
	if errors.IsSchemaViolation(err) {
	    // the payload is wrong; retrying will not help
	}

The typed errors implement Is so they match their sentinel through any amount
of fmt.Errorf("%w") wrapping. StoreError, ThrottledError and UnavailableError
also unwrap to their cause.
*/
package errors
