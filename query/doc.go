/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package query executes routed index queries and paginates their results.

An Executor offers three ways to read a named access pattern:

  - Page returns one ordered page and an opaque cursor for the next one
  - Iterate returns a lazy, finite Iterator that follows cursors
  - Stream and StreamAs push items into a buffered channel from a goroutine

Cursors are base64url-encoded JSON holding the store's continuation key and the
operation and hash value they were minted for; a cursor presented to a different
query is rejected as invalid input.

Ordering follows the index's range key. Items sharing a range value are ordered
by the index's tie-break attributes within each page. Secondary indexes are
eventually consistent: a query may briefly return an item at its previous index
position after a write. Nothing here filters results in memory.

	it := exec.Iterate(router.AssessmentsByState, "draft", query.InLastDays(7))
	items, err := it.Limit(100).Collect(ctx)
*/
package query
