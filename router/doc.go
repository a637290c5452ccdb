/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package router maps named access patterns onto secondary-index queries.

Each Route is bound to exactly one index of the schema. A call names the
operation and a hash value; the router applies the route's hash transform
(case folding for titles, a key prefix for documents), folds the caller's range
options into a single key condition and picks the order:

	plan, err := r.Plan(router.AssessmentsByState, "draft",
	    router.WithLimit(20),
	    router.WithAfter("2025-06-01T00:00:00.000Z"),
	)

Unknown operations fail with an UnknownOperationError. A new access pattern is a
new index plus a new Route; it is never served by filtering a scan.
*/
package router
