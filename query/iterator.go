/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/suparena/trastore/router"
	"github.com/suparena/trastore/storagemodels"
)

// Iterator walks every page of a query lazily. It is finite and cannot be restarted;
// resume a later query from Cursor instead.
//
//	it := exec.Iterate(router.MessagesAndDocsForSession, sessionID)
//	for it.Next(ctx) {
//	    handle(it.Item())
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
type Iterator struct {
	exec      *Executor
	operation string
	plan      *router.Plan
	err       error

	buf     []storagemodels.Item
	current storagemodels.Item
	cursor  string
	fetched bool
	done    bool
	max     int
	yielded int
	pages   int

	// start fetched the current page; stored and seen track which of its items, in
	// store order, have been yielded.
	start  string
	stored []storagemodels.Item
	seen   map[string]bool
}

// Iterate starts a lazy iteration; no store call is made until the first Next.
func (e *Executor) Iterate(operation, hash string, opts ...router.Option) *Iterator {
	plan, err := e.router.Plan(operation, hash, opts...)
	it := &Iterator{exec: e, operation: operation, plan: plan, err: err}
	if err == nil {
		it.cursor = plan.Cursor
	}
	return it
}

// Limit stops the iteration after n items. Zero means no limit.
func (it *Iterator) Limit(n int) *Iterator {
	it.max = n
	return it
}

// Next advances to the next item, fetching pages as needed.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.err != nil || it.done {
		return false
	}
	if it.max > 0 && it.yielded >= it.max {
		it.finish()
		return false
	}

	for len(it.buf) == 0 {
		if it.fetched && it.cursor == "" {
			it.finish()
			return false
		}
		if err := ctx.Err(); err != nil {
			it.err = err
			return false
		}

		plan := *it.plan
		plan.Cursor = it.cursor
		page, err := it.exec.run(ctx, &plan)
		if err != nil {
			it.err = err
			return false
		}
		it.fetched = true
		it.pages++
		it.start = it.cursor
		it.buf = page.Items
		it.stored = page.stored
		it.seen = make(map[string]bool, len(page.Items))
		it.cursor = page.Cursor
	}

	it.current = it.buf[0]
	it.buf = it.buf[1:]
	it.seen[it.identity(it.current)] = true
	it.yielded++
	return true
}

// Item returns the current item.
func (it *Iterator) Item() storagemodels.Item {
	return it.current
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Cursor resumes the query after the last item Next produced. It is empty once the
// query is exhausted. Inside a run of items sharing a range value, a resumed query
// may repeat items already produced but never skips one.
func (it *Iterator) Cursor() string {
	if it.done {
		return it.cursor
	}
	return it.position()
}

// Pages returns how many pages have been fetched.
func (it *Iterator) Pages() int {
	return it.pages
}

// Yielded returns how many items Next has produced.
func (it *Iterator) Yielded() int {
	return it.yielded
}

// Collect drains the iterator into a slice.
func (it *Iterator) Collect(ctx context.Context) ([]storagemodels.Item, error) {
	var items []storagemodels.Item
	for it.Next(ctx) {
		items = append(items, it.Item())
	}
	return items, it.Err()
}

func (it *Iterator) finish() {
	it.cursor = it.position()
	it.done = true
	it.buf = nil
	it.stored = nil
	it.current = nil
}

// position encodes where a resumed query should start. Once a page is drained that is
// the page's own continuation key. Mid-page it is the last item of the longest
// yielded run in store order, since the store resumes in that order and tie-break
// ordering may have produced items out of it.
func (it *Iterator) position() string {
	if len(it.buf) == 0 {
		return it.cursor
	}

	var resume storagemodels.Item
	for _, item := range it.stored {
		if !it.seen[it.identity(item)] {
			break
		}
		resume = item
	}
	if resume == nil {
		if it.start != "" {
			return it.start
		}
		cursor, _ := startCursor(it.plan.Operation, it.plan.Hash)
		return cursor
	}

	key := make(storagemodels.Item, len(it.plan.KeyAttributes))
	for _, name := range it.plan.KeyAttributes {
		if av, ok := resume[name]; ok {
			key[name] = av
		}
	}
	cursor, err := EncodeCursor(it.plan.Operation, it.plan.Hash, key)
	if err != nil {
		it.exec.logger.Warn("falling back to page start cursor",
			zap.String("operation", it.operation),
			zap.Error(err),
		)
		return it.start
	}
	return cursor
}

func (it *Iterator) identity(item storagemodels.Item) string {
	var id string
	for _, name := range it.plan.KeyAttributes[:2] {
		v, _ := scalar(item[name])
		id += v + "|"
	}
	return id
}
