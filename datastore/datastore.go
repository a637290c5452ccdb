/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/trastore/storagemodels"
)

// MaxBatchSize is the largest number of items one BatchPutItems call accepts.
const MaxBatchSize = 25

// DataStore is the key-value primitive the data-access layer is built on.
//
// Implementations classify failures with the errors package: a missing item is a
// NotFoundError, capacity rejections are ThrottledError, transient faults are
// UnavailableError and a failed put condition is ConditionFailedError. Anything else
// is a StoreError.
type DataStore interface {
	// GetItem is a strongly-consistent point read.
	GetItem(ctx context.Context, key storagemodels.Key) (storagemodels.Item, error)

	// PutItem writes a full item. A non-nil condition must hold or the write is rejected.
	PutItem(ctx context.Context, item storagemodels.Item, cond *storagemodels.PutCondition) error

	// BatchPutItems writes up to MaxBatchSize items without conditions and returns the
	// items the store did not process.
	BatchPutItems(ctx context.Context, items []storagemodels.Item) ([]storagemodels.Item, error)

	DeleteItem(ctx context.Context, key storagemodels.Key) error

	// Query reads one page from the base table or a secondary index. Index reads are
	// eventually consistent.
	Query(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error)

	// Describe reports table reachability and the indexes that exist.
	Describe(ctx context.Context) (*storagemodels.TableDescription, error)
}
