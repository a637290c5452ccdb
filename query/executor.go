/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/suparena/trastore/datastore"
	"github.com/suparena/trastore/resilience"
	"github.com/suparena/trastore/router"
	"github.com/suparena/trastore/storagemodels"
)

// Page is one ordered page of results. An empty Cursor means the query is exhausted.
type Page struct {
	Items  []storagemodels.Item
	Cursor string

	// stored holds Items in the order the store returned them.
	stored []storagemodels.Item
}

// Executor runs routed queries against the store.
type Executor struct {
	router  *router.Router
	store   datastore.DataStore
	retrier *resilience.Retrier
	logger  *zap.Logger
}

// NewExecutor creates an Executor. A nil retrier gets the default policy.
func NewExecutor(r *router.Router, store datastore.DataStore, retrier *resilience.Retrier, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retrier == nil {
		retrier = resilience.New(resilience.DefaultConfig(), resilience.WithLogger(logger))
	}
	return &Executor{
		router:  r,
		store:   store,
		retrier: retrier,
		logger:  logger,
	}
}

// Router returns the executor's router.
func (e *Executor) Router() *router.Router {
	return e.router
}

// Page runs one page of a named access pattern.
func (e *Executor) Page(ctx context.Context, operation, hash string, opts ...router.Option) (*Page, error) {
	plan, err := e.router.Plan(operation, hash, opts...)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, plan)
}

func (e *Executor) run(ctx context.Context, plan *router.Plan) (*Page, error) {
	params := plan.Params
	if plan.Cursor != "" {
		key, err := DecodeCursor(plan.Cursor, plan.Operation, plan.Hash)
		if err != nil {
			return nil, err
		}
		if len(key) > 0 {
			params.ExclusiveStartKey = key
		}
	}

	out, err := resilience.Call(ctx, e.retrier, "Query", func(ctx context.Context) (*storagemodels.QueryPage, error) {
		return e.store.Query(ctx, &params)
	})
	if err != nil {
		return nil, err
	}

	stored := append([]storagemodels.Item(nil), out.Items...)
	orderTies(out.Items, plan.RangeKey, plan.TieBreak, params.Descending)

	cursor, err := EncodeCursor(plan.Operation, plan.Hash, out.LastEvaluatedKey)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("query page",
		zap.String("operation", plan.Operation),
		zap.String("index", params.IndexName),
		zap.Int("items", len(out.Items)),
		zap.Bool("more", cursor != ""),
	)
	return &Page{Items: out.Items, Cursor: cursor, stored: stored}, nil
}
