/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/suparena/trastore/registry"
	"github.com/suparena/trastore/router"
	"github.com/suparena/trastore/storagemodels"
)

// Stream runs a query in the background and delivers its items on a buffered channel.
// A page failure is delivered as a final result with Error set. The channel is closed
// when the query is exhausted, MaxItems is reached or ctx is cancelled.
func (e *Executor) Stream(ctx context.Context, operation, hash string, routeOpts []router.Option, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Item] {
	return stream(ctx, e, operation, hash, routeOpts, opts, func(item storagemodels.Item) (storagemodels.Item, error) {
		return item, nil
	})
}

// StreamAs is Stream with every item decoded into T. Items are decoded by the decoder
// registered for their entity_type, falling back to attributevalue.UnmarshalMap.
// Undecodable items are passed to the ErrorHandler; without one they stop the stream.
func StreamAs[T any](ctx context.Context, e *Executor, operation, hash string, routeOpts []router.Option, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	return stream(ctx, e, operation, hash, routeOpts, opts, decodeAs[T])
}

func decodeAs[T any](item storagemodels.Item) (T, error) {
	var result T
	if obj, err := registry.Decode(item); err == nil {
		if typed, ok := obj.(T); ok {
			return typed, nil
		}
		if typed, ok := obj.(*T); ok && typed != nil {
			return *typed, nil
		}
	}
	if err := attributevalue.UnmarshalMap(item, &result); err != nil {
		return result, fmt.Errorf("failed to decode item into %T: %w", result, err)
	}
	return result, nil
}

func stream[T any](
	ctx context.Context,
	e *Executor,
	operation, hash string,
	routeOpts []router.Option,
	streamOpts []storagemodels.StreamOption,
	decode func(storagemodels.Item) (T, error),
) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range streamOpts {
		opt(&options)
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)

	routed := router.NewOptions(routeOpts...)
	if routed.Limit == 0 && options.PageSize > 0 {
		routeOpts = append(append([]router.Option(nil), routeOpts...), router.WithLimit(options.PageSize))
	}
	it := e.Iterate(operation, hash, routeOpts...).Limit(options.MaxItems)

	go streamWorker(ctx, it, options, decode, resultCh, e.logger)
	return resultCh
}

func streamWorker[T any](
	ctx context.Context,
	it *Iterator,
	options storagemodels.StreamOptions,
	decode func(storagemodels.Item) (T, error),
	resultCh chan<- storagemodels.StreamResult[T],
	logger *zap.Logger,
) {
	defer close(resultCh)

	startTime := time.Now()
	var index int64
	var errs []error
	lastPage := 0

	reportProgress := func() {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: index,
			PagesProcessed: it.Pages(),
			Cursor:         it.Cursor(),
			Errors:         errs,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(r storagemodels.StreamResult[T]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- r:
			return true
		}
	}

	for it.Next(ctx) {
		newPage := it.Pages() != lastPage && lastPage != 0
		lastPage = it.Pages()

		raw := it.Item()
		meta := storagemodels.StreamMeta{
			Index:      index,
			PageNumber: it.Pages(),
			Timestamp:  time.Now(),
		}
		index++

		decoded, err := decode(raw)
		if err != nil {
			errs = append(errs, err)
			if options.ErrorHandler != nil && options.ErrorHandler(err) {
				continue
			}
			send(storagemodels.StreamResult[T]{Raw: raw, Error: err, Meta: meta})
			return
		}

		if !send(storagemodels.StreamResult[T]{Item: decoded, Raw: raw, Meta: meta}) {
			return
		}
		if newPage {
			reportProgress()
		}
	}

	if err := it.Err(); err != nil && ctx.Err() == nil {
		logger.Warn("stream stopped", zap.String("operation", it.operation), zap.Error(err))
		send(storagemodels.StreamResult[T]{
			Error: fmt.Errorf("query failed: %w", err),
			Meta: storagemodels.StreamMeta{
				Index:      index,
				PageNumber: it.Pages(),
				Timestamp:  time.Now(),
			},
		})
		return
	}

	reportProgress()
}
