/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package writer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/trastore/datastore"
	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/keys"
	"github.com/suparena/trastore/registry"
	"github.com/suparena/trastore/resilience"
	"github.com/suparena/trastore/storagemodels"
)

const entityTypeAttribute = "entity_type"

// Result describes one written item.
type Result struct {
	Kind      string
	Key       storagemodels.Key
	Item      storagemodels.Item
	IndexKeys []keys.IndexKey
}

// Writer is the single write path: every item is derived, validated and keyed here
// before one full-item put. Index attributes are ordinary attributes of that item,
// so the store moves index entries atomically with the base write.
type Writer struct {
	registry *registry.Registry
	keys     *keys.Builder
	store    datastore.DataStore
	retrier  *resilience.Retrier
	table    storagemodels.TableDefinition
	logger   *zap.Logger
}

// New creates a Writer. A nil retrier gets the default policy.
func New(reg *registry.Registry, store datastore.DataStore, retrier *resilience.Retrier, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retrier == nil {
		retrier = resilience.New(resilience.DefaultConfig(), resilience.WithLogger(logger))
	}
	return &Writer{
		registry: reg,
		keys:     keys.NewBuilder(reg),
		store:    store,
		retrier:  retrier,
		table:    reg.Definition(),
		logger:   logger,
	}
}

// Put derives, validates and writes one entity. Schema violations are returned before
// any store call. The write is conditional on the item being new or already carrying
// the same entity_type, and is safe to retry because it overwrites the full item.
//
// A store failure returns the prepared Result with the error. The write may still
// have been applied, so a caller retrying should put res.Item, which carries every
// generated attribute, rather than the original payload.
func (w *Writer) Put(ctx context.Context, kind string, payload storagemodels.Item) (*Result, error) {
	res, err := w.Prepare(kind, payload)
	if err != nil {
		return nil, err
	}

	cond := &storagemodels.PutCondition{Attribute: entityTypeAttribute}
	cond.Value, _ = keys.Format(res.Item[entityTypeAttribute])

	err = w.retrier.Do(ctx, "PutItem", func(ctx context.Context) error {
		return w.store.PutItem(ctx, res.Item, cond)
	})
	if err != nil {
		if errors.IsConditionFailed(err) {
			w.logger.Warn("entity_type mismatch on existing item",
				zap.String("kind", kind),
				zap.String("key", res.Key.String()),
				zap.String("entity_type", cond.Value),
			)
		}
		return res, err
	}

	w.logger.Debug("item written",
		zap.String("kind", kind),
		zap.String("pk", res.Key.PartitionKey),
		zap.String("sk", res.Key.SortKey),
		zap.Strings("indexes", indexNames(res.IndexKeys)),
	)
	return res, nil
}

// Update applies changes to the stored item and writes it back through Put, so every
// derived attribute (title_lowercase included) is recomputed. updated_at is refreshed
// unless changes sets it. A NULL value removes the attribute. Changing entity_type or
// an identifying attribute is rejected; use Move for the latter.
func (w *Writer) Update(ctx context.Context, kind string, ids, changes storagemodels.Item) (*Result, error) {
	res, _, err := w.rewrite(ctx, kind, ids, changes, false)
	return res, err
}

// Move is Update for changes that alter the primary key. The item is written under
// its new key and then the old item is deleted. The two writes are not atomic; a
// failure between them leaves both copies, and repeating the Move converges.
func (w *Writer) Move(ctx context.Context, kind string, ids, changes storagemodels.Item) (*Result, error) {
	res, oldKey, err := w.rewrite(ctx, kind, ids, changes, true)
	if err != nil {
		return nil, err
	}
	if oldKey == res.Key {
		return res, nil
	}

	err = w.retrier.Do(ctx, "DeleteItem", func(ctx context.Context) error {
		return w.store.DeleteItem(ctx, oldKey)
	})
	if err != nil {
		return nil, fmt.Errorf("item written to %s but %s was not removed: %w", res.Key, oldKey, err)
	}
	w.logger.Debug("item moved",
		zap.String("kind", kind),
		zap.String("from", oldKey.String()),
		zap.String("to", res.Key.String()),
	)
	return res, nil
}

func (w *Writer) rewrite(ctx context.Context, kind string, ids, changes storagemodels.Item, allowMove bool) (*Result, storagemodels.Key, error) {
	oldKey, err := w.keys.PrimaryKey(kind, ids)
	if err != nil {
		return nil, storagemodels.Key{}, err
	}

	current, err := resilience.Call(ctx, w.retrier, "GetItem", func(ctx context.Context) (storagemodels.Item, error) {
		return w.store.GetItem(ctx, oldKey)
	})
	if err != nil {
		return nil, oldKey, err
	}

	if v, ok := changes[entityTypeAttribute]; ok {
		want, _ := keys.Format(v)
		have, _ := keys.Format(current[entityTypeAttribute])
		if want != have {
			return nil, oldKey, errors.NewSchemaViolation(kind, entityTypeAttribute, "entity_type is immutable")
		}
	}

	merged := make(storagemodels.Item, len(current)+len(changes))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range changes {
		if _, isNull := v.(*types.AttributeValueMemberNULL); isNull {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	delete(merged, w.table.PartitionKeyAttribute)
	delete(merged, w.table.SortKeyAttribute)
	if _, ok := changes["updated_at"]; !ok {
		merged["updated_at"] = &types.AttributeValueMemberS{Value: w.registry.Timestamp()}
	}

	if !allowMove {
		newKey, err := w.keys.PrimaryKey(kind, merged)
		if err != nil {
			return nil, oldKey, err
		}
		if newKey != oldKey {
			return nil, oldKey, errors.NewSchemaViolation(kind, "", "update changes the primary key from "+oldKey.String()+" to "+newKey.String())
		}
	}

	res, err := w.Put(ctx, kind, merged)
	return res, oldKey, err
}

// BatchPut validates every payload first and writes nothing if any fails. Valid items
// are written in chunks of datastore.MaxBatchSize; items the store leaves unprocessed
// are resubmitted with the retrier's backoff. Batch writes carry no condition.
func (w *Writer) BatchPut(ctx context.Context, kind string, payloads []storagemodels.Item) ([]*Result, error) {
	results := make([]*Result, 0, len(payloads))
	position := make(map[storagemodels.Key]int, len(payloads))
	for i, payload := range payloads {
		res, err := w.Prepare(kind, payload)
		if err != nil {
			return nil, fmt.Errorf("payload %d: %w", i, err)
		}
		// A batch may not contain the same key twice; the last payload wins.
		if at, dup := position[res.Key]; dup {
			results[at] = res
			continue
		}
		position[res.Key] = len(results)
		results = append(results, res)
	}

	for start := 0; start < len(results); start += datastore.MaxBatchSize {
		end := start + datastore.MaxBatchSize
		if end > len(results) {
			end = len(results)
		}
		pending := make([]storagemodels.Item, 0, end-start)
		for _, res := range results[start:end] {
			pending = append(pending, res.Item)
		}

		err := w.retrier.Do(ctx, "BatchWriteItem", func(ctx context.Context) error {
			unprocessed, err := w.store.BatchPutItems(ctx, pending)
			if err != nil {
				return err
			}
			if len(unprocessed) > 0 {
				pending = unprocessed
				return errors.NewThrottledError("BatchWriteItem", fmt.Errorf("%d items unprocessed", len(unprocessed)))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	w.logger.Debug("batch written", zap.String("kind", kind), zap.Int("items", len(results)))
	return results, nil
}

// prepare builds the complete item without touching the store.
// Prepare runs derivation and validation without writing. Putting the prepared item
// again derives nothing new, so repeated puts of it address the same key.
func (w *Writer) Prepare(kind string, payload storagemodels.Item) (*Result, error) {
	item, err := w.registry.Prepare(kind, payload)
	if err != nil {
		return nil, err
	}
	key, err := w.keys.PrimaryKey(kind, item)
	if err != nil {
		return nil, err
	}
	item[w.table.PartitionKeyAttribute] = &types.AttributeValueMemberS{Value: key.PartitionKey}
	item[w.table.SortKeyAttribute] = &types.AttributeValueMemberS{Value: key.SortKey}

	return &Result{
		Kind:      kind,
		Key:       key,
		Item:      item,
		IndexKeys: w.keys.IndexKeys(item),
	}, nil
}

func indexNames(idx []keys.IndexKey) []string {
	names := make([]string, 0, len(idx))
	for _, k := range idx {
		names = append(names, k.Index)
	}
	return names
}
