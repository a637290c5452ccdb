/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of the DataStore interface for testing.
//
// The mock keeps two views of the table: the base items, read by GetItem and base-table
// queries, and the index view, read by secondary-index queries. Writes reach the index
// view immediately unless manual propagation is enabled, in which case they become
// visible to index queries only after Propagate. That models the eventual consistency
// of secondary indexes.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/storagemodels"
)

// Operation names used for fault injection and call counting.
const (
	OpGetItem       = "GetItem"
	OpPutItem       = "PutItem"
	OpBatchPutItems = "BatchPutItems"
	OpDeleteItem    = "DeleteItem"
	OpQuery         = "Query"
	OpDescribe      = "Describe"
)

type fault struct {
	remaining  int
	err        error
	afterApply bool
}

// DataStore is a mock implementation of datastore.DataStore for testing
type DataStore struct {
	mu        sync.RWMutex
	name      string
	table     storagemodels.TableDefinition
	items     map[storagemodels.Key]storagemodels.Item
	indexView map[storagemodels.Key]storagemodels.Item

	manualPropagation bool
	faults            map[string]*fault
	unprocessed       int
	calls             map[string]int
	writes            int
}

// New creates an empty mock store for the given table layout
func New(table storagemodels.TableDefinition) *DataStore {
	return &DataStore{
		name:      "mock-table",
		table:     table,
		items:     make(map[storagemodels.Key]storagemodels.Item),
		indexView: make(map[storagemodels.Key]storagemodels.Item),
		faults:    make(map[string]*fault),
		calls:     make(map[string]int),
	}
}

// WithManualPropagation defers index visibility of writes until Propagate is called
func (m *DataStore) WithManualPropagation() *DataStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manualPropagation = true
	return m
}

// FailNext makes the next `times` calls of operation fail with err without applying them
func (m *DataStore) FailNext(operation string, times int, err error) *DataStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[operation] = &fault{remaining: times, err: err}
	return m
}

// FailNextAfterApply makes the next `times` calls of operation apply their write and then
// report err, like a request that committed but whose response was lost
func (m *DataStore) FailNextAfterApply(operation string, times int, err error) *DataStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[operation] = &fault{remaining: times, err: err, afterApply: true}
	return m
}

// WithUnprocessedOnce makes the next BatchPutItems call leave its last n items unprocessed
func (m *DataStore) WithUnprocessedOnce(n int) *DataStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unprocessed = n
	return m
}

// Propagate makes every base write visible to index queries
func (m *DataStore) Propagate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexView = make(map[storagemodels.Key]storagemodels.Item, len(m.items))
	for k, v := range m.items {
		m.indexView[k] = clone(v)
	}
}

// GetItem retrieves an item by primary key
func (m *DataStore) GetItem(ctx context.Context, key storagemodels.Key) (storagemodels.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f := m.begin(OpGetItem); f != nil {
		return nil, f.err
	}
	item, ok := m.items[key]
	if !ok {
		return nil, errors.NewNotFoundError("item", key.String())
	}
	return clone(item), nil
}

// PutItem stores a full item, enforcing the optional condition
func (m *DataStore) PutItem(ctx context.Context, item storagemodels.Item, cond *storagemodels.PutCondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.begin(OpPutItem)
	if f != nil && !f.afterApply {
		return f.err
	}

	key, err := m.validateItem(item)
	if err != nil {
		return err
	}
	if existing, ok := m.items[key]; ok && cond != nil {
		if v, isString := existing[cond.Attribute].(*types.AttributeValueMemberS); !isString || v.Value != cond.Value {
			return errors.NewConditionFailedError(OpPutItem, fmt.Sprintf("%s must equal %q", cond.Attribute, cond.Value))
		}
	}
	m.apply(key, item)

	if f != nil {
		return f.err
	}
	return nil
}

// BatchPutItems stores up to 25 items without conditions
func (m *DataStore) BatchPutItems(ctx context.Context, items []storagemodels.Item) ([]storagemodels.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f := m.begin(OpBatchPutItems); f != nil {
		return nil, f.err
	}
	if len(items) > 25 {
		return nil, errors.NewStoreError(OpBatchPutItems, 1, fmt.Errorf("batch of %d items exceeds 25", len(items)))
	}

	process := items
	var unprocessed []storagemodels.Item
	if m.unprocessed > 0 {
		cut := len(items) - m.unprocessed
		if cut < 0 {
			cut = 0
		}
		process, unprocessed = items[:cut], items[cut:]
		m.unprocessed = 0
	}

	for _, item := range process {
		key, err := m.validateItem(item)
		if err != nil {
			return nil, err
		}
		m.apply(key, item)
	}
	return unprocessed, nil
}

// DeleteItem removes an item; deleting a missing item is not an error
func (m *DataStore) DeleteItem(ctx context.Context, key storagemodels.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f := m.begin(OpDeleteItem); f != nil {
		return f.err
	}
	delete(m.items, key)
	if !m.manualPropagation {
		delete(m.indexView, key)
	}
	m.writes++
	return nil
}

// Query returns one page of the base table or a secondary index
func (m *DataStore) Query(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error) {
	m.mu.Lock()
	if f := m.begin(OpQuery); f != nil {
		m.mu.Unlock()
		return nil, f.err
	}
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	source := m.items
	rangeAttr := m.table.SortKeyAttribute
	hashAttr := m.table.PartitionKeyAttribute
	var idxHash, idxRange string
	if params.IndexName != "" {
		idx, ok := m.table.Index(params.IndexName)
		if !ok {
			return nil, errors.NewStoreError(OpQuery, 1, fmt.Errorf("index %q does not exist", params.IndexName))
		}
		source = m.indexView
		hashAttr, rangeAttr = idx.HashAttribute, idx.RangeAttribute
		idxHash, idxRange = idx.HashAttribute, idx.RangeAttribute
	}
	if params.HashAttribute != hashAttr {
		return nil, errors.NewStoreError(OpQuery, 1, fmt.Errorf("query key %q does not match hash key %q", params.HashAttribute, hashAttr))
	}
	if params.Range != nil && params.RangeAttribute != rangeAttr {
		return nil, errors.NewStoreError(OpQuery, 1, fmt.Errorf("range condition on %q does not match range key %q", params.RangeAttribute, rangeAttr))
	}

	var matched []storagemodels.Item
	for _, item := range source {
		h, ok := scalar(item[hashAttr])
		if !ok || h != params.HashValue {
			continue
		}
		if rangeAttr != "" {
			if _, ok := scalar(item[rangeAttr]); !ok {
				continue
			}
		}
		if params.Range != nil && !matchRange(item[rangeAttr], params.Range) {
			continue
		}
		matched = append(matched, item)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return m.less(matched[i], matched[j], rangeAttr)
	})
	if params.Descending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		for start < len(matched) {
			c := m.compare(matched[start], params.ExclusiveStartKey, rangeAttr)
			if params.Descending {
				c = -c
			}
			if c > 0 {
				break
			}
			start++
		}
	}
	matched = matched[start:]

	page := &storagemodels.QueryPage{}
	limit := len(matched)
	if params.Limit > 0 && int(params.Limit) < limit {
		limit = int(params.Limit)
	}
	for _, item := range matched[:limit] {
		page.Items = append(page.Items, clone(item))
	}
	if limit < len(matched) && limit > 0 {
		last := matched[limit-1]
		lek := storagemodels.Item{
			m.table.PartitionKeyAttribute: last[m.table.PartitionKeyAttribute],
			m.table.SortKeyAttribute:      last[m.table.SortKeyAttribute],
		}
		if idxHash != "" {
			lek[idxHash] = last[idxHash]
		}
		if idxRange != "" {
			lek[idxRange] = last[idxRange]
		}
		page.LastEvaluatedKey = lek
	}
	return page, nil
}

// Describe reports the mock table as active
func (m *DataStore) Describe(ctx context.Context) (*storagemodels.TableDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f := m.begin(OpDescribe); f != nil {
		return nil, f.err
	}
	desc := &storagemodels.TableDescription{
		Name:      m.name,
		Status:    "ACTIVE",
		ItemCount: int64(len(m.items)),
		Indexes:   append([]storagemodels.IndexDefinition(nil), m.table.Indexes...),
	}
	return desc, nil
}

// Helper methods for testing

// Calls returns how many times operation was invoked, failed attempts included
func (m *DataStore) Calls(operation string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[operation]
}

// Writes returns the number of item writes and deletes that were applied
func (m *DataStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Count returns the number of stored items
func (m *DataStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Items returns a copy of every stored item
func (m *DataStore) Items() []storagemodels.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]storagemodels.Item, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, clone(v))
	}
	return out
}

// Clear removes all data and resets counters
func (m *DataStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[storagemodels.Key]storagemodels.Item)
	m.indexView = make(map[storagemodels.Key]storagemodels.Item)
	m.calls = make(map[string]int)
	m.faults = make(map[string]*fault)
	m.writes = 0
}

// begin counts the call and returns an injected fault, if one is armed. Callers hold m.mu.
func (m *DataStore) begin(operation string) *fault {
	m.calls[operation]++
	f, ok := m.faults[operation]
	if !ok || f.remaining <= 0 {
		return nil
	}
	f.remaining--
	return f
}

func (m *DataStore) apply(key storagemodels.Key, item storagemodels.Item) {
	m.items[key] = clone(item)
	if !m.manualPropagation {
		m.indexView[key] = clone(item)
	}
	m.writes++
}

// validateItem mirrors the store's own checks: string primary key attributes, and no
// empty or mistyped index key attributes.
func (m *DataStore) validateItem(item storagemodels.Item) (storagemodels.Key, error) {
	pk, ok := item[m.table.PartitionKeyAttribute].(*types.AttributeValueMemberS)
	if !ok || pk.Value == "" {
		return storagemodels.Key{}, errors.NewStoreError(OpPutItem, 1, fmt.Errorf("missing partition key %q", m.table.PartitionKeyAttribute))
	}
	sk, ok := item[m.table.SortKeyAttribute].(*types.AttributeValueMemberS)
	if !ok || sk.Value == "" {
		return storagemodels.Key{}, errors.NewStoreError(OpPutItem, 1, fmt.Errorf("missing sort key %q", m.table.SortKeyAttribute))
	}
	for _, idx := range m.table.Indexes {
		for _, attr := range []string{idx.HashAttribute, idx.RangeAttribute} {
			v, present := item[attr]
			if attr == "" || !present {
				continue
			}
			if s, isString := v.(*types.AttributeValueMemberS); !isString || s.Value == "" {
				return storagemodels.Key{}, errors.NewStoreError(OpPutItem, 1, fmt.Errorf("index key attribute %q of %s must be a non-empty string", attr, idx.Name))
			}
		}
	}
	return storagemodels.Key{PartitionKey: pk.Value, SortKey: sk.Value}, nil
}

// less orders by range key, then by primary key, giving items that share a range
// value a stable order.
func (m *DataStore) less(a, b storagemodels.Item, rangeAttr string) bool {
	return m.compare(a, b, rangeAttr) < 0
}

func (m *DataStore) compare(a, b storagemodels.Item, rangeAttr string) int {
	if rangeAttr != "" {
		if c := compareValues(a[rangeAttr], b[rangeAttr]); c != 0 {
			return c
		}
	}
	if c := compareValues(a[m.table.PartitionKeyAttribute], b[m.table.PartitionKeyAttribute]); c != 0 {
		return c
	}
	return compareValues(a[m.table.SortKeyAttribute], b[m.table.SortKeyAttribute])
}

func matchRange(av types.AttributeValue, cond *storagemodels.RangeCondition) bool {
	if len(cond.Values) < cond.Operator.Arity() {
		return false
	}
	v0 := &types.AttributeValueMemberS{Value: cond.Values[0]}
	switch cond.Operator {
	case storagemodels.RangeEquals:
		return compareValues(av, v0) == 0
	case storagemodels.RangeBeginsWith:
		s, ok := scalar(av)
		return ok && strings.HasPrefix(s, cond.Values[0])
	case storagemodels.RangeBetween:
		v1 := &types.AttributeValueMemberS{Value: cond.Values[1]}
		return compareValues(av, v0) >= 0 && compareValues(av, v1) <= 0
	case storagemodels.RangeGreaterThan:
		return compareValues(av, v0) > 0
	case storagemodels.RangeGreaterOrEqual:
		return compareValues(av, v0) >= 0
	case storagemodels.RangeLessThan:
		return compareValues(av, v0) < 0
	case storagemodels.RangeLessOrEqual:
		return compareValues(av, v0) <= 0
	}
	return false
}

// compareValues compares numerically when both sides parse as numbers, else lexically.
func compareValues(a, b types.AttributeValue) int {
	sa, _ := scalar(a)
	sb, _ := scalar(b)
	_, aNum := a.(*types.AttributeValueMemberN)
	_, bNum := b.(*types.AttributeValueMemberN)
	if aNum || bNum {
		fa, errA := strconv.ParseFloat(sa, 64)
		fb, errB := strconv.ParseFloat(sb, 64)
		if errA == nil && errB == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(sa, sb)
}

func scalar(av types.AttributeValue) (string, bool) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, true
	case *types.AttributeValueMemberN:
		return tv.Value, true
	}
	return "", false
}

func clone(item storagemodels.Item) storagemodels.Item {
	out := make(storagemodels.Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
