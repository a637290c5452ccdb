/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a raw DynamoDB item: the fully-populated attribute map of one entity.
type Item = map[string]types.AttributeValue

// Key is the composite primary key of an item.
type Key struct {
	PartitionKey string
	SortKey      string
}

// String renders the key as "pk|sk", the form used in logs and not-found errors.
func (k Key) String() string {
	return k.PartitionKey + "|" + k.SortKey
}

// IndexDefinition describes one secondary index by the plain item attributes it is keyed on.
type IndexDefinition struct {
	Name           string
	HashAttribute  string
	RangeAttribute string
}

// TableDefinition describes the physical table layout shared by every entity kind.
type TableDefinition struct {
	PartitionKeyAttribute string
	SortKeyAttribute      string
	Indexes               []IndexDefinition
}

// Index looks up an index definition by name.
func (t TableDefinition) Index(name string) (IndexDefinition, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexDefinition{}, false
}

// KeyAttributes returns the primary key as an attribute map suitable for GetItem and as
// an ExclusiveStartKey component.
func (t TableDefinition) KeyAttributes(k Key) Item {
	return Item{
		t.PartitionKeyAttribute: &types.AttributeValueMemberS{Value: k.PartitionKey},
		t.SortKeyAttribute:      &types.AttributeValueMemberS{Value: k.SortKey},
	}
}

// RangeOperator is a key-condition operator applied to an index range key.
type RangeOperator string

const (
	RangeEquals         RangeOperator = "eq"
	RangeBeginsWith     RangeOperator = "begins_with"
	RangeBetween        RangeOperator = "between"
	RangeGreaterThan    RangeOperator = "gt"
	RangeGreaterOrEqual RangeOperator = "ge"
	RangeLessThan       RangeOperator = "lt"
	RangeLessOrEqual    RangeOperator = "le"
)

// RangeCondition is an optional key condition on the range attribute. Between takes two
// values; every other operator takes one.
type RangeCondition struct {
	Operator RangeOperator
	Values   []string
}

// Arity returns the number of values the operator expects.
func (o RangeOperator) Arity() int {
	switch o {
	case RangeBetween:
		return 2
	case RangeEquals, RangeBeginsWith, RangeGreaterThan, RangeGreaterOrEqual, RangeLessThan, RangeLessOrEqual:
		return 1
	default:
		return 0
	}
}

// QueryParams defines one index query: a hash equality plus an optional range condition.
// Queries never carry filter expressions; every access pattern is answered by its index.
type QueryParams struct {
	// IndexName is empty when querying the base table.
	IndexName      string
	HashAttribute  string
	HashValue      string
	RangeAttribute string
	Range          *RangeCondition
	// Limit caps the items evaluated for this page. Zero means the store default.
	Limit int32
	// Descending reverses range-key traversal.
	Descending bool
	// ExclusiveStartKey resumes a previous page.
	ExclusiveStartKey Item
}

// QueryPage is one page of query results.
type QueryPage struct {
	Items []Item
	// LastEvaluatedKey is empty when the query is exhausted.
	LastEvaluatedKey Item
}

// PutCondition guards a put: the item must be absent, or its Attribute must already equal Value.
type PutCondition struct {
	Attribute string
	Value     string
}

// TableDescription is the reachability report returned by a store health probe.
type TableDescription struct {
	Name      string
	Status    string
	ItemCount int64
	Indexes   []IndexDefinition
}
