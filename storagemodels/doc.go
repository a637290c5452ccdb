/*
Package storagemodels defines the data structures shared by the registry, the
key builder, the stores and the query executor.

Key Types:

Item and Key:
A raw item is a map of DynamoDB attribute values; Key is its composite primary key.

	key := storagemodels.Key{PartitionKey: "ASSESSMENT#a1", SortKey: "METADATA"}

QueryParams:
One index query, expressed as hash equality plus an optional range condition:

	params := &storagemodels.QueryParams{
	    IndexName:      "gsi4-state-updated",
	    HashAttribute:  "current_state",
	    HashValue:      "draft",
	    RangeAttribute: "updated_at",
	    Range: &storagemodels.RangeCondition{
	        Operator: storagemodels.RangeGreaterThan,
	        Values:   []string{"2025-01-01T00:00:00.000Z"},
	    },
	    Descending: true,
	    Limit:      25,
	}

Queries carry no filter expression: a need that cannot be expressed as a
key condition on one index is a missing index.

StreamResult:
Results from streaming operations with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The decoded item
	    Raw   Item       // Raw DynamoDB attributes
	    Error error      // Item-specific error, if any
	    Meta  StreamMeta // Metadata about this item
	}
*/
package storagemodels
