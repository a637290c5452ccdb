/*
Package datastore defines the store primitive the data-access layer is built on.

	type DataStore interface {
	    GetItem(ctx context.Context, key storagemodels.Key) (storagemodels.Item, error)
	    PutItem(ctx context.Context, item storagemodels.Item, cond *storagemodels.PutCondition) error
	    BatchPutItems(ctx context.Context, items []storagemodels.Item) ([]storagemodels.Item, error)
	    DeleteItem(ctx context.Context, key storagemodels.Key) error
	    Query(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error)
	    Describe(ctx context.Context) (*storagemodels.TableDescription, error)
	}

Implementations:
  - ddb: DynamoDB through the AWS SDK v2
  - mock: in-memory store with sparse indexes, manual index propagation and fault injection

Retries are not the store's concern; callers wrap store calls with the resilience package.
*/
package datastore
