/*
Package ddb provides a DynamoDB implementation of the datastore.DataStore interface.

DynamodbDataStore targets a single table whose items are keyed by string pk/sk
attributes and indexed by sparse global secondary indexes:

  - GetItem is always strongly consistent; Query against a GSI is eventually consistent
  - PutItem optionally carries a condition that the item is new or owned by the same entity_type
  - BatchPutItems returns the items DynamoDB left unprocessed instead of retrying them
  - Query uses a key condition only; no filter expression is ever sent

SDK errors are classified into the trastore error taxonomy (condition failed,
throttled, unavailable, terminal store error). SDK-level retries are disabled by
NewDynamoDBClient; retry policy belongs to the resilience package.

VerifyIndexes compares the GSIs declared by the schema with the live table:

	store, err := ddb.NewFromSettings(ctx, settings, reg.Definition(), logger)
	if err != nil {
	    return err
	}
	if err := store.VerifyIndexes(ctx); err != nil {
	    logger.Warn("schema and table disagree", zap.Error(err))
	}
*/
package ddb
