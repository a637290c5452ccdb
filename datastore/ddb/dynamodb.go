/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/trastore/config"
	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/storagemodels"
)

// API is the subset of the DynamoDB client used by DynamodbDataStore.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *sdk.BatchWriteItemInput, optFns ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
}

// DynamodbDataStore implements datastore.DataStore on one DynamoDB table.
type DynamodbDataStore struct {
	client    API
	tableName string
	table     storagemodels.TableDefinition
	logger    *zap.Logger
}

// New wraps an existing client.
func New(client API, tableName string, table storagemodels.TableDefinition, logger *zap.Logger) *DynamodbDataStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamodbDataStore{
		client:    client,
		tableName: tableName,
		table:     table,
		logger:    logger,
	}
}

// NewDynamoDBClient initializes a DynamoDB client from settings. SDK-level retries are
// disabled; the resilience package owns the retry policy.
func NewDynamoDBClient(ctx context.Context, s *config.Settings) (*sdk.Client, error) {
	cfg, err := config.AWSConfig(ctx, s)
	if err != nil {
		return nil, err
	}

	client := sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		o.RetryMaxAttempts = 1
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
	})
	return client, nil
}

// NewFromSettings constructs a DynamodbDataStore for the configured table.
func NewFromSettings(ctx context.Context, s *config.Settings, table storagemodels.TableDefinition, logger *zap.Logger) (*DynamodbDataStore, error) {
	client, err := NewDynamoDBClient(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	if logger != nil {
		logger.Info("DynamoDB client initialized",
			zap.String("table", s.TableName),
			zap.String("region", s.Region),
			zap.String("endpoint", s.Endpoint),
		)
	}
	return New(client, s.TableName, table, logger), nil
}

// GetItem performs a strongly-consistent read by primary key.
func (d *DynamodbDataStore) GetItem(ctx context.Context, key storagemodels.Key) (storagemodels.Item, error) {
	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      &d.tableName,
		Key:            d.table.KeyAttributes(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, errors.NewNotFoundError("item", key.String())
	}
	return out.Item, nil
}

// PutItem writes a full item. With a condition, the write only succeeds when the item
// is new or cond.Attribute already holds cond.Value.
func (d *DynamodbDataStore) PutItem(ctx context.Context, item storagemodels.Item, cond *storagemodels.PutCondition) error {
	input := &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      item,
	}

	if cond != nil {
		expr, err := putConditionExpression(d.table.PartitionKeyAttribute, cond)
		if err != nil {
			return errors.NewStoreError("PutItem", 1, err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := d.client.PutItem(ctx, input); err != nil {
		return classify("PutItem", err)
	}
	return nil
}

// BatchPutItems writes up to 25 items and returns those DynamoDB left unprocessed.
func (d *DynamodbDataStore) BatchPutItems(ctx context.Context, items []storagemodels.Item) ([]storagemodels.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	out, err := d.client.BatchWriteItem(ctx, &sdk.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{d.tableName: requests},
	})
	if err != nil {
		return nil, classify("BatchWriteItem", err)
	}

	var unprocessed []storagemodels.Item
	for _, req := range out.UnprocessedItems[d.tableName] {
		if req.PutRequest != nil {
			unprocessed = append(unprocessed, req.PutRequest.Item)
		}
	}
	if len(unprocessed) > 0 {
		d.logger.Debug("batch write left items unprocessed",
			zap.Int("submitted", len(items)),
			zap.Int("unprocessed", len(unprocessed)),
		)
	}
	return unprocessed, nil
}

// DeleteItem removes an item by primary key.
func (d *DynamodbDataStore) DeleteItem(ctx context.Context, key storagemodels.Key) error {
	_, err := d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: &d.tableName,
		Key:       d.table.KeyAttributes(key),
	})
	if err != nil {
		return classify("DeleteItem", err)
	}
	return nil
}

// Query reads one page using a key condition only.
func (d *DynamodbDataStore) Query(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error) {
	input, err := d.queryInput(params)
	if err != nil {
		return nil, errors.NewStoreError("Query", 1, err)
	}

	out, err := d.client.Query(ctx, input)
	if err != nil {
		return nil, classify("Query", err)
	}
	return &storagemodels.QueryPage{
		Items:            out.Items,
		LastEvaluatedKey: out.LastEvaluatedKey,
	}, nil
}

func (d *DynamodbDataStore) queryInput(params *storagemodels.QueryParams) (*sdk.QueryInput, error) {
	keyCond, err := keyConditionBuilder(params)
	if err != nil {
		return nil, err
	}
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build key condition: %w", err)
	}

	input := &sdk.QueryInput{
		TableName:                 &d.tableName,
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!params.Descending),
	}
	if params.IndexName != "" {
		input.IndexName = aws.String(params.IndexName)
	}
	if params.Limit > 0 {
		input.Limit = aws.Int32(params.Limit)
	}
	if len(params.ExclusiveStartKey) > 0 {
		input.ExclusiveStartKey = params.ExclusiveStartKey
	}
	return input, nil
}

func keyConditionBuilder(params *storagemodels.QueryParams) (expression.KeyConditionBuilder, error) {
	if params.HashAttribute == "" {
		return expression.KeyConditionBuilder{}, fmt.Errorf("query needs a hash attribute")
	}
	keyCond := expression.Key(params.HashAttribute).Equal(expression.Value(params.HashValue))

	rc := params.Range
	if rc == nil {
		return keyCond, nil
	}
	if params.RangeAttribute == "" {
		return expression.KeyConditionBuilder{}, fmt.Errorf("range condition without a range attribute")
	}
	if len(rc.Values) != rc.Operator.Arity() || rc.Operator.Arity() == 0 {
		return expression.KeyConditionBuilder{}, fmt.Errorf("range operator %q expects %d values, got %d", rc.Operator, rc.Operator.Arity(), len(rc.Values))
	}

	rk := expression.Key(params.RangeAttribute)
	var rangeCond expression.KeyConditionBuilder
	switch rc.Operator {
	case storagemodels.RangeEquals:
		rangeCond = rk.Equal(expression.Value(rc.Values[0]))
	case storagemodels.RangeBeginsWith:
		rangeCond = rk.BeginsWith(rc.Values[0])
	case storagemodels.RangeBetween:
		rangeCond = rk.Between(expression.Value(rc.Values[0]), expression.Value(rc.Values[1]))
	case storagemodels.RangeGreaterThan:
		rangeCond = rk.GreaterThan(expression.Value(rc.Values[0]))
	case storagemodels.RangeGreaterOrEqual:
		rangeCond = rk.GreaterThanEqual(expression.Value(rc.Values[0]))
	case storagemodels.RangeLessThan:
		rangeCond = rk.LessThan(expression.Value(rc.Values[0]))
	case storagemodels.RangeLessOrEqual:
		rangeCond = rk.LessThanEqual(expression.Value(rc.Values[0]))
	}
	return expression.KeyAnd(keyCond, rangeCond), nil
}

func putConditionExpression(partitionKey string, cond *storagemodels.PutCondition) (expression.Expression, error) {
	c := expression.AttributeNotExists(expression.Name(partitionKey)).
		Or(expression.Name(cond.Attribute).Equal(expression.Value(cond.Value)))
	expr, err := expression.NewBuilder().WithCondition(c).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build put condition: %w", err)
	}
	return expr, nil
}
