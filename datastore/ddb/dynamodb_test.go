/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/storagemodels"
)

type fakeClient struct {
	getIn    *sdk.GetItemInput
	putIn    *sdk.PutItemInput
	batchIn  *sdk.BatchWriteItemInput
	deleteIn *sdk.DeleteItemInput
	queryIn  *sdk.QueryInput
	getOut   *sdk.GetItemOutput
	batchOut *sdk.BatchWriteItemOutput
	queryOut *sdk.QueryOutput
	describe *sdk.DescribeTableOutput
	err      error
}

func (f *fakeClient) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.getIn = in
	if f.err != nil {
		return nil, f.err
	}
	if f.getOut == nil {
		return &sdk.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.putIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) BatchWriteItem(_ context.Context, in *sdk.BatchWriteItemInput, _ ...func(*sdk.Options)) (*sdk.BatchWriteItemOutput, error) {
	f.batchIn = in
	if f.err != nil {
		return nil, f.err
	}
	if f.batchOut == nil {
		return &sdk.BatchWriteItemOutput{}, nil
	}
	return f.batchOut, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.deleteIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.queryIn = in
	if f.err != nil {
		return nil, f.err
	}
	if f.queryOut == nil {
		return &sdk.QueryOutput{}, nil
	}
	return f.queryOut, nil
}

func (f *fakeClient) DescribeTable(_ context.Context, _ *sdk.DescribeTableInput, _ ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.describe, nil
}

var testTable = storagemodels.TableDefinition{
	PartitionKeyAttribute: "pk",
	SortKeyAttribute:      "sk",
	Indexes: []storagemodels.IndexDefinition{
		{Name: "gsi1", HashAttribute: "gsi1_pk", RangeAttribute: "gsi1_sk"},
		{Name: "gsi4", HashAttribute: "current_state", RangeAttribute: "updated_at"},
	},
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func stringValue(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	sv, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok, "expected string attribute, got %T", av)
	return sv.Value
}

func newTestStore(client *fakeClient) *DynamodbDataStore {
	return New(client, "assessments", testTable, nil)
}

func TestGetItemUsesConsistentRead(t *testing.T) {
	client := &fakeClient{getOut: &sdk.GetItemOutput{Item: storagemodels.Item{"pk": s("ASSESSMENT#a1"), "sk": s("ASSESSMENT#a1")}}}
	store := newTestStore(client)

	item, err := store.GetItem(context.Background(), storagemodels.Key{PartitionKey: "ASSESSMENT#a1", SortKey: "ASSESSMENT#a1"})
	require.NoError(t, err)
	assert.Equal(t, "ASSESSMENT#a1", stringValue(t, item["pk"]))

	require.NotNil(t, client.getIn.ConsistentRead)
	assert.True(t, *client.getIn.ConsistentRead)
	assert.Equal(t, "assessments", aws.ToString(client.getIn.TableName))
	assert.Equal(t, "ASSESSMENT#a1", stringValue(t, client.getIn.Key["sk"]))
}

func TestGetItemMissing(t *testing.T) {
	store := newTestStore(&fakeClient{})
	_, err := store.GetItem(context.Background(), storagemodels.Key{PartitionKey: "x", SortKey: "y"})
	assert.True(t, errors.IsNotFound(err))
}

func TestPutItemCondition(t *testing.T) {
	client := &fakeClient{}
	store := newTestStore(client)

	item := storagemodels.Item{"pk": s("p"), "sk": s("s"), "entity_type": s("assessment")}
	err := store.PutItem(context.Background(), item, &storagemodels.PutCondition{Attribute: "entity_type", Value: "assessment"})
	require.NoError(t, err)

	in := client.putIn
	require.NotNil(t, in.ConditionExpression)
	assert.Contains(t, *in.ConditionExpression, "attribute_not_exists")
	assert.Contains(t, *in.ConditionExpression, "OR")

	var names []string
	for _, n := range in.ExpressionAttributeNames {
		names = append(names, n)
	}
	assert.ElementsMatch(t, []string{"pk", "entity_type"}, names)
	require.Len(t, in.ExpressionAttributeValues, 1)
	for _, v := range in.ExpressionAttributeValues {
		assert.Equal(t, "assessment", stringValue(t, v))
	}
}

func TestPutItemWithoutCondition(t *testing.T) {
	client := &fakeClient{}
	store := newTestStore(client)

	require.NoError(t, store.PutItem(context.Background(), storagemodels.Item{"pk": s("p"), "sk": s("s")}, nil))
	assert.Nil(t, client.putIn.ConditionExpression)
	assert.Empty(t, client.putIn.ExpressionAttributeNames)
}

func TestBatchPutReturnsUnprocessed(t *testing.T) {
	leftover := storagemodels.Item{"pk": s("p2"), "sk": s("s2")}
	client := &fakeClient{batchOut: &sdk.BatchWriteItemOutput{
		UnprocessedItems: map[string][]types.WriteRequest{
			"assessments": {{PutRequest: &types.PutRequest{Item: leftover}}},
		},
	}}
	store := newTestStore(client)

	items := []storagemodels.Item{
		{"pk": s("p1"), "sk": s("s1")},
		leftover,
	}
	unprocessed, err := store.BatchPutItems(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, unprocessed, 1)
	assert.Equal(t, "p2", stringValue(t, unprocessed[0]["pk"]))
	assert.Len(t, client.batchIn.RequestItems["assessments"], 2)
}

func TestBatchPutEmpty(t *testing.T) {
	client := &fakeClient{}
	unprocessed, err := newTestStore(client).BatchPutItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, unprocessed)
	assert.Nil(t, client.batchIn)
}

func TestDeleteItem(t *testing.T) {
	client := &fakeClient{}
	require.NoError(t, newTestStore(client).DeleteItem(context.Background(), storagemodels.Key{PartitionKey: "p", SortKey: "s"}))
	assert.Equal(t, "p", stringValue(t, client.deleteIn.Key["pk"]))
	assert.Equal(t, "s", stringValue(t, client.deleteIn.Key["sk"]))
}

func TestQueryInput(t *testing.T) {
	tests := []struct {
		name     string
		rng      *storagemodels.RangeCondition
		wantExpr string
		wantVals int
	}{
		{name: "hash only", wantExpr: "=", wantVals: 1},
		{name: "begins with", rng: &storagemodels.RangeCondition{Operator: storagemodels.RangeBeginsWith, Values: []string{"DOC#"}}, wantExpr: "begins_with", wantVals: 2},
		{name: "between", rng: &storagemodels.RangeCondition{Operator: storagemodels.RangeBetween, Values: []string{"a", "b"}}, wantExpr: "BETWEEN", wantVals: 3},
		{name: "greater than", rng: &storagemodels.RangeCondition{Operator: storagemodels.RangeGreaterThan, Values: []string{"2025"}}, wantExpr: ">", wantVals: 2},
		{name: "less or equal", rng: &storagemodels.RangeCondition{Operator: storagemodels.RangeLessOrEqual, Values: []string{"2025"}}, wantExpr: "<=", wantVals: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{}
			store := newTestStore(client)
			params := &storagemodels.QueryParams{
				IndexName:      "gsi1",
				HashAttribute:  "gsi1_pk",
				HashValue:      "ASSESSMENT#a1",
				RangeAttribute: "gsi1_sk",
				Range:          tt.rng,
				Limit:          10,
				Descending:     true,
			}
			_, err := store.Query(context.Background(), params)
			require.NoError(t, err)

			in := client.queryIn
			assert.Equal(t, "gsi1", aws.ToString(in.IndexName))
			assert.Contains(t, aws.ToString(in.KeyConditionExpression), tt.wantExpr)
			assert.Len(t, in.ExpressionAttributeValues, tt.wantVals)
			assert.Equal(t, int32(10), aws.ToInt32(in.Limit))
			assert.False(t, aws.ToBool(in.ScanIndexForward))
			assert.Nil(t, in.FilterExpression)
		})
	}
}

func TestQueryPassesCursor(t *testing.T) {
	last := storagemodels.Item{"pk": s("p9"), "sk": s("s9")}
	client := &fakeClient{queryOut: &sdk.QueryOutput{
		Items:            []map[string]types.AttributeValue{{"pk": s("p1")}},
		LastEvaluatedKey: last,
	}}
	store := newTestStore(client)

	start := storagemodels.Item{"pk": s("p0"), "sk": s("s0")}
	page, err := store.Query(context.Background(), &storagemodels.QueryParams{
		HashAttribute:     "pk",
		HashValue:         "p",
		ExclusiveStartKey: start,
	})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "p9", stringValue(t, page.LastEvaluatedKey["pk"]))
	assert.Equal(t, "p0", stringValue(t, client.queryIn.ExclusiveStartKey["pk"]))
	assert.Nil(t, client.queryIn.IndexName)
	assert.True(t, aws.ToBool(client.queryIn.ScanIndexForward))
}

func TestQueryRejectsBadRange(t *testing.T) {
	store := newTestStore(&fakeClient{})
	_, err := store.Query(context.Background(), &storagemodels.QueryParams{
		HashAttribute:  "pk",
		HashValue:      "p",
		RangeAttribute: "sk",
		Range:          &storagemodels.RangeCondition{Operator: storagemodels.RangeBetween, Values: []string{"a"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsStoreError(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"conditional check", &types.ConditionalCheckFailedException{Message: aws.String("nope")}, errors.IsConditionFailed},
		{"throughput", &types.ProvisionedThroughputExceededException{Message: aws.String("slow")}, errors.IsThrottled},
		{"request limit", &types.RequestLimitExceeded{Message: aws.String("slow")}, errors.IsThrottled},
		{"internal", &types.InternalServerError{Message: aws.String("boom")}, errors.IsUnavailable},
		{"throttling code", &smithy.GenericAPIError{Code: "ThrottlingException"}, errors.IsThrottled},
		{"server fault", &smithy.GenericAPIError{Code: "Whatever", Fault: smithy.FaultServer}, errors.IsUnavailable},
		{"validation", &smithy.GenericAPIError{Code: "ValidationException", Fault: smithy.FaultClient}, errors.IsStoreError},
		{"send failure", &smithyhttp.RequestSendError{Err: fmt.Errorf("connection reset")}, errors.IsUnavailable},
		{"cancelled", fmt.Errorf("wrapped: %w", context.Canceled), errors.IsStoreError},
		{"plain", stderrors.New("mystery"), errors.IsStoreError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("PutItem", tt.err)
			assert.True(t, tt.check(got), "unexpected classification: %v", got)
		})
	}

	assert.NoError(t, classify("PutItem", nil))
}

func TestDescribeAndVerifyIndexes(t *testing.T) {
	gsi := func(name, hash, rng string) types.GlobalSecondaryIndexDescription {
		return types.GlobalSecondaryIndexDescription{
			IndexName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(hash), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(rng), KeyType: types.KeyTypeRange},
			},
		}
	}

	client := &fakeClient{describe: &sdk.DescribeTableOutput{Table: &types.TableDescription{
		TableStatus: types.TableStatusActive,
		ItemCount:   aws.Int64(42),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndexDescription{
			gsi("gsi1", "gsi1_pk", "gsi1_sk"),
			gsi("gsi4", "current_state", "created_at"),
			gsi("legacy", "x", "y"),
		},
	}}}
	store := newTestStore(client)

	desc, err := store.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", desc.Status)
	assert.Equal(t, int64(42), desc.ItemCount)
	require.Len(t, desc.Indexes, 3)
	assert.Equal(t, "gsi1_pk", desc.Indexes[0].HashAttribute)

	mismatches := CompareIndexes(testTable.Indexes, desc)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "gsi4", mismatches[0].Index)
	assert.Equal(t, "gsi4: have current_state/created_at, want current_state/updated_at", mismatches[0].String())

	err = store.VerifyIndexes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gsi4")

	desc.Indexes = desc.Indexes[2:]
	mismatches = CompareIndexes(testTable.Indexes, desc)
	assert.Len(t, mismatches, 2)
	assert.Nil(t, mismatches[0].Actual)
}
