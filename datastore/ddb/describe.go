/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/trastore/storagemodels"
)

// Describe reports table status and the GSIs DynamoDB knows about.
func (d *DynamodbDataStore) Describe(ctx context.Context) (*storagemodels.TableDescription, error) {
	out, err := d.client.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: &d.tableName})
	if err != nil {
		return nil, classify("DescribeTable", err)
	}
	if out.Table == nil {
		return nil, fmt.Errorf("DescribeTable returned no table for %s", d.tableName)
	}

	desc := &storagemodels.TableDescription{
		Name:   d.tableName,
		Status: string(out.Table.TableStatus),
	}
	if out.Table.ItemCount != nil {
		desc.ItemCount = *out.Table.ItemCount
	}
	for _, gsi := range out.Table.GlobalSecondaryIndexes {
		if gsi.IndexName == nil {
			continue
		}
		def := storagemodels.IndexDefinition{Name: *gsi.IndexName}
		def.HashAttribute, def.RangeAttribute = keySchemaAttributes(gsi.KeySchema)
		desc.Indexes = append(desc.Indexes, def)
	}
	return desc, nil
}

func keySchemaAttributes(schema []types.KeySchemaElement) (hash, rng string) {
	for _, el := range schema {
		if el.AttributeName == nil {
			continue
		}
		switch el.KeyType {
		case types.KeyTypeHash:
			hash = *el.AttributeName
		case types.KeyTypeRange:
			rng = *el.AttributeName
		}
	}
	return hash, rng
}

// IndexMismatch describes one declared index that the live table does not match.
type IndexMismatch struct {
	Index    string
	Expected storagemodels.IndexDefinition
	Actual   *storagemodels.IndexDefinition
}

func (m IndexMismatch) String() string {
	if m.Actual == nil {
		return fmt.Sprintf("%s: missing (want %s/%s)", m.Index, m.Expected.HashAttribute, m.Expected.RangeAttribute)
	}
	return fmt.Sprintf("%s: have %s/%s, want %s/%s", m.Index,
		m.Actual.HashAttribute, m.Actual.RangeAttribute,
		m.Expected.HashAttribute, m.Expected.RangeAttribute)
}

// CompareIndexes checks declared indexes against a table description. Extra indexes on
// the table are ignored.
func CompareIndexes(declared []storagemodels.IndexDefinition, desc *storagemodels.TableDescription) []IndexMismatch {
	actual := make(map[string]storagemodels.IndexDefinition, len(desc.Indexes))
	for _, idx := range desc.Indexes {
		actual[idx.Name] = idx
	}

	var mismatches []IndexMismatch
	for _, want := range declared {
		have, ok := actual[want.Name]
		if !ok {
			mismatches = append(mismatches, IndexMismatch{Index: want.Name, Expected: want})
			continue
		}
		if have.HashAttribute != want.HashAttribute || have.RangeAttribute != want.RangeAttribute {
			h := have
			mismatches = append(mismatches, IndexMismatch{Index: want.Name, Expected: want, Actual: &h})
		}
	}
	return mismatches
}

// VerifyIndexes describes the table and fails when a declared index is missing or keyed
// on different attributes.
func (d *DynamodbDataStore) VerifyIndexes(ctx context.Context) error {
	desc, err := d.Describe(ctx)
	if err != nil {
		return err
	}
	mismatches := CompareIndexes(d.table.Indexes, desc)
	if len(mismatches) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		msgs = append(msgs, m.String())
	}
	d.logger.Warn("table indexes do not match schema",
		zap.String("table", d.tableName),
		zap.Strings("mismatches", msgs),
	)
	return fmt.Errorf("table %s index mismatch:\n- %s", d.tableName, strings.Join(msgs, "\n- "))
}
