/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package models

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/suparena/trastore/registry"
	"github.com/suparena/trastore/storagemodels"
)

// Entity is a typed model stored under a schema kind.
type Entity interface {
	Kind() string
}

func init() {
	registry.RegisterDecoder("assessment", decodeAs[Assessment])
	registry.RegisterDecoder("document", decodeAs[Document])
	registry.RegisterDecoder("message", decodeAs[ChatMessage])
	registry.RegisterDecoder("event", decodeAs[Event])
	registry.RegisterDecoder("review", decodeAs[Event])

	registry.RegisterKind[Assessment](KindAssessment)
	registry.RegisterKind[Document](KindDocument)
	registry.RegisterKind[ChatMessage](KindMessage)
	registry.RegisterKind[Event](KindEvent)
}

func decodeAs[T any](item storagemodels.Item) (interface{}, error) {
	out := new(T)
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToItem marshals an entity into a write payload.
func ToItem(e interface{}) (storagemodels.Item, error) {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", e, err)
	}
	return item, nil
}

// FromItem decodes an item into T.
func FromItem[T any](item storagemodels.Item) (*T, error) {
	out := new(T)
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item into %T: %w", out, err)
	}
	return out, nil
}
