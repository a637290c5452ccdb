/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/storagemodels"
)

type cursorValue struct {
	S *string `json:"S,omitempty"`
	N *string `json:"N,omitempty"`
}

type cursorPayload struct {
	Operation string                 `json:"op"`
	Hash      string                 `json:"hash"`
	Key       map[string]cursorValue `json:"key"`
}

// EncodeCursor turns a store continuation key into an opaque token bound to one
// operation and hash value. An empty key encodes to "", meaning no more results.
func EncodeCursor(operation, hash string, key storagemodels.Item) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	p := cursorPayload{
		Operation: operation,
		Hash:      hash,
		Key:       make(map[string]cursorValue, len(key)),
	}
	for name, av := range key {
		switch tv := av.(type) {
		case *types.AttributeValueMemberS:
			v := tv.Value
			p.Key[name] = cursorValue{S: &v}
		case *types.AttributeValueMemberN:
			v := tv.Value
			p.Key[name] = cursorValue{N: &v}
		default:
			return "", fmt.Errorf("cursor key attribute %q has unsupported type %T", name, av)
		}
	}

	return p.encode()
}

// startCursor is a token that resumes a query from its first item.
func startCursor(operation, hash string) (string, error) {
	return cursorPayload{Operation: operation, Hash: hash}.encode()
}

func (p cursorPayload) encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor validates a token against the operation and hash it is being used with
// and returns the store key to resume from. An empty key resumes from the first item.
func DecodeCursor(cursor, operation, hash string) (storagemodels.Item, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, errors.NewValidationError("cursor", "cursor is not valid base64")
	}

	var p cursorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.NewValidationError("cursor", "cursor is malformed")
	}
	if p.Operation != operation || p.Hash != hash {
		return nil, errors.NewValidationError("cursor", "cursor belongs to a different query")
	}
	key := make(storagemodels.Item, len(p.Key))
	for name, v := range p.Key {
		switch {
		case v.S != nil && v.N == nil:
			key[name] = &types.AttributeValueMemberS{Value: *v.S}
		case v.N != nil && v.S == nil:
			key[name] = &types.AttributeValueMemberN{Value: *v.N}
		default:
			return nil, errors.NewValidationError("cursor", "cursor key "+name+" is malformed")
		}
	}
	return key, nil
}
