package registry

import (
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/trastore/storagemodels"
)

// DecodeFunc turns a raw item into a typed entity.
type DecodeFunc func(item storagemodels.Item) (interface{}, error)

// decoders holds the mapping from an entity_type discriminator to its decode function.
var (
	decoders   = make(map[string]DecodeFunc)
	decodersMu sync.RWMutex
)

// RegisterDecoder registers a decode function for an entity_type value.
// It panics if one is already registered, to prevent accidental overrides.
func RegisterDecoder(entityType string, fn DecodeFunc) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	if _, exists := decoders[entityType]; exists {
		panic(fmt.Sprintf("type registry: decoder for entity_type %q already registered", entityType))
	}
	decoders[entityType] = fn
}

// GetDecoder returns the decode function registered for entityType.
func GetDecoder(entityType string) (DecodeFunc, error) {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	fn, ok := decoders[entityType]
	if !ok {
		return nil, fmt.Errorf("type registry: no decoder registered for entity_type %q", entityType)
	}
	return fn, nil
}

// Decode dispatches on the item's entity_type attribute. Items without a registered
// decoder are returned unchanged as raw items.
func Decode(item storagemodels.Item) (interface{}, error) {
	et, ok := item["entity_type"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("type registry: item has no entity_type attribute")
	}
	fn, err := GetDecoder(et.Value)
	if err != nil {
		return item, nil
	}
	obj, err := fn(item)
	if err != nil {
		return nil, fmt.Errorf("failed to decode item for entity_type %q: %w", et.Value, err)
	}
	return obj, nil
}
