/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package keys

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/storagemodels"
)

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// numericWidth keeps non-negative integers lexically sortable inside key strings.
const numericWidth = 20

// Placeholders returns the attribute names referenced by a key template, in order.
func Placeholders(template string) []string {
	matches := macroPattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Expand substitutes every {attr} placeholder in template with the attribute's key form.
// It reports the first attribute that is absent or has no key form.
func Expand(template string, item storagemodels.Item) (string, string, bool) {
	missing := ""
	expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
		name := strings.Trim(macro, "{}")
		val, ok := Format(item[name])
		if !ok && missing == "" {
			missing = name
		}
		return val
	})
	if missing != "" {
		return "", missing, false
	}
	return expanded, "", true
}

// Format converts an attribute value into the string used inside keys. Absent values,
// NULL, empty strings, binaries and sets have no key form.
func Format(av types.AttributeValue) (string, bool) {
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, tv.Value != ""

	case *types.AttributeValueMemberN:
		if n, err := strconv.ParseInt(tv.Value, 10, 64); err == nil && n >= 0 {
			return fmt.Sprintf("%0*d", numericWidth, n), true
		}
		return tv.Value, tv.Value != ""

	case *types.AttributeValueMemberBOOL:
		return strconv.FormatBool(tv.Value), true

	default:
		return "", false
	}
}

// Schema is the part of the entity registry the builder needs.
type Schema interface {
	Definition() storagemodels.TableDefinition
	KeyTemplates(kind string) (partition, sort string, err error)
}

// IndexKey is an item's position in one secondary index.
type IndexKey struct {
	Index string
	Hash  string
	Range string
}

// Builder computes primary and index keys. It performs no I/O.
type Builder struct {
	schema Schema
	table  storagemodels.TableDefinition
}

// NewBuilder creates a builder over the given schema.
func NewBuilder(schema Schema) *Builder {
	return &Builder{schema: schema, table: schema.Definition()}
}

// PrimaryKey builds the (partition, sort) key of kind from the identifying attributes in ids.
func (b *Builder) PrimaryKey(kind string, ids storagemodels.Item) (storagemodels.Key, error) {
	pkTemplate, skTemplate, err := b.schema.KeyTemplates(kind)
	if err != nil {
		return storagemodels.Key{}, err
	}

	pk, missing, ok := Expand(pkTemplate, ids)
	if !ok {
		return storagemodels.Key{}, errors.NewSchemaViolation(kind, missing, "key attribute is missing")
	}
	sk, missing, ok := Expand(skTemplate, ids)
	if !ok {
		return storagemodels.Key{}, errors.NewSchemaViolation(kind, missing, "key attribute is missing")
	}
	return storagemodels.Key{PartitionKey: pk, SortKey: sk}, nil
}

// IndexKey returns the item's key in the named index. ok is false when the item lacks
// the hash or range attribute, in which case the item is absent from that index.
func (b *Builder) IndexKey(indexName string, item storagemodels.Item) (IndexKey, bool, error) {
	idx, found := b.table.Index(indexName)
	if !found {
		return IndexKey{}, false, fmt.Errorf("unknown index %q", indexName)
	}
	key, ok := indexKey(idx, item)
	return key, ok, nil
}

// IndexKeys returns the item's key in every index it participates in.
func (b *Builder) IndexKeys(item storagemodels.Item) []IndexKey {
	var out []IndexKey
	for _, idx := range b.table.Indexes {
		if key, ok := indexKey(idx, item); ok {
			out = append(out, key)
		}
	}
	return out
}

func indexKey(idx storagemodels.IndexDefinition, item storagemodels.Item) (IndexKey, bool) {
	hash, ok := Format(item[idx.HashAttribute])
	if !ok {
		return IndexKey{}, false
	}
	key := IndexKey{Index: idx.Name, Hash: hash}
	if idx.RangeAttribute != "" {
		rng, ok := Format(item[idx.RangeAttribute])
		if !ok {
			return IndexKey{}, false
		}
		key.Range = rng
	}
	return key, true
}
