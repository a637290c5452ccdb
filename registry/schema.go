/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/suparena/trastore/storagemodels"
)

//go:embed default_schema.yaml
var defaultSchema []byte

// Derivation operators.
const (
	OpConstant = "constant" // always set to Value
	OpCasefold = "casefold" // always set to the case-folded From attribute
	OpTemplate = "template" // always set to Value with {attr} placeholders expanded
	OpSwitch   = "switch"   // always set to Cases[From], or Default
	OpNow      = "now"      // set to the current timestamp when absent
	OpUUID     = "uuid"     // set to a random UUID when absent
	OpCopy     = "copy"     // set to the From attribute when absent
)

// FormatDateTime marks an attribute that must parse as an RFC 3339 date-time.
const FormatDateTime = "date-time"

// Schema is the declarative single-table layout.
type Schema struct {
	Table   TableSpec   `yaml:"table"`
	Indexes []IndexSpec `yaml:"indexes"`
	Kinds   []KindSpec  `yaml:"kinds"`
}

// TableSpec names the primary key attributes.
type TableSpec struct {
	PartitionKey string `yaml:"partition_key"`
	SortKey      string `yaml:"sort_key"`
}

// IndexSpec declares a secondary index over plain item attributes.
type IndexSpec struct {
	Name           string `yaml:"name"`
	HashAttribute  string `yaml:"hash"`
	RangeAttribute string `yaml:"range"`
	// TieBreak orders items that share a range value.
	TieBreak []string `yaml:"tie_break,omitempty"`
}

// KindSpec declares one entity kind.
type KindSpec struct {
	Name string `yaml:"name"`
	// EntityTypes lists every entity_type value items of this kind may carry.
	EntityTypes  []string          `yaml:"entity_types"`
	PartitionKey string            `yaml:"pk"`
	SortKey      string            `yaml:"sk"`
	IDs          []string          `yaml:"ids"`
	Required     []string          `yaml:"required"`
	Formats      map[string]string `yaml:"formats,omitempty"`
	Derive       []DerivedSpec     `yaml:"derive"`
	// Indexes the kind always participates in. Their key attributes must be required.
	Indexes []string `yaml:"indexes"`
	// SparseIndexes the kind joins only when the optional key attributes are set.
	SparseIndexes []string `yaml:"sparse_indexes,omitempty"`
}

// DerivedSpec computes one attribute during the write path.
type DerivedSpec struct {
	Attribute string            `yaml:"attribute"`
	Op        string            `yaml:"op"`
	Value     string            `yaml:"value,omitempty"`
	From      string            `yaml:"from,omitempty"`
	Cases     map[string]string `yaml:"cases,omitempty"`
	Default   string            `yaml:"default,omitempty"`
	// Immutable rejects a caller-supplied value that differs from the derived one.
	Immutable bool `yaml:"immutable,omitempty"`
}

// ParseSchema decodes and validates a YAML schema.
func ParseSchema(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchemaFile reads a schema from disk.
func LoadSchemaFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema %s: %w", path, err)
	}
	defer f.Close()
	return ParseSchema(f)
}

// DefaultSchema returns the embedded assessment/document/message/event layout.
func DefaultSchema() (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(defaultSchema, &s); err != nil {
		return nil, fmt.Errorf("failed to decode embedded schema: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Definition returns the physical layout consumed by the stores.
func (s *Schema) Definition() storagemodels.TableDefinition {
	def := storagemodels.TableDefinition{
		PartitionKeyAttribute: s.Table.PartitionKey,
		SortKeyAttribute:      s.Table.SortKey,
		Indexes:               make([]storagemodels.IndexDefinition, 0, len(s.Indexes)),
	}
	for _, idx := range s.Indexes {
		def.Indexes = append(def.Indexes, storagemodels.IndexDefinition{
			Name:           idx.Name,
			HashAttribute:  idx.HashAttribute,
			RangeAttribute: idx.RangeAttribute,
		})
	}
	return def
}

func (s *Schema) validate() error {
	if s.Table.PartitionKey == "" || s.Table.SortKey == "" {
		return fmt.Errorf("schema: table partition_key and sort_key are required")
	}

	indexes := make(map[string]IndexSpec, len(s.Indexes))
	for _, idx := range s.Indexes {
		if idx.Name == "" || idx.HashAttribute == "" {
			return fmt.Errorf("schema: index %q needs a name and a hash attribute", idx.Name)
		}
		if _, dup := indexes[idx.Name]; dup {
			return fmt.Errorf("schema: index %q declared twice", idx.Name)
		}
		indexes[idx.Name] = idx
	}

	seen := make(map[string]bool, len(s.Kinds))
	owners := make(map[string]string)
	for _, k := range s.Kinds {
		if k.Name == "" {
			return fmt.Errorf("schema: kind without a name")
		}
		if seen[k.Name] {
			return fmt.Errorf("schema: kind %q declared twice", k.Name)
		}
		seen[k.Name] = true

		if k.PartitionKey == "" || k.SortKey == "" {
			return fmt.Errorf("schema: kind %q needs pk and sk templates", k.Name)
		}
		if len(k.EntityTypes) == 0 {
			return fmt.Errorf("schema: kind %q declares no entity_types", k.Name)
		}
		for _, et := range k.EntityTypes {
			if other, taken := owners[et]; taken {
				return fmt.Errorf("schema: entity_type %q claimed by both %q and %q", et, other, k.Name)
			}
			owners[et] = k.Name
		}

		required := make(map[string]bool, len(k.Required))
		for _, attr := range k.Required {
			required[attr] = true
		}
		for _, id := range k.IDs {
			if !required[id] {
				return fmt.Errorf("schema: kind %q id attribute %q is not required", k.Name, id)
			}
		}

		for _, d := range k.Derive {
			if err := d.validate(k.Name); err != nil {
				return err
			}
		}

		for _, name := range k.Indexes {
			idx, ok := indexes[name]
			if !ok {
				return fmt.Errorf("schema: kind %q references unknown index %q", k.Name, name)
			}
			// Guaranteed membership means the key attributes can never be absent.
			for _, attr := range []string{idx.HashAttribute, idx.RangeAttribute} {
				if attr != "" && !required[attr] && !k.derives(attr) {
					return fmt.Errorf("schema: kind %q joins index %q but %q is neither required nor derived", k.Name, name, attr)
				}
			}
		}
		for _, name := range k.SparseIndexes {
			if _, ok := indexes[name]; !ok {
				return fmt.Errorf("schema: kind %q references unknown index %q", k.Name, name)
			}
		}
		for attr, format := range k.Formats {
			if format != FormatDateTime {
				return fmt.Errorf("schema: kind %q attribute %q has unsupported format %q", k.Name, attr, format)
			}
		}
	}
	return nil
}

func (k *KindSpec) derives(attr string) bool {
	for _, d := range k.Derive {
		if d.Attribute == attr {
			return true
		}
	}
	return false
}

func (d DerivedSpec) validate(kind string) error {
	if d.Attribute == "" {
		return fmt.Errorf("schema: kind %q has a derivation without an attribute", kind)
	}
	switch d.Op {
	case OpConstant, OpTemplate:
		if d.Value == "" {
			return fmt.Errorf("schema: kind %q derivation of %q needs a value", kind, d.Attribute)
		}
	case OpCasefold, OpCopy:
		if d.From == "" {
			return fmt.Errorf("schema: kind %q derivation of %q needs a source attribute", kind, d.Attribute)
		}
	case OpSwitch:
		if d.From == "" || d.Default == "" {
			return fmt.Errorf("schema: kind %q switch derivation of %q needs from and default", kind, d.Attribute)
		}
	case OpNow, OpUUID:
	default:
		return fmt.Errorf("schema: kind %q derivation of %q uses unknown op %q", kind, d.Attribute, d.Op)
	}
	return nil
}
