/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/keys"
	"github.com/suparena/trastore/storagemodels"
)

// Registry is the entity schema registry: per kind, the required attributes, the
// derived attributes and the indexes the kind participates in.
type Registry struct {
	schema     *Schema
	kinds      map[string]*KindSpec
	indexes    map[string]*IndexSpec
	entityKind map[string]string
	keyAttrs   map[string]bool

	now   func() time.Time
	newID func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the timestamp source used by "now" derivations.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIDGenerator replaces the generator used by "uuid" derivations.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// New builds a registry from a validated schema.
func New(schema *Schema, opts ...Option) *Registry {
	r := &Registry{
		schema:     schema,
		kinds:      make(map[string]*KindSpec, len(schema.Kinds)),
		indexes:    make(map[string]*IndexSpec, len(schema.Indexes)),
		entityKind: make(map[string]string),
		keyAttrs:   make(map[string]bool),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for i := range schema.Kinds {
		k := &schema.Kinds[i]
		r.kinds[k.Name] = k
		for _, et := range k.EntityTypes {
			r.entityKind[et] = k.Name
		}
	}
	for i := range schema.Indexes {
		idx := &schema.Indexes[i]
		r.indexes[idx.Name] = idx
		r.keyAttrs[idx.HashAttribute] = true
		if idx.RangeAttribute != "" {
			r.keyAttrs[idx.RangeAttribute] = true
		}
	}
	r.keyAttrs[schema.Table.PartitionKey] = true
	r.keyAttrs[schema.Table.SortKey] = true

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default builds a registry over the embedded schema.
func Default(opts ...Option) (*Registry, error) {
	s, err := DefaultSchema()
	if err != nil {
		return nil, err
	}
	return New(s, opts...), nil
}

// Schema returns the underlying schema.
func (r *Registry) Schema() *Schema {
	return r.schema
}

// Definition returns the physical table layout.
func (r *Registry) Definition() storagemodels.TableDefinition {
	return r.schema.Definition()
}

// Kind returns the declaration of a kind.
func (r *Registry) Kind(name string) (*KindSpec, error) {
	k, ok := r.kinds[name]
	if !ok {
		return nil, errors.NewUnknownKindError(name)
	}
	return k, nil
}

// Kinds returns the declared kind names in sorted order.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Index returns the declaration of an index.
func (r *Registry) Index(name string) (*IndexSpec, error) {
	idx, ok := r.indexes[name]
	if !ok {
		return nil, errors.NewValidationError("index", "unknown index "+name)
	}
	return idx, nil
}

// KindForEntityType maps an entity_type discriminator back to its kind.
func (r *Registry) KindForEntityType(entityType string) (string, bool) {
	kind, ok := r.entityKind[entityType]
	return kind, ok
}

// KeyTemplates returns the primary key templates of a kind.
func (r *Registry) KeyTemplates(kind string) (string, string, error) {
	k, err := r.Kind(kind)
	if err != nil {
		return "", "", err
	}
	return k.PartitionKey, k.SortKey, nil
}

// RequiredAttributesFor returns the attributes that must be present after derivation.
func (r *Registry) RequiredAttributesFor(kind string) ([]string, error) {
	k, err := r.Kind(kind)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(k.Required))
	copy(out, k.Required)
	return out, nil
}

// IsIndexKeyAttribute reports whether any index or the primary key reads attr.
func (r *Registry) IsIndexKeyAttribute(attr string) bool {
	return r.keyAttrs[attr]
}

// DeriveAttributes returns a copy of payload with every derived attribute computed.
// The caller's map is never modified. Key attributes holding NULL or an empty string
// are dropped so the item stays out of indexes it cannot be keyed in.
func (r *Registry) DeriveAttributes(kind string, payload storagemodels.Item) (storagemodels.Item, error) {
	k, err := r.Kind(kind)
	if err != nil {
		return nil, err
	}

	item := make(storagemodels.Item, len(payload)+len(k.Derive))
	for name, v := range payload {
		if r.keyAttrs[name] && !present(v) {
			continue
		}
		item[name] = v
	}

	now := r.Timestamp()
	for _, d := range k.Derive {
		v, ok := r.derive(d, item, now)
		if !ok {
			continue
		}
		if existing, has := item[d.Attribute]; has && present(existing) {
			if d.Immutable && !sameString(existing, v) {
				return nil, errors.NewSchemaViolation(kind, d.Attribute, "attribute is immutable and does not match its derived value "+v)
			}
			if !overwrites(d.Op) {
				continue
			}
		}
		item[d.Attribute] = &types.AttributeValueMemberS{Value: v}
	}
	return item, nil
}

// Timestamp returns the registry clock's current time in stored date-time form.
func (r *Registry) Timestamp() string {
	return strfmt.DateTime(r.now().UTC()).String()
}

// Validate checks required attributes and formats of a derived item.
func (r *Registry) Validate(kind string, item storagemodels.Item) error {
	k, err := r.Kind(kind)
	if err != nil {
		return err
	}
	for _, attr := range k.Required {
		if !present(item[attr]) {
			return errors.NewSchemaViolation(kind, attr, "required attribute is missing")
		}
	}
	for attr, format := range k.Formats {
		v, ok := item[attr]
		if !ok {
			continue
		}
		s, isString := v.(*types.AttributeValueMemberS)
		if format == FormatDateTime && (!isString || !strfmt.IsDateTime(s.Value)) {
			return errors.NewSchemaViolation(kind, attr, "attribute is not a date-time")
		}
	}
	if et, ok := stringValue(item["entity_type"]); ok {
		if owner, known := r.entityKind[et]; known && owner != kind {
			return errors.NewSchemaViolation(kind, "entity_type", "entity_type "+et+" belongs to kind "+owner)
		}
	}
	for _, name := range k.Indexes {
		idx := r.indexes[name]
		if !present(item[idx.HashAttribute]) || (idx.RangeAttribute != "" && !present(item[idx.RangeAttribute])) {
			return errors.NewSchemaViolation(kind, idx.HashAttribute, "item would be missing from index "+name)
		}
	}
	return nil
}

// Prepare derives then validates.
func (r *Registry) Prepare(kind string, payload storagemodels.Item) (storagemodels.Item, error) {
	item, err := r.DeriveAttributes(kind, payload)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(kind, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Registry) derive(d DerivedSpec, item storagemodels.Item, now string) (string, bool) {
	switch d.Op {
	case OpConstant:
		return d.Value, true
	case OpCasefold:
		src, ok := stringValue(item[d.From])
		if !ok {
			return "", false
		}
		return cases.Fold().String(src), true
	case OpTemplate:
		v, _, ok := keys.Expand(d.Value, item)
		return v, ok
	case OpSwitch:
		src, _ := stringValue(item[d.From])
		if v, ok := d.Cases[src]; ok {
			return v, true
		}
		return d.Default, true
	case OpNow:
		return now, true
	case OpUUID:
		return r.newID(), true
	case OpCopy:
		return keys.Format(item[d.From])
	}
	return "", false
}

// overwrites reports whether an op recomputes the attribute even when the caller set it.
func overwrites(op string) bool {
	switch op {
	case OpConstant, OpCasefold, OpTemplate, OpSwitch:
		return true
	}
	return false
}

func present(av types.AttributeValue) bool {
	switch tv := av.(type) {
	case nil:
		return false
	case *types.AttributeValueMemberNULL:
		return false
	case *types.AttributeValueMemberS:
		return tv.Value != ""
	}
	return true
}

func stringValue(av types.AttributeValue) (string, bool) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok || s.Value == "" {
		return "", false
	}
	return s.Value, true
}

func sameString(av types.AttributeValue, want string) bool {
	got, ok := stringValue(av)
	return ok && got == want
}
