/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/storagemodels"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Default(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "a-generated" }),
	)
	require.NoError(t, err)
	return reg
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func str(t *testing.T, item storagemodels.Item, attr string) string {
	t.Helper()
	v, ok := item[attr].(*types.AttributeValueMemberS)
	require.Truef(t, ok, "attribute %q is not a string: %#v", attr, item[attr])
	return v.Value
}

func TestDefaultSchemaLoads(t *testing.T) {
	reg := newTestRegistry(t)

	assert.Equal(t, []string{"assessment", "document", "event", "message"}, reg.Kinds())

	def := reg.Definition()
	assert.Equal(t, "pk", def.PartitionKeyAttribute)
	assert.Equal(t, "sk", def.SortKeyAttribute)
	assert.Len(t, def.Indexes, 6)

	idx, ok := def.Index("gsi4-state-updated")
	require.True(t, ok)
	assert.Equal(t, "current_state", idx.HashAttribute)
	assert.Equal(t, "updated_at", idx.RangeAttribute)

	kind, ok := reg.KindForEntityType("review")
	require.True(t, ok)
	assert.Equal(t, "event", kind)
}

func TestRequiredAttributesFor(t *testing.T) {
	reg := newTestRegistry(t)

	attrs, err := reg.RequiredAttributesFor("assessment")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id", "title", "current_state", "created_at", "updated_at", "entity_type", "title_lowercase"}, attrs)

	// The returned slice is a copy.
	attrs[0] = "mutated"
	again, _ := reg.RequiredAttributesFor("assessment")
	assert.NotEqual(t, "mutated", again[0])

	_, err = reg.RequiredAttributesFor("widget")
	assert.ErrorIs(t, err, errors.ErrUnknownKind)
}

func TestDeriveAssessment(t *testing.T) {
	reg := newTestRegistry(t)
	payload := storagemodels.Item{
		"title":         s("Pump Station Risk"),
		"current_state": s("draft"),
	}

	item, err := reg.Prepare("assessment", payload)
	require.NoError(t, err)

	assert.Equal(t, "pump station risk", str(t, item, "title_lowercase"))
	assert.Equal(t, "assessment", str(t, item, "entity_type"))
	assert.Equal(t, "a-generated", str(t, item, "id"))
	assert.Equal(t, "2025-03-14T09:26:53.589Z", str(t, item, "created_at"))
	assert.Equal(t, "2025-03-14T09:26:53.589Z", str(t, item, "updated_at"))

	// Caller payload is untouched.
	assert.Len(t, payload, 2)
	assert.NotContains(t, payload, "title_lowercase")
}

func TestDeriveRecomputesStaleTitleLowercase(t *testing.T) {
	reg := newTestRegistry(t)
	item, err := reg.Prepare("assessment", storagemodels.Item{
		"id":              s("a1"),
		"title":           s("Straße Audit"),
		"title_lowercase": s("old title"),
		"current_state":   s("draft"),
	})
	require.NoError(t, err)
	assert.Equal(t, "strasse audit", str(t, item, "title_lowercase"))
	assert.Equal(t, "a1", str(t, item, "id"), "present ids are kept")
}

func TestDeriveKeepsCallerTimestamps(t *testing.T) {
	reg := newTestRegistry(t)
	item, err := reg.Prepare("assessment", storagemodels.Item{
		"title":         s("X"),
		"current_state": s("draft"),
		"created_at":    s("2024-01-01T00:00:00.000Z"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", str(t, item, "created_at"))
	assert.Equal(t, "2025-03-14T09:26:53.589Z", str(t, item, "updated_at"))
}

func TestDeriveDocumentIndexKeys(t *testing.T) {
	reg := newTestRegistry(t)
	item, err := reg.Prepare("document", storagemodels.Item{
		"doc_id":        s("d1"),
		"assessment_id": s("a1"),
		"session_id":    s(""),
	})
	require.NoError(t, err)

	assert.Equal(t, "ASSESSMENT#a1", str(t, item, "gsi1_pk"))
	assert.Equal(t, "DOC#d1", str(t, item, "gsi1_sk"))
	assert.Equal(t, str(t, item, "created_at"), str(t, item, "updated_at"))
	assert.NotContains(t, item, "session_id", "empty index key attributes are dropped")
}

func TestDeriveEventEntityType(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		eventType string
		expected  string
	}{
		{"assessment_review", "review"},
		{"state_changed", "event"},
		{"assessment_review_requested", "event"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			item, err := reg.Prepare("event", storagemodels.Item{
				"assessment_id": s("a1"),
				"event_type":    s(tt.eventType),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, str(t, item, "entity_type"))
			assert.Equal(t, "2025-03-14T09:26:53.589Z", str(t, item, "ts"))
		})
	}
}

func TestSchemaViolations(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		name      string
		kind      string
		payload   storagemodels.Item
		attribute string
	}{
		{
			name:      "assessment without current_state",
			kind:      "assessment",
			payload:   storagemodels.Item{"title": s("X")},
			attribute: "current_state",
		},
		{
			name:      "assessment without title",
			kind:      "assessment",
			payload:   storagemodels.Item{"current_state": s("draft")},
			attribute: "title",
		},
		{
			name:      "message without content",
			kind:      "message",
			payload:   storagemodels.Item{"session_id": s("s1"), "role": s("user")},
			attribute: "content",
		},
		{
			name:      "document without assessment",
			kind:      "document",
			payload:   storagemodels.Item{"doc_id": s("d1")},
			attribute: "assessment_id",
		},
		{
			name: "created_at not a date-time",
			kind: "assessment",
			payload: storagemodels.Item{
				"title": s("X"), "current_state": s("draft"), "created_at": s("yesterday"),
			},
			attribute: "created_at",
		},
		{
			name: "entity_type changed",
			kind: "assessment",
			payload: storagemodels.Item{
				"title": s("X"), "current_state": s("draft"), "entity_type": s("document"),
			},
			attribute: "entity_type",
		},
		{
			name: "review relabelled as event",
			kind: "event",
			payload: storagemodels.Item{
				"assessment_id": s("a1"), "event_type": s("assessment_review"), "entity_type": s("event"),
			},
			attribute: "entity_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Prepare(tt.kind, tt.payload)
			require.Error(t, err)
			assert.True(t, errors.IsSchemaViolation(err), "got %v", err)

			var sv *errors.SchemaViolationError
			require.ErrorAs(t, err, &sv)
			assert.Equal(t, tt.attribute, sv.Attribute)
			assert.Equal(t, tt.kind, sv.Kind)
		})
	}
}

func TestParseSchemaRejectsInvalidLayouts(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing table keys",
			yaml:    "table: {}\n",
			wantErr: "partition_key and sort_key",
		},
		{
			name: "unknown index",
			yaml: `
table: {partition_key: pk, sort_key: sk}
kinds:
  - {name: a, entity_types: [a], pk: "A#{id}", sk: M, ids: [id], required: [id], indexes: [nope]}
`,
			wantErr: `unknown index "nope"`,
		},
		{
			name: "guaranteed index on optional attribute",
			yaml: `
table: {partition_key: pk, sort_key: sk}
indexes:
  - {name: by-state, hash: state}
kinds:
  - {name: a, entity_types: [a], pk: "A#{id}", sk: M, ids: [id], required: [id], indexes: [by-state]}
`,
			wantErr: `"state" is neither required nor derived`,
		},
		{
			name: "unknown derivation op",
			yaml: `
table: {partition_key: pk, sort_key: sk}
kinds:
  - name: a
    entity_types: [a]
    pk: "A#{id}"
    sk: M
    required: [id]
    derive:
      - {attribute: id, op: random}
`,
			wantErr: `unknown op "random"`,
		},
		{
			name: "unknown field",
			yaml: `
table: {partition_key: pk, sort_key: sk, ttl: expires}
`,
			wantErr: "field ttl not found",
		},
		{
			name: "shared entity type",
			yaml: `
table: {partition_key: pk, sort_key: sk}
kinds:
  - {name: a, entity_types: [x], pk: "A", sk: M}
  - {name: b, entity_types: [x], pk: "B", sk: M}
`,
			wantErr: `entity_type "x" claimed by both`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecoderRegistry(t *testing.T) {
	type widget struct{ ID string }

	RegisterDecoder("test_widget", func(item storagemodels.Item) (interface{}, error) {
		return &widget{ID: item["id"].(*types.AttributeValueMemberS).Value}, nil
	})

	obj, err := Decode(storagemodels.Item{"entity_type": s("test_widget"), "id": s("w1")})
	require.NoError(t, err)
	assert.Equal(t, &widget{ID: "w1"}, obj)

	raw := storagemodels.Item{"entity_type": s("unregistered")}
	obj, err = Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, obj)

	_, err = Decode(storagemodels.Item{})
	assert.Error(t, err)

	assert.Panics(t, func() {
		RegisterDecoder("test_widget", func(storagemodels.Item) (interface{}, error) { return nil, nil })
	})
}

func TestKindRegistry(t *testing.T) {
	type gadget struct{}

	_, ok := KindOf[gadget]()
	assert.False(t, ok)

	RegisterKind[gadget]("gadget")
	kind, ok := KindOf[gadget]()
	require.True(t, ok)
	assert.Equal(t, "gadget", kind)
}
