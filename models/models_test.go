/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package models

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/trastore/registry"
)

func TestAssessmentRoundTrip(t *testing.T) {
	in := Assessment{
		ID:           "a1",
		Title:        "Pump Station Risk",
		CurrentState: StateDraft,
		Answers:      map[string]interface{}{"q1": "yes"},
		CreatedAt:    "2025-06-01T12:00:00.000Z",
	}

	item, err := ToItem(in)
	if err != nil {
		t.Fatalf("ToItem failed: %v", err)
	}
	if _, ok := item["session_id"]; ok {
		t.Error("empty session_id should be omitted")
	}
	if _, ok := item["answers"].(*types.AttributeValueMemberM); !ok {
		t.Errorf("answers should be a map, got %T", item["answers"])
	}

	out, err := FromItem[Assessment](item)
	if err != nil {
		t.Fatalf("FromItem failed: %v", err)
	}
	if out.Title != in.Title || out.CurrentState != in.CurrentState || out.Answers["q1"] != "yes" {
		t.Errorf("round trip mismatch: %+v", out)
	}

	created, err := out.Created()
	if err != nil {
		t.Fatalf("Created failed: %v", err)
	}
	if !time.Time(created).Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected created time %v", created)
	}
}

func TestDecodersRegistered(t *testing.T) {
	tests := []struct {
		entityType string
		check      func(interface{}) bool
	}{
		{"assessment", func(v interface{}) bool { _, ok := v.(*Assessment); return ok }},
		{"document", func(v interface{}) bool { _, ok := v.(*Document); return ok }},
		{"message", func(v interface{}) bool { _, ok := v.(*ChatMessage); return ok }},
		{"event", func(v interface{}) bool { _, ok := v.(*Event); return ok }},
		{"review", func(v interface{}) bool { e, ok := v.(*Event); return ok && e.IsReview() }},
	}

	for _, tt := range tests {
		t.Run(tt.entityType, func(t *testing.T) {
			item := map[string]types.AttributeValue{
				"entity_type": &types.AttributeValueMemberS{Value: tt.entityType},
				"event_type":  &types.AttributeValueMemberS{Value: EventAssessmentReview},
			}
			obj, err := registry.Decode(item)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !tt.check(obj) {
				t.Errorf("unexpected decoded type %T", obj)
			}
		})
	}
}

func TestKindsRegistered(t *testing.T) {
	if k, ok := registry.KindOf[Assessment](); !ok || k != KindAssessment {
		t.Errorf("KindOf[Assessment] = %q, %v", k, ok)
	}
	if k, ok := registry.KindOf[Event](); !ok || k != KindEvent {
		t.Errorf("KindOf[Event] = %q, %v", k, ok)
	}
	if (ChatMessage{}).Kind() != KindMessage {
		t.Error("ChatMessage kind mismatch")
	}
}
