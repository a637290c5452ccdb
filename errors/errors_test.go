/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("assessment", "ASSESSMENT#a1|METADATA")

	expected := `assessment with key "ASSESSMENT#a1|METADATA" not found`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}

	if !IsNotFound(err) {
		t.Error("IsNotFound should return true for NotFoundError")
	}
}

func TestSchemaViolationError(t *testing.T) {
	tests := []struct {
		name      string
		attribute string
		expected  string
	}{
		{
			name:      "with attribute",
			attribute: "current_state",
			expected:  `schema violation for assessment attribute "current_state": required attribute is missing`,
		},
		{
			name:      "without attribute",
			attribute: "",
			expected:  "schema violation for assessment: required attribute is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSchemaViolation("assessment", tt.attribute, "required attribute is missing")

			if err.Error() != tt.expected {
				t.Errorf("Expected error message %q, got %q", tt.expected, err.Error())
			}
			if !IsSchemaViolation(err) {
				t.Error("IsSchemaViolation should return true for SchemaViolationError")
			}
			if IsTransient(err) {
				t.Error("schema violations must never be treated as transient")
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("cursor", "malformed")
	if err.Error() != `validation failed for field "cursor": malformed` {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !IsValidationError(err) {
		t.Error("IsValidationError should return true for ValidationError")
	}
}

func TestConditionFailedError(t *testing.T) {
	err := NewConditionFailedError("put", "entity_type is immutable")

	expected := "condition check failed for put operation: entity_type is immutable"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if !IsConditionFailed(err) {
		t.Error("IsConditionFailed should return true for ConditionFailedError")
	}
}

func TestTransientClassification(t *testing.T) {
	cause := fmt.Errorf("ProvisionedThroughputExceededException")

	throttled := NewThrottledError("PutItem", cause)
	if !IsThrottled(throttled) || !IsTransient(throttled) {
		t.Error("ThrottledError should be throttled and transient")
	}
	if !errors.Is(throttled, cause) {
		t.Error("ThrottledError should unwrap to its cause")
	}

	unavailable := NewUnavailableError("Query", cause)
	if !IsUnavailable(unavailable) || !IsTransient(unavailable) {
		t.Error("UnavailableError should be unavailable and transient")
	}

	exhausted := NewStoreError("PutItem", 4, throttled)
	if !IsStoreError(exhausted) {
		t.Error("StoreError should match ErrStore")
	}
	if IsTransient(exhausted) {
		t.Error("StoreError is terminal even when wrapping a transient cause")
	}
	if !IsThrottled(exhausted) {
		t.Error("StoreError should still expose the throttling cause")
	}
	if exhausted.Error() != "PutItem failed after 4 attempts: PutItem throttled: ProvisionedThroughputExceededException" {
		t.Errorf("unexpected message %q", exhausted.Error())
	}
}

func TestErrorWrapping(t *testing.T) {
	original := NewNotFoundError("message", "SESSION#s1|MESSAGE#1")
	wrapped := fmt.Errorf("get failed: %w", original)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("Wrapped NotFoundError should still match ErrNotFound")
	}

	op := fmt.Errorf("router: %w", NewUnknownOperationError("scanEverything"))
	if !IsUnknownOperation(op) {
		t.Error("IsUnknownOperation should work with wrapped errors")
	}
	if !errors.Is(NewUnknownKindError("widget"), ErrUnknownKind) {
		t.Error("UnknownKindError should match ErrUnknownKind")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrSchemaViolation,
		ErrInvalidInput,
		ErrConditionFailed,
		ErrThrottled,
		ErrUnavailable,
		ErrStore,
		ErrUnknownOperation,
		ErrUnknownKind,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("Sentinel errors should be distinct: %v matches %v", err1, err2)
			}
		}
	}
}
