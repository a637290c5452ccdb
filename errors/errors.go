/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a point lookup misses
	ErrNotFound = errors.New("item not found")

	// ErrSchemaViolation is returned when a payload lacks a required or derived attribute
	ErrSchemaViolation = errors.New("schema violation")

	// ErrInvalidInput is returned when query options or cursors fail validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrThrottled is returned when the store rejects a request for capacity reasons
	ErrThrottled = errors.New("store throttled")

	// ErrUnavailable is returned on transient store failures
	ErrUnavailable = errors.New("store unavailable")

	// ErrStore is the terminal store error surfaced after retries are exhausted
	ErrStore = errors.New("store error")

	// ErrUnknownOperation is returned when a named access pattern does not exist
	ErrUnknownOperation = errors.New("unknown access pattern")

	// ErrUnknownKind is returned when an entity kind has no schema
	ErrUnknownKind = errors.New("unknown entity kind")
)

// NotFoundError represents a point lookup miss
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// SchemaViolationError reports the attribute that made an entity un-writable
type SchemaViolationError struct {
	Kind      string
	Attribute string
	Message   string
}

func (e *SchemaViolationError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("schema violation for %s attribute %q: %s", e.Kind, e.Attribute, e.Message)
	}
	return fmt.Sprintf("schema violation for %s: %s", e.Kind, e.Message)
}

func (e *SchemaViolationError) Is(target error) bool {
	return target == ErrSchemaViolation
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// ThrottledError wraps a store capacity rejection
type ThrottledError struct {
	Operation string
	Err       error
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s throttled: %v", e.Operation, e.Err)
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

func (e *ThrottledError) Unwrap() error {
	return e.Err
}

// UnavailableError wraps a transient store failure
type UnavailableError struct {
	Operation string
	Err       error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Operation, e.Err)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// StoreError is terminal: either the store failed permanently or retries ran out.
type StoreError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *StoreError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// UnknownOperationError names the access pattern that was requested
type UnknownOperationError struct {
	Operation string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown access pattern %q", e.Operation)
}

func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// UnknownKindError names the entity kind that has no schema
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown entity kind %q", e.Kind)
}

func (e *UnknownKindError) Is(target error) bool {
	return target == ErrUnknownKind
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// NewSchemaViolation creates a new SchemaViolationError
func NewSchemaViolation(kind, attribute, message string) error {
	return &SchemaViolationError{Kind: kind, Attribute: attribute, Message: message}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewThrottledError creates a new ThrottledError
func NewThrottledError(operation string, err error) error {
	return &ThrottledError{Operation: operation, Err: err}
}

// NewUnavailableError creates a new UnavailableError
func NewUnavailableError(operation string, err error) error {
	return &UnavailableError{Operation: operation, Err: err}
}

// NewStoreError creates a new StoreError
func NewStoreError(operation string, attempts int, err error) error {
	return &StoreError{Operation: operation, Attempts: attempts, Err: err}
}

// NewUnknownOperationError creates a new UnknownOperationError
func NewUnknownOperationError(operation string) error {
	return &UnknownOperationError{Operation: operation}
}

// NewUnknownKindError creates a new UnknownKindError
func NewUnknownKindError(kind string) error {
	return &UnknownKindError{Kind: kind}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSchemaViolation checks if an error is a schema violation
func IsSchemaViolation(err error) bool {
	return errors.Is(err, ErrSchemaViolation)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsThrottled checks if an error is a throttling error
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsUnavailable checks if an error is a transient unavailability error
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsTransient reports whether a retry may succeed. A StoreError is terminal
// even when it wraps the transient error that exhausted the retries.
func IsTransient(err error) bool {
	if IsStoreError(err) {
		return false
	}
	return IsThrottled(err) || IsUnavailable(err)
}

// IsStoreError checks if an error is a terminal store error
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsUnknownOperation checks if an error names an unknown access pattern
func IsUnknownOperation(err error) bool {
	return errors.Is(err, ErrUnknownOperation)
}
