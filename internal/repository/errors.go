// Package repository provides custom error types for repository operations
package repository

import (
	"errors"
	"fmt"
)

// Common repository errors
var (
	// ErrNotFound is returned when a requested resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateKey is returned when a unique constraint is violated
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConnection is returned when database connection fails
	ErrConnection = errors.New("database connection error")

	// ErrTransaction is returned when a transaction operation fails
	ErrTransaction = errors.New("transaction error")
)

// NotFoundError provides detailed information about missing resources
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DuplicateKeyError provides information about unique constraint violations
type DuplicateKeyError struct {
	Resource string
	Field    string
	Value    string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s with %s '%s' already exists", e.Resource, e.Field, e.Value)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// ValidationError provides detailed validation failure information
type ValidationError struct {
	Resource string
	Field    string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s - %s", e.Resource, e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewDuplicateKeyError creates a new DuplicateKeyError
func NewDuplicateKeyError(resource, field, value string) error {
	return &DuplicateKeyError{Resource: resource, Field: field, Value: value}
}

// NewValidationError creates a new ValidationError
func NewValidationError(resource, field, message string) error {
	return &ValidationError{Resource: resource, Field: field, Message: message}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey checks if an error is a duplicate key error
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
