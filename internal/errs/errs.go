// Package errs defines the error taxonomy shared across the pipeline.
// Each category maps to a distinct caller-facing behavior: validation and
// not-found errors are caller-correctable, storage errors are server-side
// failures, capability errors are absorbed by the adapters and never reach
// a caller.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for the given field and constraint.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an identifier that does not resolve.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NewNotFound creates a NotFoundError for the given entity and identifier.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// StorageError reports a durable-write or read failure. Partial artifacts
// from the failed operation are rolled back before this propagates.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorage wraps err as a StorageError for operation op.
func NewStorage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// CapabilityError reports an upstream model/service failure. It never crosses
// an adapter boundary; adapters convert it into their documented fallback.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapability wraps err as a CapabilityError for the named capability.
func NewCapability(capability string, err error) *CapabilityError {
	return &CapabilityError{Capability: capability, Err: err}
}

// IsValidation returns true if err (or any error in its chain) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound returns true if err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStorage returns true if err (or any error in its chain) is a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsCapability returns true if err (or any error in its chain) is a CapabilityError.
func IsCapability(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}
