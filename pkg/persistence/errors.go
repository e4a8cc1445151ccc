// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTemplateNotFound indicates a template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrVariableNotFound indicates a variable was not found by the given identifier.
	ErrVariableNotFound = errors.New("variable not found")

	// ErrTemplateAlreadyExists indicates a template with the same identifier already exists.
	ErrTemplateAlreadyExists = errors.New("template already exists")
)

// StorageError wraps repository errors with operation context.
type StorageError struct {
	Op      string // Operation being performed (e.g., "TemplateByID", "SaveExecution")
	ID      string // Entity ID if applicable
	Err     error  // Underlying error
	Message string // Additional context message
}

func (e *StorageError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed for %s: %s (%v)", e.Op, e.ID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStorageError creates a storage error with context.
func NewStorageError(op, id string, err error) *StorageError {
	return &StorageError{Op: op, ID: id, Err: err}
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsVariableNotFound checks if an error indicates a variable was not found.
func IsVariableNotFound(err error) bool {
	return errors.Is(err, ErrVariableNotFound)
}
