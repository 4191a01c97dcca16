// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard error types that all implementations and the engine should use.
var (
	// ErrWorkflowNotFound indicates no definition exists for the identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowNotActive indicates the definition exists but is not executable.
	ErrWorkflowNotActive = errors.New("workflow not active")

	// ErrExecutionNotFound indicates no execution exists for the identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrVersionConflict indicates a conditional save lost against a
	// concurrent writer; nothing was written.
	ErrVersionConflict = errors.New("execution version conflict")

	// ErrInvalidExecutionState indicates the operation is illegal for the
	// execution's current status.
	ErrInvalidExecutionState = errors.New("invalid execution state")

	// ErrPermissionDenied indicates the security gate denied the tenant.
	ErrPermissionDenied = errors.New("permission denied")
)

// ExecutionError wraps execution-related errors with operation context.
type ExecutionError struct {
	Op          string // Operation being performed (e.g. "Start", "Resume", "Save")
	ExecutionID string
	Err         error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExecutionError creates an execution error with context.
func NewExecutionError(op, executionID string, err error) *ExecutionError {
	return &ExecutionError{
		Op:          op,
		ExecutionID: executionID,
		Err:         err,
	}
}

// IsWorkflowNotFound checks if an error indicates a missing definition.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks if an error indicates a missing execution.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsVersionConflict checks if an error indicates a lost conditional save.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsInvalidExecutionState checks if an error indicates an illegal transition
// request.
func IsInvalidExecutionState(err error) bool {
	return errors.Is(err, ErrInvalidExecutionState)
}

// IsPermissionDenied checks if an error indicates a security gate denial.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
