// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Scheduling and ledger errors
	ErrConflict        = errors.New("scheduling conflict")
	ErrSessionLocked   = errors.New("session locked")
	ErrAlreadyLocked   = errors.New("session already locked")
	ErrNotEnrolled     = errors.New("student not enrolled in session scope")
	ErrInvalidCriteria = errors.New("invalid achievement criteria")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "timetable", "attendance", "achievement"
	Op      string // Operation that failed, e.g., "Lock", "SetMark"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Timetable domain errors
var (
	ErrSlotNotFound    = NewDomainError("timetable", "Find", ErrNotFound, "timetable slot not found")
	ErrInvalidTimeSpan = NewDomainError("timetable", "Validate", ErrValueOutOfRange, "slot start must be before end")
	ErrInvalidDay      = NewDomainError("timetable", "Validate", ErrValueOutOfRange, "day of week must be between 1 (Monday) and 6 (Saturday)")
	ErrSlotInUse       = NewDomainError("timetable", "Delete", ErrInvalidState, "slot has materialized sessions")
)

// Attendance domain errors
var (
	ErrSessionNotFound      = NewDomainError("attendance", "FindSession", ErrNotFound, "session not found")
	ErrStudentNotFound      = NewDomainError("attendance", "FindStudent", ErrNotFound, "student not found")
	ErrSessionAlreadyLocked = NewDomainError("attendance", "Lock", ErrAlreadyLocked, "session is already locked")
	ErrSessionIsLocked      = NewDomainError("attendance", "Write", ErrSessionLocked, "session is locked; marks are read-only")
	ErrStudentNotEnrolled   = NewDomainError("attendance", "SetMark", ErrNotEnrolled, "student is outside the session scope")
	ErrSessionHasMarks      = NewDomainError("attendance", "Delete", ErrInvalidState, "session already has marks")
	ErrSessionDateElapsed   = NewDomainError("attendance", "Delete", ErrInvalidState, "session date has elapsed")
	ErrSessionNotLockable   = NewDomainError("attendance", "Lock", ErrInvalidState, "session has no marks")
	ErrWrongWeekday         = NewDomainError("attendance", "EnsureSession", ErrValidation, "date does not fall on the slot's weekday")
	ErrInvalidMarkStatus    = NewDomainError("attendance", "Validate", ErrInvalidInput, "mark status must be present, absent or unmarked")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrUnknownCriteriaType = NewDomainError("achievement", "ParseCriteria", ErrInvalidCriteria, "unknown criteria type")
	ErrMissingCriteriaArg  = NewDomainError("achievement", "ParseCriteria", ErrInvalidCriteria, "criteria parameter missing or out of range")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConflict checks if the error reports a timetable conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsSessionLocked checks if a write was rejected because the session is locked.
func IsSessionLocked(err error) bool {
	return errors.Is(err, ErrSessionLocked)
}

// IsNotEnrolled checks if the student is outside the session scope.
func IsNotEnrolled(err error) bool {
	return errors.Is(err, ErrNotEnrolled)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
