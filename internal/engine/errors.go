package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/normativ/internal/model"
)

// Error is the error type returned by every Engine operation.
//
// Codes:
//   - VALIDATION: the request is malformed or references catalog rows that
//     don't exist or don't fit together
//   - CONFLICT: an identical condition already exists under the reject
//     policy, or a delete is blocked by a reference
//   - NOT_FOUND: the normative to delete does not exist
//   - DATABASE: the store failed; Err holds the driver error
//
// Every Error aborts the whole request. Nothing is persisted.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Field names the offending request field for validation errors,
	// e.g. "ldp_ids[2]" or "entries[0].requirement_id".
	Field string `json:"field,omitempty"`

	// RequestID identifies the failed request.
	RequestID string `json:"request_id"`

	// Conflict context.
	RankID         int64              `json:"rank_id,omitempty"`
	NormativeID    int64              `json:"normative_id,omitempty"`
	RequirementID  int64              `json:"requirement_id,omitempty"`
	ConditionValue string             `json:"condition_value,omitempty"`
	ParameterSet   model.ParameterSet `json:"parameter_set,omitempty"`

	// Err is the underlying cause, if any. It is logged, never serialized.
	Err error `json:"-"`
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed or inconsistent request.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeConflict indicates a duplicate condition or a blocked delete.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeNotFound indicates the target normative does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeDatabase indicates a storage failure.
	ErrCodeDatabase ErrorCode = "DATABASE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the engine error code of err, or "" if err is not an
// engine error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsConflict returns true if err is a conflict error.
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflict }

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsDatabase returns true if err is a storage failure.
func IsDatabase(err error) bool { return CodeOf(err) == ErrCodeDatabase }

func newValidationError(field, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

func newDuplicateConditionError(rankID, normativeID, requirementID int64, value string, ps model.ParameterSet) *Error {
	return &Error{
		Code:           ErrCodeConflict,
		Message:        fmt.Sprintf("condition %q for requirement %d already exists on normative %d", value, requirementID, normativeID),
		RankID:         rankID,
		NormativeID:    normativeID,
		RequirementID:  requirementID,
		ConditionValue: value,
		ParameterSet:   ps,
	}
}

func newReferencedError(normativeID int64, err error) *Error {
	return &Error{
		Code:        ErrCodeConflict,
		Message:     fmt.Sprintf("normative %d is still referenced", normativeID),
		NormativeID: normativeID,
		Err:         err,
	}
}

func newNotFoundError(normativeID int64) *Error {
	return &Error{
		Code:        ErrCodeNotFound,
		Message:     fmt.Sprintf("normative %d does not exist", normativeID),
		NormativeID: normativeID,
	}
}

func newDatabaseError(op string, err error) *Error {
	return &Error{
		Code:    ErrCodeDatabase,
		Message: op + " failed",
		Err:     err,
	}
}
