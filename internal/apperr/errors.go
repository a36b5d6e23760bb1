// Package apperr defines the error taxonomy shared by services and the HTTP
// boundary: validation, authorization, not-found and internal failures, each
// carrying a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindNotFound
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

type Code string

const (
	CodeMissingBranchAssignment Code = "MISSING_BRANCH_ASSIGNMENT"
	CodeAgentNotFound           Code = "AGENT_NOT_FOUND"
	CodeInvalidAgentRole        Code = "INVALID_AGENT_ROLE"
	CodeBranchNotFound          Code = "BRANCH_NOT_FOUND"
	CodeBranchMismatch          Code = "BRANCH_MISMATCH"
	CodeUnassignedScope         Code = "UNASSIGNED_SCOPE"
	CodeValidationFailed        Code = "VALIDATION_FAILED"
	CodeOverlappingTarget       Code = "OVERLAPPING_TARGET"
	CodeCoordinatorNotFound     Code = "COORDINATOR_NOT_FOUND"
	CodeInvalidCoordinatorRole  Code = "INVALID_COORDINATOR_ROLE"
	CodeForbidden               Code = "FORBIDDEN"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeInternal                Code = "INTERNAL"
)

// Error is a classified application error. Message is safe to show to the
// caller; Err holds the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code Code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// Invalid is a Validation error with the generic VALIDATION_FAILED code.
func Invalid(message string) *Error {
	return Validation(CodeValidationFailed, message)
}

func NotFound(code Code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Code: CodeForbidden, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuthorization, Code: CodeUnauthorized, Message: message}
}

// UnassignedScope is returned when a principal lacks the branch a request needs.
func UnassignedScope(message string) *Error {
	return Validation(CodeUnassignedScope, message)
}

// Internal wraps a store or infrastructure failure.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// Status maps err to the HTTP status the boundary should answer with.
func Status(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		if e.Code == CodeUnauthorized {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
