// Package errors provides the domain error taxonomy for the catalog and loan core.
//
// Services return typed errors; callers check them with errors.Is against the
// sentinels, or unwrap the *Error to read the code and its details:
//
//	if errors.Is(err, errors.ErrInvalidTransition) {
//	    ...
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeValidation:
//	        ... domainErr.Field ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is = errors.Is
	As = errors.As
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeStorageUnreadable Code = "STORAGE_UNREADABLE"
	CodeStorageWrite      Code = "STORAGE_WRITE"
	CodeValidation        Code = "VALIDATION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeInternal          Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeStorageWrite:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and the details the code carries.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	// Field names the offending input for CodeValidation.
	Field string `json:"field,omitempty"`
	// ItemID is set for CodeNotFound and CodeInvalidTransition.
	ItemID int `json:"item_id,omitempty"`
	// From is the state the item was in when a transition was refused.
	From string `json:"from,omitempty"`
	// Path is the storage location for the storage codes.
	Path  string `json:"-"`
	cause error
}

// Error implements the error interface. It adds the storage path and the
// cause to Message.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Path)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Sentinel errors for use with errors.Is().
var (
	ErrStorageUnreadable = &Error{Code: CodeStorageUnreadable, Message: "storage unreadable"}
	ErrStorageWrite      = &Error{Code: CodeStorageWrite, Message: "storage write failed"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "invalid transition"}
)

// StorageUnreadable reports that the catalog file at path could not be read or parsed.
func StorageUnreadable(path string, cause error) *Error {
	return &Error{
		Code:    CodeStorageUnreadable,
		Message: "catalog is unreadable",
		Path:    path,
		cause:   cause,
	}
}

// StorageWrite reports that persisting the catalog to path failed.
func StorageWrite(path string, cause error) *Error {
	return &Error{
		Code:    CodeStorageWrite,
		Message: "writing catalog failed",
		Path:    path,
		cause:   cause,
	}
}

// Validation creates a validation error naming the offending field.
func Validation(field, msg string) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf("%s %s", field, msg), Field: field}
}

// NotFound creates a not found error for an item id.
func NotFound(id int) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("item %d not found", id), ItemID: id}
}

// InvalidTransition creates an error for a transition the loan state machine refuses.
func InvalidTransition(id int, from string) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("item %d is %s", id, from),
		ItemID:  id,
		From:    from,
	}
}
