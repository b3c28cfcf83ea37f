// Package procedure implements the shared workflow behind every dashboard
// mutation: validate the input, load the owning resource and check the caller's
// tenant, apply one write, and record exactly one audit event.
package procedure

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code classifies a procedure failure. Values match the wire error codes.
type Code string

const (
	CodeOK           Code = "OK"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInternal     Code = "INTERNAL_SERVER_ERROR"
)

// HTTPStatus maps the code onto an HTTP status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Issue is one field-level validation problem. Path is the JSON path of the field.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Error is a terminal procedure failure. The cause is kept for logs and never
// rendered to clients.
type Error struct {
	Code    Code
	Message string
	Issues  []Issue
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// BadRequest builds a validation failure from issues.
func BadRequest(issues ...Issue) *Error {
	msgs := make([]string, 0, len(issues))
	for _, is := range issues {
		msgs = append(msgs, is.String())
	}
	msg := "Invalid input"
	if len(msgs) > 0 {
		msg = strings.Join(msgs, "; ")
	}
	return &Error{Code: CodeBadRequest, Message: msg, Issues: issues}
}

// Unauthorized is returned when no authenticated caller is present.
func Unauthorized() *Error {
	return &Error{Code: CodeUnauthorized, Message: "You need to be signed in to perform this action."}
}

// NotFound reports a missing or foreign resource. The two cases are indistinguishable.
func NotFound(what, supportEmail string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("We are unable to find the correct %s. Please contact support using %s.", what, supportEmail),
	}
}

// Internal reports a persistence failure while trying to perform action.
func Internal(action, supportEmail string, cause error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: fmt.Sprintf("We are unable to %s. Please contact support using %s.", action, supportEmail),
		cause:   cause,
	}
}

// CodeOf returns the code carried by err. Foreign errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}
