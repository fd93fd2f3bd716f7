// Package dErrors defines code-carrying domain errors for the attendance and
// custody core. Services return these so transports can translate them without
// inspecting error strings, and tests can assert on codes instead of messages.
//
// Infrastructure facts (row missing, constraint hit, stale compare-and-swap)
// are reported by stores as pkg/platform/sentinel errors; services translate
// them into the codes below at the boundary.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// Generic codes.
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"

	// Workflow codes. Each corresponds to a distinct user-facing retry action.
	CodeDuplicateCheckIn     Code = "duplicate_check_in"
	CodeNoOpenRecord         Code = "no_open_attendance_record"
	CodeMissingJustification Code = "missing_justification"
	CodeStaleHandover        Code = "stale_handover"
	CodeInvalidTransition    Code = "invalid_transition"
	CodePersistenceWrite     Code = "persistence_write_failed"

	// Geolocation codes, mirroring the collaborator's failure kinds.
	CodeGeolocationUnavailable Code = "geolocation_unavailable"
	CodeGeolocationTimeout     Code = "geolocation_timeout"
	CodeGeolocationDenied      Code = "geolocation_denied"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a domain error that preserves the underlying cause for
// errors.Is/errors.As chains.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for errors
// that did not originate in the domain layer.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain code to an HTTP status for the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest, CodeMissingJustification:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeGeolocationDenied:
		return http.StatusForbidden
	case CodeNotFound, CodeNoOpenRecord:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateCheckIn, CodeStaleHandover, CodeInvalidTransition:
		return http.StatusConflict
	case CodeGeolocationTimeout:
		return http.StatusGatewayTimeout
	case CodeGeolocationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
