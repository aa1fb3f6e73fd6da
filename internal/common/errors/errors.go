// Package errors provides the standardized error taxonomy for the poster pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration problems, detected eagerly before any I/O.
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Data-source access or shape problems.
	ErrCodeCaseNotFound         ErrorCode = "CASE_NOT_FOUND"
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeConnectionFailed     ErrorCode = "CONNECTION_FAILED"
	ErrCodeSchemaMismatch       ErrorCode = "SCHEMA_MISMATCH"

	// Profile mapping inconsistencies.
	ErrCodeMappingInvalid ErrorCode = "MAPPING_INVALID"

	// Template rendering and format conversion.
	ErrCodeRenderFailed     ErrorCode = "RENDER_FAILED"
	ErrCodeConversionFailed ErrorCode = "CONVERSION_FAILED"
)

// Error represents a structured application error.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ==========================
// 2. Constructors
// ==========================

// NewConfigInvalidError reports a malformed or inconsistent configuration.
func NewConfigInvalidError(details string) *Error {
	return &Error{
		Code:      ErrCodeConfigInvalid,
		Message:   "invalid configuration",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewCaseNotFoundError reports that no row matched the case identifier.
func NewCaseNotFoundError(caseID string) *Error {
	return &Error{
		Code:      ErrCodeCaseNotFound,
		Message:   "no case found for identifier",
		Details:   fmt.Sprintf("caseId: %s", caseID),
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationFailedError reports a backend credential failure.
func NewAuthenticationFailedError(err error) *Error {
	return &Error{
		Code:      ErrCodeAuthenticationFailed,
		Message:   "data source authentication failed",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// NewConnectionFailedError reports a backend access failure.
func NewConnectionFailedError(err error) *Error {
	return &Error{
		Code:      ErrCodeConnectionFailed,
		Message:   "data source connection failed",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// NewSchemaMismatchError reports a row or header whose column count differs
// from the configured field list.
func NewSchemaMismatchError(want, got int) *Error {
	return &Error{
		Code:      ErrCodeSchemaMismatch,
		Message:   "column count does not match configured field list",
		Details:   fmt.Sprintf("want: %d, got: %d", want, got),
		Timestamp: time.Now().UTC(),
	}
}

// NewMappingInvalidError reports a placeholder mapping inconsistency.
func NewMappingInvalidError(details string) *Error {
	return &Error{
		Code:      ErrCodeMappingInvalid,
		Message:   "invalid profile mapping",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewRenderFailedError reports an unreadable or unparseable template.
func NewRenderFailedError(templateKey string, err error) *Error {
	return &Error{
		Code:      ErrCodeRenderFailed,
		Message:   "template rendering failed",
		Details:   fmt.Sprintf("template: %s, error: %s", templateKey, err.Error()),
		Timestamp: time.Now().UTC(),
	}
}

// NewConversionFailedError reports a rejected document or unsupported format.
func NewConversionFailedError(format string, err error) *Error {
	return &Error{
		Code:      ErrCodeConversionFailed,
		Message:   "format conversion failed",
		Details:   fmt.Sprintf("format: %s, error: %s", format, err.Error()),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Predicates
// ==========================

// CodeOf extracts the error code from err, unwrapping as needed. Returns an
// empty code for errors outside the taxonomy.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsConfigInvalid(err error) bool    { return is(err, ErrCodeConfigInvalid) }
func IsCaseNotFound(err error) bool     { return is(err, ErrCodeCaseNotFound) }
func IsSchemaMismatch(err error) bool   { return is(err, ErrCodeSchemaMismatch) }
func IsMappingInvalid(err error) bool   { return is(err, ErrCodeMappingInvalid) }
func IsRenderFailed(err error) bool     { return is(err, ErrCodeRenderFailed) }
func IsConversionFailed(err error) bool { return is(err, ErrCodeConversionFailed) }

// IsDataSource reports whether err belongs to the data-source family.
func IsDataSource(err error) bool {
	switch CodeOf(err) {
	case ErrCodeCaseNotFound, ErrCodeAuthenticationFailed, ErrCodeConnectionFailed, ErrCodeSchemaMismatch:
		return true
	}
	return false
}
