// Package domainerrors defines coded errors shared by every registry.
//
// Services return these so transports can map a failure to a stable error
// kind without string matching. Infrastructure layers return sentinel errors
// (see pkg/platform/sentinel) which services translate into coded errors.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code identifies the kind of a domain failure.
type Code string

const (
	// CodeUnauthorized: caller lacks the required role, or the system is paused.
	CodeUnauthorized Code = "unauthorized"
	// CodeAlreadyExists: duplicate natural key on issuance.
	CodeAlreadyExists Code = "already_exists"
	// CodeRuleAlreadyActive: a renew rule is already ACTIVE for the license type.
	// It is a specialisation of CodeAlreadyExists.
	CodeRuleAlreadyActive Code = "rule_already_active"
	CodeNotFound          Code = "not_found"
	// CodeInvalidState: the record's current status forbids the operation.
	CodeInvalidState       Code = "invalid_state"
	CodeValidation         Code = "validation_error"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// parents records code specialisations; HasCode(err, parent) matches children.
var parents = map[Code]Code{
	CodeRuleAlreadyActive: CodeAlreadyExists,
}

// Error is a coded domain error. The optional wrapped error keeps infra
// causes reachable through errors.Is/As.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost coded error in the chain,
// or CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in err's chain carries
// code, or a code specialising it.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	for c := de.Code; c != ""; c = parents[c] {
		if c == code {
			return true
		}
	}
	return false
}

// Is is an alias of HasCode kept for call sites that read better with it.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// ToHTTPStatus maps an error to the HTTP status a transport should answer with.
func ToHTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeAlreadyExists, CodeRuleAlreadyActive:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidState, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeValidation, CodeBadRequest, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
