// Package domainerrors carries failure categories from the ledger and the
// services up to the transport, which alone decides how each is rendered.
package domainerrors

import "errors"

type Code string

// Outcomes of the credential, consent and verification operations.
const (
	CodeUnauthorized  Code = "unauthorized"   // caller lacks the role the mutation requires
	CodeInvalidDigest Code = "invalid_digest" // digest empty, zero or not 32 bytes
	CodeNoCredential  Code = "no_credential"  // holder has nothing on record
)

// Input, infrastructure and admission failures.
const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeConflict           Code = "conflict"
	CodeRateLimited        Code = "rate_limited"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches msg to err. The first code in a chain wins: wrapping a
// domain error keeps its code and ignores the one passed here.
func Wrap(err error, code Code, msg string) error {
	if c, ok := CodeOf(err); ok {
		code = c
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost domain error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
