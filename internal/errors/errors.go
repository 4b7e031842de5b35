package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type. Handlers key their recovery
// behavior off the code, never off the message text.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeAuth        Code = 10
	CodeAuthDecrypt Code = 11
	CodeBackend     Code = 12
	CodeRateLimited Code = 13
	CodeUnavailable Code = 14
	CodeValidation  Code = 20
	CodeState       Code = 21
	CodeUnsupported Code = 22
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf extracts the code from an error, defaulting to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if typed, ok := As(err); ok {
		return typed.Code
	}
	return CodeInternal
}

// IsRecoverable reports whether the error should re-prompt the user at the
// current step instead of unwinding the flow.
func IsRecoverable(err error) bool {
	return CodeOf(err) == CodeValidation
}

func ExitCode(err error) int {
	code := CodeOf(err)
	switch code {
	case CodeSuccess, CodeInternal, CodeUsage:
		return int(code)
	default:
		return int(CodeInternal)
	}
}
