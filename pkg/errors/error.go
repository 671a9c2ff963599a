package errors

import (
	"errors"
	"fmt"
)

var (
	New    = errors.New
	Unwrap = errors.Unwrap
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
)

// Error is an error carrying a stable code.
type Error interface {
	error
	Code() string
	Unwrap() error
}

// AppError is the coded error used across the service.
type AppError struct {
	code    string
	message string
	err     error
	details map[string]interface{}
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string {
	return e.code
}

// Message returns the message without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// Details returns structured context attached with WithDetail.
func (e *AppError) Details() map[string]interface{} {
	return e.details
}

// WithDetail attaches a key/value pair and returns the same error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.details == nil {
		e.details = make(map[string]interface{})
	}
	e.details[key] = value
	return e
}

// NewAppError creates a coded error.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{
		code:    code,
		message: message,
		err:     err,
	}
}

// Wrap wraps err keeping the code of an inner AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return NewAppError(appErr.Code(), message, err)
	}

	return NewAppError(ErrInternal, message, err)
}

// CodeOf returns the code of the outermost AppError in the chain, or
// ErrInternal when there is none.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}

// HasCode reports whether any AppError in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.code == code {
			return true
		}
		if p, ok := err.(*permanentError); ok {
			err = p.err
			continue
		}
		err = Unwrap(err)
	}
	return false
}
