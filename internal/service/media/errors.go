package media

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeWriteFailure ErrorCode = "write_failure"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

// ErrBlobNotFound is returned by Blobs implementations for missing keys.
var ErrBlobNotFound = errors.New("media: blob not found")

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ErrorCodeInternal
}
