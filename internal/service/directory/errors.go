package directory

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation     ErrorCode = "validation_error"
	ErrorCodeUnauthorized   ErrorCode = "unauthorized"
	ErrorCodeNotFound       ErrorCode = "not_found"
	ErrorCodeUserNotFound   ErrorCode = "user_not_found"
	ErrorCodeDecodeFailure  ErrorCode = "decode_failure"
	ErrorCodeWriteFailure   ErrorCode = "write_failure"
	ErrorCodePartialFailure ErrorCode = "partial_failure"
	ErrorCodeInternal       ErrorCode = "internal_error"
)

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
