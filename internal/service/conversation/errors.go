package conversation

import "errors"

type ErrorCode string

const (
	ErrorCodeValidation           ErrorCode = "validation_error"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeUserNotFound         ErrorCode = "user_not_found"
	ErrorCodeConversationNotFound ErrorCode = "conversation_not_found"
	ErrorCodeConversationExists   ErrorCode = "conversation_exists"
	ErrorCodeDecodeFailure        ErrorCode = "decode_failure"
	ErrorCodeWriteFailure         ErrorCode = "write_failure"
	ErrorCodePartialFailure       ErrorCode = "partial_failure"
	ErrorCodeInternal             ErrorCode = "internal_error"
)

// Stage names the step of a multi-write operation an error came from.
type Stage string

const (
	StageLoadUser           Stage = "load_user"
	StageCheckThread        Stage = "check_thread"
	StageCheckParticipant   Stage = "check_participant"
	StageCounterpartSummary Stage = "counterpart_summary"
	StageSelfSummary        Stage = "self_summary"
	StageThread             Stage = "thread"
	StageAppendMessage      Stage = "append_message"
	StageSenderSummary      Stage = "sender_summary"
	StageRecipientSummary   Stage = "recipient_summary"
)

type Error struct {
	Code    ErrorCode
	Stage   Stage
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

func stageError(stage Stage, code ErrorCode, message string, err error) *Error {
	e := newError(code, message, err)
	e.Stage = stage
	return e
}

// CodeOf returns the code of a service error, or ErrorCodeInternal.
func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ErrorCodeInternal
}
