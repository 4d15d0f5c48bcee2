package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chatting-demo-backend/internal/api"
	"chatting-demo-backend/internal/api/middleware"
	"chatting-demo-backend/internal/dto"
	"chatting-demo-backend/internal/model"
	"chatting-demo-backend/internal/service/conversation"
	"chatting-demo-backend/internal/service/directory"
	"chatting-demo-backend/internal/service/media"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode %s request: %w", r.URL.Path, err),
		}
	}
	return nil
}

func sessionFrom(r *http.Request) (model.Session, error) {
	session, ok := middleware.SessionFrom(r.Context())
	if !ok {
		return model.Session{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("no session on %s", r.URL.Path),
		}
	}
	return session, nil
}

// pathParts returns the segments of path below prefix.
func pathParts(path, prefix string) ([]string, bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return nil, false
	}
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return nil, true
	}
	return strings.Split(trimmed, "/"), true
}

func notFound(path string) error {
	return &HTTPError{
		StatusCode: http.StatusNotFound,
		Message:    "Not found",
		ErrorLog:   fmt.Errorf("no route for %s", path),
	}
}

// statusForCode maps the error codes shared by the services to HTTP statuses.
func statusForCode(code string) int {
	switch code {
	case "validation_error":
		return http.StatusBadRequest
	case "unauthorized":
		return http.StatusUnauthorized
	case "not_found", "user_not_found", "conversation_not_found":
		return http.StatusNotFound
	case "conversation_exists":
		return http.StatusConflict
	case "write_failure", "partial_failure":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// serviceError converts an error from any service into an HTTPError.
func serviceError(err error) error {
	if err == nil {
		return nil
	}

	var (
		code    string
		message string
		details interface{}
		cause   error
	)

	var convErr *conversation.Error
	var dirErr *directory.Error
	var mediaErr *media.Error
	switch {
	case errors.As(err, &convErr):
		code, message, cause = string(convErr.Code), convErr.Message, convErr.Err
		if convErr.Stage != "" {
			details = map[string]string{"stage": string(convErr.Stage)}
		}
	case errors.As(err, &dirErr):
		code, message, cause = string(dirErr.Code), dirErr.Message, dirErr.Err
	case errors.As(err, &mediaErr):
		code, message, cause = string(mediaErr.Code), mediaErr.Message, mediaErr.Err
	default:
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   err,
		}
	}

	status := statusForCode(code)
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	logErr := err
	if cause != nil {
		logErr = fmt.Errorf("%s: %w", err.Error(), cause)
	}
	return &HTTPError{
		StatusCode: status,
		Message:    message,
		Code:       code,
		Details:    details,
		ErrorLog:   logErr,
	}
}

// stepError describes err for a partial-failure response body.
func stepError(stage string, err error) dto.StepError {
	step := dto.StepError{Stage: stage, Code: "internal_error", Message: "Internal server error"}
	var convErr *conversation.Error
	var dirErr *directory.Error
	switch {
	case errors.As(err, &convErr):
		step.Code, step.Message = string(convErr.Code), convErr.Message
		if convErr.Stage != "" {
			step.Stage = string(convErr.Stage)
		}
	case errors.As(err, &dirErr):
		step.Code, step.Message = string(dirErr.Code), dirErr.Message
	case err != nil:
		step.Code, step.Message = "write_failure", "store write failed"
	}
	return step
}
