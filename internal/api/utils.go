package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatting-demo-backend/internal/api/middleware"
	"chatting-demo-backend/internal/queue"
)

type apiFunc func(http.ResponseWriter, *http.Request) error

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// MakeHTTPHandleFunc runs f on the request queue behind CORS, logging, the
// given auth middlewares and the per-client rate limiter. Errors returned by
// f are written as ApiError bodies.
func (s *APIServer) MakeHTTPHandleFunc(f apiFunc, authMiddleware ...middleware.Middleware) http.HandlerFunc {
	baseHandler := func(w http.ResponseWriter, r *http.Request) {
		errc := make(chan error, 1)

		job := queue.Job{
			Fn: func() error {
				return f(w, r)
			},
			Errc: errc,
		}

		s.requestQueueManager.EnqueueJob(job)

		if err := <-errc; err != nil {
			s.writeError(w, r, err)
		}
	}

	guards := make([]middleware.Middleware, 0, len(authMiddleware)+1)
	guards = append(guards, authMiddleware...)
	guards = append(guards, middleware.RateLimit(s.limiter))
	guarded := middleware.Chain(baseHandler, guards...)

	finalHandler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		guarded(w, r)
	}

	return middleware.Chain(finalHandler,
		middleware.CORS(s.cors),
		middleware.Logging(s.logger),
	)
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		WriteJSON(w, http.StatusInternalServerError, ApiError{Error: "Internal server error"})
		return
	}

	event := s.logger.Warn()
	if httpErr.StatusCode >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(httpErr.ErrorLog).
		Int("status", httpErr.StatusCode).
		Str("code", httpErr.Code).
		Str("path", r.URL.Path).
		Msg(httpErr.Message)

	WriteJSON(w, httpErr.StatusCode, ApiError{Error: httpErr.Message, Code: httpErr.Code, Details: httpErr.Details})
}
