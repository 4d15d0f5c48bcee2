package middleware

import (
	"context"
	"net/http"
	"strings"

	"chatting-demo-backend/internal/model"
)

// SessionParser verifies a bearer token and returns the session it carries.
type SessionParser interface {
	SessionFromToken(token string) (model.Session, error)
}

type sessionKey struct{}

func WithSession(ctx context.Context, session model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

func SessionFrom(ctx context.Context) (model.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(model.Session)
	return session, ok && session.Valid()
}

// TokenFromRequest reads the bearer token from the Authorization header or,
// for websocket upgrades, from the token query parameter.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
			return strings.TrimSpace(header[len("Bearer "):])
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// RequireSession rejects requests without a valid session token and stores
// the session in the request context.
func RequireSession(sessions SessionParser) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			session, err := sessions.SessionFromToken(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(WithSession(r.Context(), session)))
		}
	}
}
