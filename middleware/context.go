package middleware

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/newsroom-api/session"
)

// Context key type to avoid collisions
type contextKey string

const (
	// SessionKey is the context key for the request session
	SessionKey contextKey = "session"
)

// GetRequestIDFromContext retrieves the request ID set by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// GetSessionFromContext retrieves the session from context. Stateless
// requests carry no session and yield nil.
func GetSessionFromContext(ctx context.Context) *session.Session {
	if val := ctx.Value(SessionKey); val != nil {
		if sess, ok := val.(*session.Session); ok {
			return sess
		}
	}
	return nil
}

// WithSession adds a session to the context
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}
