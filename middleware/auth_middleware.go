package middleware

import (
	"context"
	"net/http"

	"github.com/upb/newsroom-api/authctx"
	"github.com/upb/newsroom-api/services"
	"github.com/upb/newsroom-api/session"
	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// ContextResolver builds the authorization context of a request
type ContextResolver interface {
	Resolve(ctx context.Context, header string, sess *session.Session) (*authctx.AuthorizationContext, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	resolver ContextResolver
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(resolver ContextResolver, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// ResolveAuth resolves the Authorization header into an AuthorizationContext.
// Anonymous requests pass through; a rejected credential ends the request.
// Run it after LoadSession so verified state is cached on the session.
func (m *AuthMiddleware) ResolveAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		ac, err := m.resolver.Resolve(ctx, r.Header.Get("Authorization"), GetSessionFromContext(ctx))
		if err != nil {
			if services.IsUnauthorizedError(err) {
				m.logger.Warn("authentication rejected",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteError(w, http.StatusUnauthorized, services.ReasonOf(err), nil)
				return
			}

			m.logger.Error("failed to resolve auth context",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteError(w, http.StatusInternalServerError, services.ReasonOf(err), nil)
			return
		}

		if !ac.IsAnonymous() {
			m.logger.Debug("authentication successful",
				zap.String("request_id", requestID),
				zap.String("uid", ac.UID()),
				zap.String("mid", ac.MID))
		}

		next.ServeHTTP(w, r.WithContext(authctx.WithContext(ctx, ac)))
	})
}
