package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/newsroom-api/authctx"
	"github.com/upb/newsroom-api/identity"
	"github.com/upb/newsroom-api/services"
	"github.com/upb/newsroom-api/session"
	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// MockContextResolver is a mock implementation of ContextResolver
type MockContextResolver struct {
	mock.Mock
}

func (m *MockContextResolver) Resolve(ctx context.Context, header string, sess *session.Session) (*authctx.AuthorizationContext, error) {
	args := m.Called(ctx, header, sess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authctx.AuthorizationContext), args.Error(1)
}

func TestResolveAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("resolved context is stored on the request", func(t *testing.T) {
		resolver := new(MockContextResolver)
		ac := &authctx.AuthorizationContext{
			AuthToken:    "Bearer token",
			DecodedToken: &identity.Claims{UID: "uid-1"},
			MID:          "mid-1",
		}
		resolver.On("Resolve", mock.Anything, "Bearer token", (*session.Session)(nil)).Return(ac, nil)

		handler := NewAuthMiddleware(resolver, logger).ResolveAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := authctx.FromContext(r.Context())
			assert.Same(t, ac, got)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resolver.AssertExpectations(t)
	})

	t.Run("session from context is passed to the resolver", func(t *testing.T) {
		resolver := new(MockContextResolver)
		sess, err := session.New(nil, 0, testNow())
		require.NoError(t, err)
		resolver.On("Resolve", mock.Anything, "", sess).Return(authctx.Anonymous(), nil)

		handler := NewAuthMiddleware(resolver, logger).ResolveAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, authctx.FromContext(r.Context()).IsAnonymous())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
		req = req.WithContext(WithSession(req.Context(), sess))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resolver.AssertExpectations(t)
	})

	t.Run("unauthorized error returns 401 with reason", func(t *testing.T) {
		resolver := new(MockContextResolver)
		resolver.On("Resolve", mock.Anything, "Bearer expired", mock.Anything).
			Return(nil, services.Unauthorized("The user's auth token has expired."))

		called := false
		handler := NewAuthMiddleware(resolver, logger).ResolveAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Authorization", "Bearer expired")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "unauthorized", response.Error)
		assert.Equal(t, "The user's auth token has expired.", response.Message)
	})

	t.Run("internal error returns 500 without the cause", func(t *testing.T) {
		resolver := new(MockContextResolver)
		cause := errors.New("redis: connection refused")
		resolver.On("Resolve", mock.Anything, "Bearer token", mock.Anything).
			Return(nil, services.NewAPIError(services.KindInternal, authctx.ReasonAuthScope, cause))

		handler := NewAuthMiddleware(resolver, logger).ResolveAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler must not run")
		}))

		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
		assert.Contains(t, w.Body.String(), authctx.ReasonAuthScope)
	})
}
