package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/newsroom-api/authctx"
	"github.com/upb/newsroom-api/identity"
	"github.com/upb/newsroom-api/middleware"
	"github.com/upb/newsroom-api/session"
	"go.uber.org/zap"
)

func decodeSessionInfo(t *testing.T, w *httptest.ResponseRecorder) SessionInfo {
	t.Helper()
	var response struct {
		Data SessionInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response.Data
}

func TestHandleSession(t *testing.T) {
	handler := NewAuthHandler(session.CookieOptions{}, zap.NewNop())

	t.Run("anonymous caller", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleSession(w, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		info := decodeSessionInfo(t, w)
		assert.True(t, info.Anonymous)
		assert.False(t, info.Session)
		assert.Empty(t, info.UID)
	})

	t.Run("authenticated caller with session", func(t *testing.T) {
		sess, err := session.New(nil, time.Hour, time.Now())
		require.NoError(t, err)
		ac := &authctx.AuthorizationContext{
			AuthToken: "Bearer t",
			DecodedToken: &identity.Claims{
				UID:   "uid-1",
				Exp:   1900000000,
				Email: "editor@example.com",
				Roles: []string{"issue.editor"},
			},
			MID: "mid-1",
		}

		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		ctx := authctx.WithContext(middleware.WithSession(req.Context(), sess), ac)
		w := httptest.NewRecorder()
		handler.HandleSession(w, req.WithContext(ctx))

		info := decodeSessionInfo(t, w)
		assert.False(t, info.Anonymous)
		assert.True(t, info.Session)
		assert.Equal(t, "uid-1", info.UID)
		assert.Equal(t, "mid-1", info.MID)
		assert.Equal(t, "editor@example.com", info.Email)
		assert.Equal(t, []string{"issue.editor"}, info.Roles)
		assert.Equal(t, int64(1900000000), info.ExpiresAt)
	})
}

func TestHandleLogout(t *testing.T) {
	handler := NewAuthHandler(session.CookieOptions{Secure: true}, zap.NewNop())

	t.Run("destroys the stored session and clears the cookie", func(t *testing.T) {
		store := session.NewMemoryStore()
		sess, err := session.New(store, time.Hour, time.Now())
		require.NoError(t, err)
		sess.Auth = &session.AuthRecord{UID: "uid-1"}
		require.NoError(t, sess.Save(context.Background()))
		require.Equal(t, 1, store.Len())

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
		w := httptest.NewRecorder()

		handler.HandleLogout(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, 0, store.Len())
		assert.Nil(t, sess.Auth)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, session.CookieName, cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("stateless request still clears the cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleLogout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		require.Len(t, w.Result().Cookies(), 1)
	})
}
