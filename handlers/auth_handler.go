package handlers

import (
	"net/http"

	"github.com/upb/newsroom-api/authctx"
	"github.com/upb/newsroom-api/middleware"
	"github.com/upb/newsroom-api/session"
	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// SessionInfo describes the caller of the current request
type SessionInfo struct {
	Anonymous bool     `json:"anonymous"`
	UID       string   `json:"uid,omitempty"`
	MID       string   `json:"mid,omitempty"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	ExpiresAt int64    `json:"expiresAt,omitempty"`
	Session   bool     `json:"session"`
}

// AuthHandler exposes the resolved authentication state and logout
type AuthHandler struct {
	cookie session.CookieOptions
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(cookie session.CookieOptions, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		cookie: cookie,
		logger: logger,
	}
}

// HandleSession handles GET /auth/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authctx.FromContext(ctx)

	info := SessionInfo{
		Anonymous: ac.IsAnonymous(),
		UID:       ac.UID(),
		MID:       ac.MID,
		Session:   middleware.GetSessionFromContext(ctx) != nil,
	}
	if claims := ac.DecodedToken; claims != nil {
		info.Email = claims.Email
		info.Roles = claims.Roles
		info.ExpiresAt = claims.Exp
	}

	_ = utils.WriteOK(w, info)
}

// HandleLogout handles POST /auth/logout. It drops the cached auth state
// and clears the session cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if sess := middleware.GetSessionFromContext(ctx); sess != nil {
		if err := sess.Destroy(ctx); err != nil {
			h.logger.Error("failed to destroy session",
				zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
				zap.Error(err))
			_ = utils.WriteError(w, http.StatusInternalServerError, "The session could not be destroyed.", nil)
			return
		}
	}

	session.ClearCookie(w, h.cookie)
	utils.WriteNoContent(w)
}
