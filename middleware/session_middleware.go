package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/upb/newsroom-api/session"
	"github.com/upb/newsroom-api/utils"
	"go.uber.org/zap"
)

// StatelessHeader lets clients opt out of sessions with the value "none"
const StatelessHeader = "X-Session"

// SessionMiddleware loads the request session from the session cookie
type SessionMiddleware struct {
	store  session.Store
	ttl    time.Duration
	cookie session.CookieOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionMiddleware creates a new SessionMiddleware
func NewSessionMiddleware(store session.Store, ttl time.Duration, cookie session.CookieOptions, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		store:  store,
		ttl:    ttl,
		cookie: cookie,
		logger: logger,
		now:    time.Now,
	}
}

// LoadSession attaches a session to the request context. A well-formed
// cookie with no stored session keeps its id, so anonymous clients are not
// reissued a cookie on every request. Missing or malformed cookies get a
// fresh unsaved session and a new cookie.
func (m *SessionMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		if strings.EqualFold(r.Header.Get(StatelessHeader), "none") {
			next.ServeHTTP(w, r)
			return
		}

		var sess *session.Session
		id := session.IDFromRequest(r)
		if id != "" {
			loaded, err := m.store.Get(ctx, id)
			if err != nil {
				m.logger.Error("failed to load session",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteError(w, http.StatusInternalServerError, "The session could not be loaded.", nil)
				return
			}
			sess = loaded
		}

		if sess == nil && session.ValidID(id) {
			sess = session.Resume(m.store, id, m.ttl, m.now())
		}

		if sess == nil {
			created, err := session.New(m.store, m.ttl, m.now())
			if err != nil {
				m.logger.Error("failed to create session",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteError(w, http.StatusInternalServerError, "The session could not be created.", nil)
				return
			}
			sess = created
			session.SetCookie(w, sess.ID, sess.ExpiresAt, m.cookie)

			m.logger.Debug("issued new session",
				zap.String("request_id", requestID))
		}

		next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
	})
}
