package authctx

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/upb/newsroom-api/identity"
	"github.com/upb/newsroom-api/services"
	"github.com/upb/newsroom-api/session"
	"go.uber.org/zap"
)

// ReasonAuthScope is attached to unclassified failures while resolving a caller
const ReasonAuthScope = "The server could not retrieve a user's auth scope."

// Authenticator verifies a bearer token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identity.Claims, error)
}

// ResolverConfig holds Resolver settings
type ResolverConfig struct {
	// SessionTTL bounds how far a successful authentication extends the session
	SessionTTL time.Duration
}

// Resolver turns the Authorization header of a request into an
// AuthorizationContext, reusing authentication state cached on the session
type Resolver struct {
	authenticator Authenticator
	cfg           ResolverConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewResolver creates a new Resolver
func NewResolver(authenticator Authenticator, cfg ResolverConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		authenticator: authenticator,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Resolve builds the authorization context for header. sess may be nil for
// stateless callers. Unauthorized and other classified errors from the
// authenticator are returned unchanged; any other failure is wrapped with
// ReasonAuthScope.
func (r *Resolver) Resolve(ctx context.Context, header string, sess *session.Session) (*AuthorizationContext, error) {
	ac, err := r.resolve(ctx, header, sess)
	if err == nil {
		return ac, nil
	}

	// unclassified provider failures arrive as INTERNAL without a reason
	if services.IsInternalError(err) && services.ReasonOf(err) == "" {
		err = services.NewAPIError(services.KindInternal, ReasonAuthScope, err)
	}
	r.logger.Debug("failed to resolve auth context", zap.Error(err))

	return nil, services.WrapWithReason(err, ReasonAuthScope)
}

func (r *Resolver) resolve(ctx context.Context, header string, sess *session.Session) (*AuthorizationContext, error) {
	if header == "" {
		return Anonymous(), nil
	}

	decoded, err := url.PathUnescape(header)
	if err != nil {
		return nil, fmt.Errorf("failed to decode authorization header: %w", err)
	}
	if decoded == "" {
		return Anonymous(), nil
	}

	now := r.now()

	if session.Valid(sess, header, now) {
		return &AuthorizationContext{
			AuthToken:    sess.Auth.JWT,
			DecodedToken: sess.Auth.DecodedToken,
			MID:          sess.Auth.MID,
		}, nil
	}

	claims, err := r.authenticator.Authenticate(ctx, bearerToken(decoded))
	if err != nil {
		return nil, err
	}

	if claims == nil {
		return &AuthorizationContext{AuthToken: header}, nil
	}

	if sess != nil {
		sess.Auth = &session.AuthRecord{
			UID:          claims.UID,
			MID:          claims.MID,
			JWT:          header,
			Exp:          claims.Exp,
			Roles:        claims.Roles,
			DecodedToken: claims,
		}
		sess.ExtendTo(claims.ExpiresAt(), now, r.cfg.SessionTTL)

		if err := sess.Save(ctx); err != nil {
			return nil, fmt.Errorf("failed to save session: %w", err)
		}

		r.logger.Debug("cached authentication on session",
			zap.String("uid", claims.UID),
			zap.String("mid", claims.MID))
	}

	return &AuthorizationContext{
		AuthToken:    header,
		DecodedToken: claims,
		MID:          claims.MID,
	}, nil
}

// bearerToken strips an optional case-insensitive "Bearer " scheme
func bearerToken(value string) string {
	const prefix = "bearer "
	if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}
	return value
}
