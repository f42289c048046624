package identity

import (
	"context"

	"github.com/upb/newsroom-api/services"
	"go.uber.org/zap"
)

// Verifier verifies a bearer token against an identity provider
type Verifier interface {
	// Verify returns the decoded claims for token. checkRevoked asks the
	// provider to also reject revoked tokens when it supports that.
	Verify(ctx context.Context, token string, checkRevoked bool) (*Claims, error)
}

// AuthenticatorConfig holds the development escape hatch settings
type AuthenticatorConfig struct {
	// Development enables the test key bypass
	Development bool
	// TestAuthKey, when equal to the presented token, yields superuser claims
	TestAuthKey string
	// MID is stamped on the superuser claims
	MID string
}

// Authenticator turns a bearer token into verified claims
type Authenticator struct {
	verifier Verifier
	cfg      AuthenticatorConfig
	logger   *zap.Logger
}

// NewAuthenticator creates a new Authenticator
func NewAuthenticator(verifier Verifier, cfg AuthenticatorConfig, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Authenticate verifies token and enforces that the email is verified.
// Every error is passed through MapProviderError.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := a.decode(ctx, token)
	if err != nil {
		return nil, MapProviderError(err)
	}

	if claims != nil && !claims.EmailVerified {
		a.logger.Debug("rejecting token with unverified email",
			zap.String("uid", claims.UID))
		return nil, MapProviderError(services.Unauthorized("The User's Email ID is not verified."))
	}

	return claims, nil
}

func (a *Authenticator) decode(ctx context.Context, token string) (*Claims, error) {
	if a.cfg.Development && a.cfg.TestAuthKey != "" && token == a.cfg.TestAuthKey {
		a.logger.Debug("using development superuser claims")
		return superuserClaims(a.cfg.MID), nil
	}

	return a.verifier.Verify(ctx, token, true)
}
