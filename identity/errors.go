package identity

import (
	"errors"

	"firebase.google.com/go/v4/auth"
	"github.com/upb/newsroom-api/services"
)

var (
	// ErrInvalidToken is returned when the token is malformed or its signature does not verify
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked is returned when the provider reports the token as revoked
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUserDisabled is returned when the token belongs to a disabled account
	ErrUserDisabled = errors.New("user disabled")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience is invalid
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrJWKSFetchFailed is returned when JWKS fetching fails
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
)

// MapProviderError translates identity provider failures into API errors so
// callers can tell a bad credential from an infrastructure failure.
// Errors that already carry an APIError are returned unchanged.
func MapProviderError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	switch {
	case errors.Is(err, ErrTokenExpired) || auth.IsIDTokenExpired(err):
		return services.NewAPIError(services.KindUnauthorized, "The user's auth token has expired.", err)
	case errors.Is(err, ErrTokenRevoked) || auth.IsIDTokenRevoked(err):
		return services.NewAPIError(services.KindUnauthorized, "The user's auth token has been revoked.", err)
	case errors.Is(err, ErrUserDisabled) || auth.IsUserDisabled(err):
		return services.NewAPIError(services.KindUnauthorized, "The user's account has been disabled.", err)
	case auth.IsUserNotFound(err):
		return services.NewAPIError(services.KindUnauthorized, "The user's account does not exist.", err)
	case errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrInvalidIssuer),
		errors.Is(err, ErrInvalidAudience),
		errors.Is(err, ErrMissingClaim),
		auth.IsIDTokenInvalid(err):
		return services.NewAPIError(services.KindUnauthorized, "The user's auth token is invalid.", err)
	}

	return services.Wrap(err)
}
