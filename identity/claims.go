package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingClaim is returned when a required claim is missing
	ErrMissingClaim = errors.New("missing required claim")
)

// SuperuserExpiry is the expiry stamped on development superuser claims
// (Jan 1, 2100 at midnight UTC).
const SuperuserExpiry int64 = 4102444800

// SuperuserRoles is the fixed role set granted by the development test key
var SuperuserRoles = []string{
	"user.superadmin",
	"article.admin",
	"issue.admin",
	"tag.admin",
	"live.superadmin",
	"media.admin",
}

// Claims are the decoded identity assertions returned by an identity provider.
// They are treated as immutable once produced.
type Claims struct {
	UID           string   `json:"uid"`
	Exp           int64    `json:"exp"`
	MID           string   `json:"mid"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"email_verified"`
	Email         string   `json:"email,omitempty"`
	IssuedAt      int64    `json:"iat,omitempty"`
}

// ExpiresAt returns the expiry as a time.Time
func (c *Claims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}

// Expired reports whether the claims have expired at now
func (c *Claims) Expired(now time.Time) bool {
	return now.Unix() >= c.Exp
}

// HasRole checks if the claims carry a specific role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// superuserClaims builds the fixed development claims for mid
func superuserClaims(mid string) *Claims {
	roles := make([]string, len(SuperuserRoles))
	copy(roles, SuperuserRoles)
	return &Claims{
		UID:           "",
		Exp:           SuperuserExpiry,
		MID:           mid,
		Roles:         roles,
		EmailVerified: true,
	}
}

// tokenClaims is the JWT payload shape of a Firebase ID token carrying the
// custom mid and roles claims
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID        string   `json:"user_id"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	MID           string   `json:"mid"`
	Roles         []string `json:"roles"`
}

// toClaims converts a JWT payload into Claims
func (tc *tokenClaims) toClaims() (*Claims, error) {
	uid := tc.Subject
	if uid == "" {
		uid = tc.UserID
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	claims := &Claims{
		UID:           uid,
		MID:           tc.MID,
		Roles:         tc.Roles,
		EmailVerified: tc.EmailVerified,
		Email:         tc.Email,
	}
	if tc.ExpiresAt != nil {
		claims.Exp = tc.ExpiresAt.Unix()
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Unix()
	}
	return claims, nil
}

// ExtractClaims parses claims from a JWT without verifying it.
// Only use it for diagnostics; never to authorize a request.
func ExtractClaims(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	tc := &tokenClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, tc); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	return tc.toClaims()
}
