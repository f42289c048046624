package authctx

import (
	"context"

	"github.com/upb/newsroom-api/identity"
)

// AuthorizationContext is the per-request view of who is calling.
// Empty AuthToken and MID with nil DecodedToken is the anonymous caller.
type AuthorizationContext struct {
	AuthToken    string           `json:"authToken"`
	DecodedToken *identity.Claims `json:"decodedToken"`
	MID          string           `json:"mid"`
}

// Anonymous returns the context of an unauthenticated caller
func Anonymous() *AuthorizationContext {
	return &AuthorizationContext{}
}

// IsAnonymous reports whether no credential was presented
func (a *AuthorizationContext) IsAnonymous() bool {
	return a == nil || (a.AuthToken == "" && a.DecodedToken == nil)
}

// UID returns the verified caller uid, or empty string
func (a *AuthorizationContext) UID() string {
	if a == nil || a.DecodedToken == nil {
		return ""
	}
	return a.DecodedToken.UID
}

type contextKey struct{}

// WithContext stores the authorization context on ctx
func WithContext(ctx context.Context, ac *AuthorizationContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

// FromContext returns the authorization context stored on ctx, or the
// anonymous context when none was stored
func FromContext(ctx context.Context) *AuthorizationContext {
	if ac, ok := ctx.Value(contextKey{}).(*AuthorizationContext); ok && ac != nil {
		return ac
	}
	return Anonymous()
}
