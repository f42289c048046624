package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FirebaseConfig holds configuration for the Firebase Admin verifier
type FirebaseConfig struct {
	ProjectID string
	// CredentialsFile is a service account JSON file. Application default
	// credentials are used when empty.
	CredentialsFile string
}

// idTokenVerifier is the subset of *auth.Client used for verification
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier verifies ID tokens through the Firebase Admin SDK
type FirebaseVerifier struct {
	client idTokenVerifier
	logger *zap.Logger
}

// NewFirebaseVerifier initializes the Firebase app and its auth client
func NewFirebaseVerifier(ctx context.Context, cfg FirebaseConfig, logger *zap.Logger) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase auth client: %w", err)
	}

	logger.Info("firebase auth client initialized", zap.String("project_id", cfg.ProjectID))

	return &FirebaseVerifier{client: client, logger: logger}, nil
}

// Verify verifies token with Firebase, optionally checking revocation
func (v *FirebaseVerifier) Verify(ctx context.Context, token string, checkRevoked bool) (*Claims, error) {
	var (
		decoded *auth.Token
		err     error
	)
	if checkRevoked {
		decoded, err = v.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	} else {
		decoded, err = v.client.VerifyIDToken(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	if decoded == nil {
		return nil, nil
	}

	return claimsFromFirebaseToken(decoded), nil
}

// claimsFromFirebaseToken maps a decoded Firebase token and its custom claims
func claimsFromFirebaseToken(t *auth.Token) *Claims {
	claims := &Claims{
		UID:      t.UID,
		Exp:      t.Expires,
		IssuedAt: t.IssuedAt,
	}

	if v, ok := t.Claims["email_verified"].(bool); ok {
		claims.EmailVerified = v
	}
	if v, ok := t.Claims["email"].(string); ok {
		claims.Email = v
	}
	if v, ok := t.Claims["mid"].(string); ok {
		claims.MID = v
	}

	switch roles := t.Claims["roles"].(type) {
	case []string:
		claims.Roles = append(claims.Roles, roles...)
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, s)
			}
		}
	}

	return claims
}
