package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultJWKSURL serves the public keys that sign Firebase ID tokens
const DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSConfig holds configuration for JWKSVerifier
type JWKSConfig struct {
	// ProjectID derives the expected issuer and audience when they are not set
	ProjectID   string
	JWKSURL     string
	Issuer      string
	Audience    string
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
	// MinRefetchInterval bounds how often an unknown kid may force a refetch
	MinRefetchInterval time.Duration
}

// JWKSVerifier verifies RS256 ID tokens offline against a JWKS endpoint.
// It cannot check revocation.
type JWKSVerifier struct {
	jwksURL    string
	issuer     string
	audience   string
	httpClient *http.Client
	logger     *zap.Logger

	jwksCache    *JWKS
	jwksCacheExp time.Time
	jwksCacheTTL time.Duration
	jwksFetched  time.Time
	minRefetch   time.Duration
	cacheMu      sync.RWMutex

	keyCache   map[string]*rsa.PublicKey
	keyCacheMu sync.RWMutex
}

// NewJWKSVerifier creates a new JWKS based verifier
func NewJWKSVerifier(config JWKSConfig, logger *zap.Logger) *JWKSVerifier {
	if config.CacheTTL == 0 {
		config.CacheTTL = 1 * time.Hour
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}
	if config.MinRefetchInterval == 0 {
		config.MinRefetchInterval = 30 * time.Second
	}
	if config.JWKSURL == "" {
		config.JWKSURL = DefaultJWKSURL
	}
	if config.Issuer == "" {
		config.Issuer = "https://securetoken.google.com/" + config.ProjectID
	}
	if config.Audience == "" {
		config.Audience = config.ProjectID
	}

	return &JWKSVerifier{
		jwksURL:      config.JWKSURL,
		issuer:       config.Issuer,
		audience:     config.Audience,
		jwksCacheTTL: config.CacheTTL,
		minRefetch:   config.MinRefetchInterval,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		logger:   logger,
		keyCache: make(map[string]*rsa.PublicKey),
	}
}

// Verify validates the token signature, expiry, issuer and audience
func (v *JWKSVerifier) Verify(ctx context.Context, tokenString string, checkRevoked bool) (*Claims, error) {
	if checkRevoked {
		v.logger.Debug("revocation check requested but not supported by offline verification")
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("kid header not found")
		}

		publicKey, err := v.getPublicKey(ctx, kid)
		if err != nil {
			return nil, fmt.Errorf("failed to get public key: %w", err)
		}

		return publicKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, ErrJWKSFetchFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	tc, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if tc.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, tc.Issuer)
	}

	if !v.containsAudience(tc.Audience, v.audience) {
		return nil, ErrInvalidAudience
	}

	return tc.toClaims()
}

// FetchJWKS fetches the key set, serving from cache while it is fresh
func (v *JWKSVerifier) FetchJWKS(ctx context.Context) (*JWKS, error) {
	v.cacheMu.RLock()
	if v.jwksCache != nil && time.Now().Before(v.jwksCacheExp) {
		defer v.cacheMu.RUnlock()
		return v.jwksCache, nil
	}
	v.cacheMu.RUnlock()

	return v.refreshJWKS(ctx)
}

// refreshJWKS fetches the key set and replaces the cached copy
func (v *JWKSVerifier) refreshJWKS(ctx context.Context) (*JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrJWKSFetchFailed, err)
	}

	v.cacheMu.Lock()
	v.jwksCache = &jwks
	v.jwksFetched = time.Now()
	v.jwksCacheExp = v.jwksFetched.Add(v.jwksCacheTTL)
	v.cacheMu.Unlock()

	v.logger.Debug("jwks refreshed", zap.Int("keys", len(jwks.Keys)))

	return &jwks, nil
}

// getPublicKey retrieves the public key for a given kid
func (v *JWKSVerifier) getPublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.keyCacheMu.RLock()
	if key, exists := v.keyCache[kid]; exists {
		v.keyCacheMu.RUnlock()
		return key, nil
	}
	v.keyCacheMu.RUnlock()

	jwks, err := v.FetchJWKS(ctx)
	if err != nil {
		return nil, err
	}

	jwk := jwks.find(kid)
	if jwk == nil && v.canRefetch() {
		// Keys rotate ahead of the cache TTL
		v.logger.Debug("kid not in cached jwks, refetching", zap.String("kid", kid))
		if jwks, err = v.refreshJWKS(ctx); err != nil {
			return nil, err
		}
		jwk = jwks.find(kid)
	}

	if jwk == nil {
		return nil, fmt.Errorf("key with kid %s not found in JWKS", kid)
	}

	publicKey, err := jwkToRSAPublicKey(jwk)
	if err != nil {
		return nil, fmt.Errorf("failed to convert JWK to RSA public key: %w", err)
	}

	v.keyCacheMu.Lock()
	v.keyCache[kid] = publicKey
	v.keyCacheMu.Unlock()

	return publicKey, nil
}

func (s *JWKS) find(kid string) *JWK {
	for i := range s.Keys {
		if s.Keys[i].Kid == kid {
			return &s.Keys[i]
		}
	}
	return nil
}

func (v *JWKSVerifier) canRefetch() bool {
	v.cacheMu.RLock()
	defer v.cacheMu.RUnlock()
	return time.Since(v.jwksFetched) >= v.minRefetch
}

// jwkToRSAPublicKey converts a JWK to an RSA public key
func jwkToRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e*256 + int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

func (v *JWKSVerifier) containsAudience(audiences jwt.ClaimStrings, expected string) bool {
	for _, aud := range audiences {
		if aud == expected {
			return true
		}
	}
	return false
}

// InvalidateCache drops cached keys, forcing a refetch on the next verification
func (v *JWKSVerifier) InvalidateCache() {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	v.jwksCache = nil
	v.jwksCacheExp = time.Time{}
	v.jwksFetched = time.Time{}

	v.keyCacheMu.Lock()
	defer v.keyCacheMu.Unlock()
	v.keyCache = make(map[string]*rsa.PublicKey)
}

// GetCacheStats returns cache statistics
func (v *JWKSVerifier) GetCacheStats() map[string]interface{} {
	v.cacheMu.RLock()
	defer v.cacheMu.RUnlock()

	v.keyCacheMu.RLock()
	defer v.keyCacheMu.RUnlock()

	stats := map[string]interface{}{
		"jwks_cached":       v.jwksCache != nil,
		"jwks_expires_at":   v.jwksCacheExp,
		"cached_keys_count": len(v.keyCache),
	}

	if v.jwksCache != nil {
		stats["jwks_keys_count"] = len(v.jwksCache.Keys)
	}

	return stats
}
