package identity

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIDTokenVerifier struct {
	mock.Mock
}

func (m *mockIDTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Token), args.Error(1)
}

func (m *mockIDTokenVerifier) VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Token), args.Error(1)
}

func TestFirebaseVerifier_Verify(t *testing.T) {
	ctx := context.Background()
	token := &auth.Token{
		UID:      "fb-uid",
		Expires:  1_900_000_000,
		IssuedAt: 1_899_996_400,
		Claims: map[string]interface{}{
			"email":          "reporter@example.com",
			"email_verified": true,
			"mid":            "mid-9",
			"roles":          []interface{}{"issue.admin", 42, "tag.admin"},
		},
	}

	t.Run("checkRevoked uses the revocation aware call", func(t *testing.T) {
		client := new(mockIDTokenVerifier)
		client.On("VerifyIDTokenAndCheckRevoked", ctx, "raw").Return(token, nil)

		v := &FirebaseVerifier{client: client, logger: zap.NewNop()}
		claims, err := v.Verify(ctx, "raw", true)

		require.NoError(t, err)
		assert.Equal(t, "fb-uid", claims.UID)
		assert.Equal(t, int64(1_900_000_000), claims.Exp)
		assert.Equal(t, "mid-9", claims.MID)
		assert.Equal(t, []string{"issue.admin", "tag.admin"}, claims.Roles)
		assert.True(t, claims.EmailVerified)
		assert.Equal(t, "reporter@example.com", claims.Email)
		client.AssertNotCalled(t, "VerifyIDToken", mock.Anything, mock.Anything)
	})

	t.Run("without checkRevoked", func(t *testing.T) {
		client := new(mockIDTokenVerifier)
		client.On("VerifyIDToken", ctx, "raw").Return(token, nil)

		v := &FirebaseVerifier{client: client, logger: zap.NewNop()}
		_, err := v.Verify(ctx, "raw", false)

		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("provider error is returned as is", func(t *testing.T) {
		providerErr := errors.New("boom")
		client := new(mockIDTokenVerifier)
		client.On("VerifyIDTokenAndCheckRevoked", ctx, "raw").Return(nil, providerErr)

		v := &FirebaseVerifier{client: client, logger: zap.NewNop()}
		claims, err := v.Verify(ctx, "raw", true)

		assert.Nil(t, claims)
		assert.Equal(t, providerErr, err)
	})

	t.Run("nil token yields nil claims", func(t *testing.T) {
		client := new(mockIDTokenVerifier)
		client.On("VerifyIDTokenAndCheckRevoked", ctx, "raw").Return(nil, nil)

		v := &FirebaseVerifier{client: client, logger: zap.NewNop()}
		claims, err := v.Verify(ctx, "raw", true)

		assert.NoError(t, err)
		assert.Nil(t, claims)
	})
}

func TestClaimsFromFirebaseToken_MissingCustomClaims(t *testing.T) {
	claims := claimsFromFirebaseToken(&auth.Token{UID: "u", Expires: 10})

	assert.Equal(t, "u", claims.UID)
	assert.Equal(t, "", claims.MID)
	assert.Empty(t, claims.Roles)
	assert.False(t, claims.EmailVerified)
}

func TestClaimsFromFirebaseToken_StringRoles(t *testing.T) {
	claims := claimsFromFirebaseToken(&auth.Token{
		UID:    "u",
		Claims: map[string]interface{}{"roles": []string{"media.admin"}},
	})

	assert.Equal(t, []string{"media.admin"}, claims.Roles)
}
