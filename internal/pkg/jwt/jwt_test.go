package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/leave-portal-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *JWTService {
	return NewJWTService("test-secret-key-for-unit-tests", 15*time.Minute, 24*time.Hour, false)
}

func TestGenerateAccessToken_Claims(t *testing.T) {
	svc := newTestService()

	token, expiresAt, err := svc.GenerateAccessToken(AccessClaims{
		UserID:     "u-1",
		Name:       "Asha Rao",
		Email:      "asha@college.edu",
		Role:       user.RoleHOD,
		Department: "Physics",
	})
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	parsed, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	require.NoError(t, err)

	claims, err := parsed.AsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims["user_id"])
	assert.Equal(t, "Asha Rao", claims["name"])
	assert.Equal(t, "hod", claims["role"])
	assert.Equal(t, "Physics", claims["department"])
	assert.Equal(t, TypeAccess, claims["type"])
}

func TestParseRefreshToken(t *testing.T) {
	svc := newTestService()

	token, _, err := svc.GenerateRefreshToken("u-2")
	require.NoError(t, err)

	userID, err := svc.ParseRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-2", userID)
}

func TestParseRefreshToken_RejectsAccessToken(t *testing.T) {
	svc := newTestService()

	token, _, err := svc.GenerateAccessToken(AccessClaims{UserID: "u-3", Role: user.RoleTeacher})
	require.NoError(t, err)

	_, err = svc.ParseRefreshToken(token)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestRefreshTokensAreUnique(t *testing.T) {
	svc := newTestService()

	a, _, err := svc.GenerateRefreshToken("u-4")
	require.NoError(t, err)
	b, _, err := svc.GenerateRefreshToken("u-4")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestRevokeToken(t *testing.T) {
	svc := newTestService()

	assert.False(t, svc.IsTokenRevoked("abc"))
	svc.RevokeToken("abc")
	assert.True(t, svc.IsTokenRevoked("abc"))
}

func TestSSEToken_RoundTrip(t *testing.T) {
	svc := newTestService()

	token, expiresIn, err := svc.GenerateSSEToken("u-5")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	userID, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-5", userID)
}

func TestSSEToken_WrongSecret(t *testing.T) {
	token, _, err := newTestService().GenerateSSEToken("u-6")
	require.NoError(t, err)

	other := NewJWTService("a-different-secret", time.Minute, time.Hour, false)
	_, err = other.ValidateSSEToken(token)
	assert.Error(t, err)
}

func TestExpiredAccessTokenFailsVerification(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := svc.GenerateAccessToken(AccessClaims{UserID: "u-7", Role: user.RoleTeacher})
	require.NoError(t, err)

	_, err = jwtauth.VerifyToken(svc.JWTAuth(), token)
	assert.Error(t, err)
}

func TestRefreshTokenCookie(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour, true)
	exp := time.Now().Add(time.Hour).Unix()

	c := svc.RefreshTokenCookie("tok", exp)
	assert.Equal(t, "refresh_token", c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, exp, c.Expires.Unix())
}
