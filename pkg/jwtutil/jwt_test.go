package jwtutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUtil(t *testing.T, lifetime time.Duration) *JWTUtil {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewFromKeys(key, &key.PublicKey, "authenticity-product", lifetime)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	j := newTestUtil(t, time.Hour)

	token, err := j.GenerateToken("user-123", "admin")
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
}

func TestExpiredTokenRejected(t *testing.T) {
	j := newTestUtil(t, -time.Minute)

	token, err := j.GenerateToken("user-123", "user")
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}

func TestWrongKeyRejected(t *testing.T) {
	j := newTestUtil(t, time.Hour)
	other := newTestUtil(t, time.Hour)

	token, err := j.GenerateToken("user-123", "user")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestAudienceSeparation(t *testing.T) {
	j := newTestUtil(t, time.Hour)

	// A reset token must never pass as an access token.
	reset, err := j.GenerateResetToken("user-123", "hash")
	require.NoError(t, err)
	_, err = j.ValidateToken(reset)
	assert.Error(t, err)

	// And an access token must never pass as a reset token.
	access, err := j.GenerateToken("user-123", "user")
	require.NoError(t, err)
	_, err = j.ValidateResetToken(access)
	assert.Error(t, err)
}

func TestResetTokenFingerprint(t *testing.T) {
	j := newTestUtil(t, time.Hour)

	token, err := j.GenerateResetToken("user-123", "old-hash")
	require.NoError(t, err)

	claims, err := j.ValidateResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.True(t, MatchesFingerprint("old-hash", claims.Fingerprint))

	// Changing the password invalidates outstanding reset tokens.
	assert.False(t, MatchesFingerprint("new-hash", claims.Fingerprint))
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	j := newTestUtil(t, time.Hour)

	token, err := j.GenerateVerifyToken("user-123", "user@example.com")
	require.NoError(t, err)

	userID, email, err := j.ValidateVerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
	assert.Equal(t, "user@example.com", email)
}

func TestGarbageTokenRejected(t *testing.T) {
	j := newTestUtil(t, time.Hour)
	_, err := j.ValidateToken("not.a.token")
	assert.Error(t, err)
}
