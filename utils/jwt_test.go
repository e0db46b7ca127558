package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	require.True(t, issuer.Enabled())

	token, err := issuer.GenerateSessionToken("session-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := issuer.ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "session-1", claims.Subject)
}

func TestSessionTokenRejected(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)

	other, err := NewTokenIssuer("other", time.Hour).GenerateSessionToken("session-1")
	require.NoError(t, err)
	_, err = issuer.ParseSessionToken(other)
	assert.Error(t, err)

	expired, err := NewTokenIssuer("secret", time.Nanosecond).GenerateSessionToken("session-1")
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = issuer.ParseSessionToken(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	// subject and session must agree
	mismatched := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		SessionID:        "a",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "b"},
	})
	signed, err := mismatched.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.ParseSessionToken(signed)
	assert.Error(t, err)

	_, err = issuer.ParseSessionToken("not-a-token")
	assert.Error(t, err)
}

func TestDisabledIssuer(t *testing.T) {
	issuer := NewTokenIssuer("", 0)
	assert.False(t, issuer.Enabled())

	token, err := issuer.GenerateSessionToken("s")
	require.NoError(t, err)
	assert.Empty(t, token)
}
