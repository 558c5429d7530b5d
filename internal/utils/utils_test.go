package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", 42, "ADMIN", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: 42, Role: "ADMIN"}, claims)
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken("s3cret", 7, "USER", 15)
	require.NoError(t, err)

	expired, err := NewAccessToken("s3cret", 7, "USER", -1)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(time.Hour).Unix()})
	noneRaw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"s3cret", expired.Token},
		"alg none":     {"s3cret", noneRaw},
		"garbage":      {"s3cret", "not-a-jwt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRefreshTokenHashing(t *testing.T) {
	a, err := NewRefreshToken(7)
	require.NoError(t, err)
	b, err := NewRefreshToken(7)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96)
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong"), ErrPasswordMismatch)
}

func TestVerifyPasswordDamagedHash(t *testing.T) {
	err := VerifyPassword("not-a-bcrypt-hash", "anything")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("pw", 99)
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "pw"))
}
