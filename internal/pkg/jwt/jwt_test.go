package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	token, err := GenerateToken("form-client", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "form-client", claims.Subject)

	_, err = ParseToken(token, []byte("other"))
	require.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	secret := []byte("s3cret")
	token, err := GenerateToken("form-client", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token, secret)
	require.Error(t, err)
}
