package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialRoundTrip(t *testing.T) {
	sealed, err := EncryptCredential("blogger-access-token", "passphrase")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "blogger-access-token")

	plain, err := DecryptCredential(sealed, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "blogger-access-token", plain)

	_, err = DecryptCredential(sealed, "other")
	assert.Error(t, err)

	empty, err := DecryptCredential("", "passphrase")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestToken(t *testing.T) {
	token, err := GenerateToken("secret", 42, true, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.True(t, claims.Admin)

	_, err = ValidateToken("wrong", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", 42, false, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.Error(t, err)
}
