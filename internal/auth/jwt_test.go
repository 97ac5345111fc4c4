package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	adminID, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), adminID)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	token, err := GenerateToken(42)
	require.NoError(t, err)

	_, err = ValidateToken(token + "x")
	assert.Error(t, err)
}
