package jwtauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookbridge/internal/faults"
)

var jwtService = NewService("test-signing-key")

func Test_GenerateToken(t *testing.T) {
	token, err := jwtService.GenerateToken("ops@example.org", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.org", claims.Operator)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_GenerateToken_NoKey(t *testing.T) {
	_, err := NewService("").GenerateToken("ops@example.org", time.Hour)
	require.Error(t, err)
	assert.Equal(t, faults.CategoryConfig, faults.CategoryOf(err))
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.Equal(t, faults.CategoryAuth, faults.CategoryOf(err))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token, err := jwtService.GenerateToken("ops@example.org", -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := NewService("other-key").GenerateToken("ops@example.org", time.Hour)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, faults.CategoryAuth, faults.CategoryOf(err))
}
