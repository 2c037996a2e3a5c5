package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivncook/config"
)

func TestJWTRoundTrip(t *testing.T) {
	config.InitConfig()

	franchiseID := uint(7)
	token, err := GenerateJWT(42, "jean@test.local", "franchisee", &franchiseID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "jean@test.local", claims.Email)
	assert.Equal(t, "franchisee", claims.Role)
	require.NotNil(t, claims.FranchiseID)
	assert.Equal(t, uint(7), *claims.FranchiseID)
}

func TestValidateJWTRejectsExpiredToken(t *testing.T) {
	config.InitConfig()

	token, err := GenerateJWT(1, "a@test.local", "admin", nil, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	config.InitConfig()

	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}
