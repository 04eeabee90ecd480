package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccessSecret = "test-access-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testAccessSecret, service.accessSecret)
	assert.Equal(t, time.Hour, service.accessTokenExpiry)
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)

	token, expiresAt, err := service.GenerateAccessToken("ops@hotel.example.com", []string{"operator"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@hotel.example.com", claims.Email)
	assert.Equal(t, "ops@hotel.example.com", claims.Subject)
	assert.True(t, claims.HasRole("operator"))
	assert.False(t, claims.HasRole("admin"))
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)
	other := NewService("another-secret", time.Hour)

	token, _, err := other.GenerateAccessToken("ops@hotel.example.com", []string{"operator"})
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	service := NewService(testAccessSecret, -time.Minute)

	token, _, err := service.GenerateAccessToken("ops@hotel.example.com", []string{"operator"})
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
	assert.True(t, service.IsTokenExpired(token))
}

func TestValidateAccessToken_WrongSigningMethod(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)

	claims := Claims{
		Email:     "ops@hotel.example.com",
		TokenType: AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(tokenString)
	assert.Error(t, err)
}

func TestIsTokenExpired_Garbage(t *testing.T) {
	service := NewService(testAccessSecret, time.Hour)
	assert.True(t, service.IsTokenExpired("not-a-token"))
}
