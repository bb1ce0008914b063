package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_GenerateAndParse(t *testing.T) {
	maker := NewJWTMaker("test-secret", time.Minute)

	token, err := maker.GenerateToken("admin", "admin", "uid-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "uid-1", claims.UserUID)
}

func TestMaker_ParseToken_Errors(t *testing.T) {
	maker := NewJWTMaker("test-secret", time.Minute)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name: "garbage token",
			token: func(_ *testing.T) string {
				return "not-a-jwt"
			},
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				other := NewJWTMaker("other-secret", time.Minute)
				token, err := other.GenerateToken("admin", "admin", "uid-1")
				require.NoError(t, err)
				return token
			},
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				expired := NewJWTMaker("test-secret", -time.Minute)
				token, err := expired.GenerateToken("admin", "admin", "uid-1")
				require.NoError(t, err)
				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := maker.ParseToken(tt.token(t))
			assert.Error(t, err)
		})
	}
}
