package security

import (
	"testing"
	"time"

	"zestpass/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var service = NewJWTService([]byte("SOME-SECRET-KEY"), 60*time.Minute, 24*time.Hour)

func TestToken(t *testing.T) {
	for _, tokenType := range []TokenType{AccessToken, RefreshToken} {
		id := uuid.New()

		token, err := service.CreateToken(id, db.Host, tokenType)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		result, err := service.VerifyToken(token)
		require.NoError(t, err)

		require.Equal(t, id, result.ID)
		require.Equal(t, id.String(), result.Subject)
		require.Equal(t, db.Host, result.Role)
		require.Equal(t, tokenType, result.TokenType)
	}
}

func TestTokenRejected(t *testing.T) {
	_, err := service.CreateToken(uuid.New(), db.Customer, TokenType("session"))
	require.Error(t, err)

	// Signed with another key
	other := NewJWTService([]byte("OTHER-KEY"), time.Hour, time.Hour)
	token, err := other.CreateToken(uuid.New(), db.Customer, AccessToken)
	require.NoError(t, err)
	_, err = service.VerifyToken(token)
	require.Error(t, err)

	// Expired beyond the leeway
	expired := NewJWTService([]byte("SOME-SECRET-KEY"), -time.Minute, time.Hour)
	token, err = expired.CreateToken(uuid.New(), db.Customer, AccessToken)
	require.NoError(t, err)
	_, err = service.VerifyToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	// Unknown role
	token, err = service.CreateToken(uuid.New(), db.Role("superuser"), AccessToken)
	require.NoError(t, err)
	_, err = service.VerifyToken(token)
	require.Error(t, err)

	_, err = service.VerifyToken("not-a-token")
	require.Error(t, err)
}
