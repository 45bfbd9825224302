package security

import (
	"testing"

	"zestpass/util"

	"github.com/stretchr/testify/require"
)

// Test Bcrypt hash and compare logic
func TestBcryptHash(t *testing.T) {
	str := util.RandomString(10)

	hashed, err := BcryptHash(str)
	require.NoError(t, err)
	require.NotEqual(t, str, hashed)

	require.True(t, BcryptCompare(hashed, str))
	require.False(t, BcryptCompare(hashed, str+"x"))
}
