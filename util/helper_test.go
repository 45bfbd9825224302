package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomString(t *testing.T) {
	str := RandomString(12)
	require.Len(t, str, 12)
	for _, c := range str {
		require.Contains(t, alphabet, string(c))
	}
}

func TestGenerateQR(t *testing.T) {
	image, err := GenerateQR("ZST-M0ABCDEF-1A2B3C4D-9F0E")
	require.NoError(t, err)
	require.NotEmpty(t, image)

	// PNG signature
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, image[:4])
}

func TestGenerateSlug(t *testing.T) {
	require.Equal(t, "the-midnight-collective", GenerateSlug("The Midnight Collective"))
	require.NotEmpty(t, GenerateSlug("!!!"))
}

func TestNormalizeContact(t *testing.T) {
	require.Equal(t, "+919876543210", NormalizePhone(" +91 98765-43210 "))
	require.Equal(t, "9876543210", NormalizePhone("98765 43210"))
	require.Equal(t, "asha@example.com", NormalizeEmail("  Asha@Example.COM "))
}
