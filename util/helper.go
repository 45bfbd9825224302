package util

import (
	"log/slog"
	"math/rand"
	"os"
	"strings"

	"github.com/gosimple/slug"
	"github.com/skip2/go-qrcode"
)

// Global logger
var LOGGER = slog.New(slog.NewTextHandler(os.Stdout, nil))

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate a random string with length n. The character possible is defined in the alphabet constant
func RandomString(n int) string {
	var sb strings.Builder
	k := len(alphabet)

	for range n {
		c := alphabet[rand.Intn(k)]
		sb.WriteByte(c)
	}

	return sb.String()
}

// Generate QR PNG image of the content
func GenerateQR(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, 256)
}

// Generate slug. A random suffix is appended when the content has no sluggable character
func GenerateSlug(content string) string {
	s := slug.Make(content)
	if s == "" {
		return strings.ToLower(RandomString(8))
	}
	return s
}

// Normalize a phone number to digits with an optional leading +, so that lookups by phone match
// regardless of spaces and dashes
func NormalizePhone(phone string) string {
	var sb strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Normalize an email for lookups
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
