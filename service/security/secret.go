package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hash a password with bcrypt
func BcryptHash(str string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(str), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Compare a bcrypt hash with a plain text password
func BcryptCompare(hashedStr, plainStr string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedStr), []byte(plainStr))
	return err == nil
}
