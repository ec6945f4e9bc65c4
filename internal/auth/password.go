package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

// Parameters match the records already in the shared remote store, so a
// hash produced here verifies on every device and vice versa.
const (
	saltLength = 16
	keyLength  = 64
	iterations = 10000
)

var ErrWeakPassword = errors.New("password must be at least 8 characters with an uppercase letter, a lowercase letter, and a digit or special character")

// GenerateSalt returns a base64-encoded 16-byte random salt.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// HashPassword derives a base64-encoded PBKDF2-HMAC-SHA256 key from the
// password and a base64-encoded salt.
func HashPassword(password, salt string) (string, error) {
	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), saltBytes, iterations, keyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

// VerifyPassword reports whether password hashes to expected under salt.
func VerifyPassword(password, salt, expected string) bool {
	hash, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(expected)) == 1
}

// ValidatePassword enforces the registration password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigitOrSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasDigitOrSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigitOrSpecial {
		return ErrWeakPassword
	}
	return nil
}
