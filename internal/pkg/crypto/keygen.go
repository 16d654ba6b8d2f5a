// Package crypto provides key and secret generation for Hedgehog.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// SessionKeySize is the size of the session signing key in bytes.
	SessionKeySize = 32

	// MinPasswordLength is the shortest password GeneratePassword produces.
	MinPasswordLength = 12
)

// passwordChars avoids characters that are easy to confuse when read aloud.
const passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789-_."

var (
	// ErrInvalidHexKey indicates the hex key is malformed or wrong length.
	ErrInvalidHexKey = errors.New("invalid hex key: must be 64 hex characters (32 bytes)")
)

// GenerateSessionKey returns a random key for signing session tokens.
func GenerateSessionKey() ([]byte, error) {
	key := make([]byte, SessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return key, nil
}

// GenerateHexKey returns a random session key as a 64-character hex string,
// suitable for auth.session_key.
func GenerateHexKey() (string, error) {
	key, err := GenerateSessionKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// ParseHexKey parses a hex-encoded key string into bytes.
// Expects 64 hex characters (32 bytes).
func ParseHexKey(hexKey string) ([]byte, error) {
	hexKey = strings.TrimSpace(hexKey)

	if len(hexKey) != SessionKeySize*2 {
		return nil, ErrInvalidHexKey
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHexKey, err)
	}

	return key, nil
}

// GeneratePassword returns a random password of the given length.
// Lengths below MinPasswordLength are raised to it.
func GeneratePassword(length int) (string, error) {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}
	return generateRandomString(length, passwordChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := len(charset)

	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i := 0; i < length; i++ {
		result[i] = charset[int(randomBytes[i])%charsetLen]
	}

	return string(result), nil
}
