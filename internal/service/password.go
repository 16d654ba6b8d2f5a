package service

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects inputs over 72 bytes, so passwords are reduced to a
// fixed-length SHA-256 digest first. The base64 form keeps NUL bytes out.
func passwordDigest(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(passwordDigest(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func comparePassword(hash []byte, password string) error {
	return bcrypt.CompareHashAndPassword(hash, passwordDigest(password))
}
