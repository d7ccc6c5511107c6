// Package util has small random identifier helpers.
package util

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// NewID returns prefix_<32 hex chars>, or just the hex when prefix is empty.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewToken returns n random bytes encoded for use in URLs. Tokens are
// handed to users once and only their hash is stored.
func NewToken(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
