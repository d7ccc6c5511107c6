// Package credential creates and checks the one-way password hashes stored
// on accounts and on anonymous posts and comments.
//
// New hashes are bcrypt. Imported legacy rows carry
// werkzeug hashes ("pbkdf2:sha256:600000$salt$hex" or
// "scrypt:32768:8:1$salt$hex"); those still verify.
package credential

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

var ErrUnsupportedHash = errors.New("unsupported password hash format")

const (
	legacyPBKDF2Iterations = 260000
	legacyScryptKeyLen     = 64
)

// Hasher hashes with bcrypt at Cost. The zero value uses bcrypt.DefaultCost.
type Hasher struct {
	Cost int
}

func (h Hasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

func (h Hasher) Verify(hash, password string) bool {
	return Verify(hash, password)
}

// Verify reports whether password matches hash. Unknown formats never match.
func Verify(hash, password string) bool {
	ok, err := verify(hash, password)
	return err == nil && ok
}

func verify(stored, password string) (bool, error) {
	switch {
	case strings.HasPrefix(stored, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, nil
	case strings.HasPrefix(stored, "pbkdf2:"), strings.HasPrefix(stored, "scrypt:"):
		return verifyWerkzeug(stored, password)
	default:
		return false, ErrUnsupportedHash
	}
}

func verifyWerkzeug(stored, password string) (bool, error) {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return false, ErrUnsupportedHash
	}
	method, salt, want := parts[0], parts[1], parts[2]
	expected, err := hex.DecodeString(want)
	if err != nil || len(expected) == 0 {
		return false, ErrUnsupportedHash
	}

	var got []byte
	fields := strings.Split(method, ":")
	switch fields[0] {
	case "pbkdf2":
		got, err = werkzeugPBKDF2(fields[1:], salt, password, len(expected))
	case "scrypt":
		got, err = werkzeugScrypt(fields[1:], salt, password)
	default:
		err = ErrUnsupportedHash
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, expected) == 1, nil
}

func werkzeugPBKDF2(args []string, salt, password string, keyLen int) ([]byte, error) {
	if len(args) == 0 || len(args) > 2 {
		return nil, ErrUnsupportedHash
	}
	var digest func() hash.Hash
	switch args[0] {
	case "sha1":
		digest = sha1.New
	case "sha256":
		digest = sha256.New
	case "sha512":
		digest = sha512.New
	default:
		return nil, ErrUnsupportedHash
	}
	iterations := legacyPBKDF2Iterations
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return nil, ErrUnsupportedHash
		}
		iterations = n
	}
	return pbkdf2.Key([]byte(password), []byte(salt), iterations, keyLen, digest), nil
}

func werkzeugScrypt(args []string, salt, password string) ([]byte, error) {
	n, r, p := 1<<15, 8, 1
	if len(args) != 0 && len(args) != 3 {
		return nil, ErrUnsupportedHash
	}
	if len(args) == 3 {
		values := make([]int, 3)
		for i, arg := range args {
			v, err := strconv.Atoi(arg)
			if err != nil || v <= 0 {
				return nil, ErrUnsupportedHash
			}
			values[i] = v
		}
		n, r, p = values[0], values[1], values[2]
	}
	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, legacyScryptKeyLen)
	if err != nil {
		return nil, ErrUnsupportedHash
	}
	return key, nil
}
