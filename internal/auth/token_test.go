package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	claims := NewClaims(7, "avery", time.Hour, time.Now())
	issued, err := IssueToken(secret, claims)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	parsed, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if parsed.AccountID != 7 || parsed.Username != "avery" || parsed.JTI != claims.JTI {
		t.Fatalf("unexpected claims: %+v", parsed)
	}
	if !strings.HasPrefix(parsed.JTI, "ses_") {
		t.Fatalf("expected session id prefix, got %q", parsed.JTI)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, NewClaims(7, "avery", -time.Minute, time.Now()))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, issued); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, NewClaims(7, "avery", time.Hour, time.Now()))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	forged, err := IssueToken([]byte("other"), NewClaims(1, "admin", time.Hour, time.Now()))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	payload, _, _ := strings.Cut(forged, ".")
	_, signature, _ := strings.Cut(issued, ".")

	for _, token := range []string{"", "abc", issued + ".x", payload + "." + signature, forged} {
		if _, err := ParseToken(secret, token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("ParseToken(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}
