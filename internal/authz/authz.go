// Package authz decides whether a caller may edit or delete a post or
// comment. The same precedence applies to both content kinds and to the
// check that opens an edit form.
package authz

import (
	"crypto/subtle"

	"corkboard/internal/content"
)

type Reason string

const (
	ReasonAdminOverride Reason = "admin-override"
	ReasonOwnerSession  Reason = "owner-session"
	ReasonPasswordMatch Reason = "password-match"
	ReasonDenied        Reason = "denied"
)

// Verifier compares a plaintext password against a stored one-way hash.
type Verifier interface {
	Verify(hash, password string) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(hash, password string) bool

func (f VerifierFunc) Verify(hash, password string) bool {
	return f(hash, password)
}

type Config struct {
	// AdminSecret authorizes any mutation. Empty disables the override.
	AdminSecret string
}

// Caller is what a mutation request presents. Every field is optional.
type Caller struct {
	AccountID   *int64
	Password    string
	AdminSecret string
}

type Decision struct {
	Authorized bool
	Reason     Reason
}

type Resolver struct {
	adminSecret string
	verifier    Verifier
}

func NewResolver(cfg Config, verifier Verifier) *Resolver {
	return &Resolver{adminSecret: cfg.AdminSecret, verifier: verifier}
}

// Resolve applies, first match wins: admin secret, owning session, password.
func (r *Resolver) Resolve(author content.Author, caller Caller) Decision {
	if r.adminMatches(caller.AdminSecret) {
		return Decision{Authorized: true, Reason: ReasonAdminOverride}
	}
	if author.AccountID != nil {
		// Linked content never carries a usable password, so a different
		// account cannot fall through to the password check.
		if caller.AccountID != nil && *caller.AccountID == *author.AccountID {
			return Decision{Authorized: true, Reason: ReasonOwnerSession}
		}
		return denied()
	}
	if author.HasCredential() && caller.Password != "" && r.verifier != nil {
		if r.verifier.Verify(*author.PasswordHash, caller.Password) {
			return Decision{Authorized: true, Reason: ReasonPasswordMatch}
		}
	}
	return denied()
}

// IsAdmin reports whether secret matches the configured admin secret.
func (r *Resolver) IsAdmin(secret string) bool {
	return r.adminMatches(secret)
}

func (r *Resolver) adminMatches(secret string) bool {
	if r.adminSecret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(r.adminSecret)) == 1
}

func denied() Decision {
	return Decision{Authorized: false, Reason: ReasonDenied}
}
