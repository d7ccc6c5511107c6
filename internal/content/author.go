package content

import (
	"errors"
	"fmt"
	"strings"

	"corkboard/internal/policy"
)

var (
	ErrLoginRequired      = errors.New("login required")
	ErrAuthorNameRequired = errors.New("author name is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidAuthorship  = errors.New("content must be owned by an account or protected by a password, not both")
)

// AuthorMode classifies how a content item records who wrote it.
type AuthorMode string

const (
	// AuthorLinked content belongs to a registered account.
	AuthorLinked AuthorMode = "linked"
	// AuthorAnonymous content carries a display name and a password hash.
	AuthorAnonymous AuthorMode = "anonymous"
	// AuthorLegacy content has neither an owner nor a password. Only the
	// admin secret can change it.
	AuthorLegacy AuthorMode = "legacy"
	// AuthorInvalid content has both an owner and a password hash.
	AuthorInvalid AuthorMode = "invalid"
)

// Author is the authorship half of a post or comment. Exactly one of
// AccountID and PasswordHash is set on content created through
// LinkedAuthor or AnonymousAuthor. Name is the display name in both modes.
type Author struct {
	AccountID    *int64  `db:"user_id"`
	Name         string  `db:"author"`
	PasswordHash *string `db:"password"`
}

// HashFunc produces a one-way salted hash of a plaintext password.
type HashFunc func(password string) (string, error)

func LinkedAuthor(accountID int64, displayName string) (Author, error) {
	if accountID <= 0 {
		return Author{}, ErrInvalidAuthorship
	}
	id := accountID
	return Author{AccountID: &id, Name: displayName}, nil
}

func AnonymousAuthor(name, passwordHash string) (Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Author{}, ErrAuthorNameRequired
	}
	if passwordHash == "" {
		return Author{}, ErrPasswordRequired
	}
	hash := passwordHash
	return Author{Name: name, PasswordHash: &hash}, nil
}

// NewAuthor decides the authorship of a new content item. A signed-in
// caller always produces linked content; submitted name and password are
// ignored. Without a session the item is anonymous, which the open policy
// allows and the members-only policy rejects.
func NewAuthor(mode policy.Mode, action policy.Action, session *Account, name, password string, hash HashFunc) (Author, error) {
	if session != nil {
		return LinkedAuthor(session.ID, session.Username)
	}
	if !policy.Can(mode, false, action) {
		return Author{}, ErrLoginRequired
	}
	if strings.TrimSpace(name) == "" {
		return Author{}, ErrAuthorNameRequired
	}
	if password == "" {
		return Author{}, ErrPasswordRequired
	}
	digest, err := hash(password)
	if err != nil {
		return Author{}, fmt.Errorf("hash password: %w", err)
	}
	return AnonymousAuthor(name, digest)
}

// OwnerID returns the owning account id, or 0 for content without an owner.
func (a Author) OwnerID() int64 {
	if a.AccountID == nil {
		return 0
	}
	return *a.AccountID
}

// HasCredential reports whether the item can be unlocked with a password.
func (a Author) HasCredential() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

func (a Author) Mode() AuthorMode {
	owned := a.AccountID != nil
	switch {
	case owned && a.HasCredential():
		return AuthorInvalid
	case owned:
		return AuthorLinked
	case a.HasCredential():
		return AuthorAnonymous
	default:
		return AuthorLegacy
	}
}

// Validate checks the creation-time invariant. Legacy rows loaded from
// storage are not expected to pass it.
func (a Author) Validate() error {
	switch a.Mode() {
	case AuthorLinked, AuthorAnonymous:
		return nil
	default:
		return ErrInvalidAuthorship
	}
}
