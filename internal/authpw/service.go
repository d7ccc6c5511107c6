// Package authpw registers accounts, signs them in with a password and
// verifies their email address.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"corkboard/internal/auth"
	"corkboard/internal/content"
	"corkboard/internal/store"
	"corkboard/internal/util"
)

var (
	ErrMissingFields            = errors.New("username, email, and password are required")
	ErrInvalidUsername          = errors.New("username must be 3 to 30 characters without spaces")
	ErrInvalidEmail             = errors.New("email address is not valid")
	ErrWeakPassword             = errors.New("password must be at least 8 characters")
	ErrUsernameTaken            = errors.New("username already taken")
	ErrEmailTaken               = errors.New("email already registered")
	ErrInvalidCredentials       = errors.New("invalid username or password")
	ErrEmailNotVerified         = errors.New("email address not verified")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
)

const verificationTTL = 24 * time.Hour

type AccountStore interface {
	GetAccountByEmail(ctx context.Context, email string) (content.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (content.Account, error)
	CreateAccount(ctx context.Context, account content.Account) (content.Account, error)
	VerifyAccountEmail(ctx context.Context, tokenHash string) (content.Account, error)
}

type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type Options struct {
	// RequireEmailVerification blocks sign-in until the emailed token is used.
	// When false, accounts are created already verified.
	RequireEmailVerification bool
}

type Service struct {
	store  AccountStore
	hasher Hasher
	opts   Options
	now    func() time.Time
}

func NewService(store AccountStore, hasher Hasher, opts Options) *Service {
	return &Service{store: store, hasher: hasher, opts: opts, now: time.Now}
}

type SignUpRequest struct {
	Username string
	Email    string
	Password string
}

type SignUpResponse struct {
	Account content.Account
	// VerificationToken is the raw single-use token; only its hash is stored.
	VerificationToken   string
	RequiresEmailVerify bool
}

func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	if n := utf8.RuneCountInString(req.Username); n < 3 || n > 30 || strings.ContainsAny(req.Username, " \t\n@") {
		return nil, ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return nil, ErrWeakPassword
	}

	if err := s.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := content.Account{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hash,
		EmailVerified: !s.opts.RequireEmailVerification,
	}

	var token string
	if s.opts.RequireEmailVerification {
		token, err = util.NewToken(32)
		if err != nil {
			return nil, fmt.Errorf("generate verification token: %w", err)
		}
		tokenHash := auth.HashToken(token)
		expiresAt := s.now().Add(verificationTTL).UTC()
		account.VerificationToken = &tokenHash
		account.VerificationExpiresAt = &expiresAt
	}

	created, err := s.store.CreateAccount(ctx, account)
	if errors.Is(err, store.ErrConflict) {
		// Lost a race with a concurrent sign-up.
		if availErr := s.ensureAvailable(ctx, req.Username, req.Email); availErr != nil {
			return nil, availErr
		}
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return &SignUpResponse{
		Account:             created,
		VerificationToken:   token,
		RequiresEmailVerify: s.opts.RequireEmailVerification,
	}, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.store.GetAccountByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup username: %w", err)
	}
	if _, err := s.store.GetAccountByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup email: %w", err)
	}
	return nil
}

type SignInRequest struct {
	// Login is a username or an email address.
	Login    string
	Password string
}

// SignIn checks the password before the verification flag, so an unverified
// account is only reported to someone who knows its password.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (content.Account, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return content.Account{}, ErrInvalidCredentials
	}

	var account content.Account
	var err error
	if strings.Contains(login, "@") {
		account, err = s.store.GetAccountByEmail(ctx, login)
	} else {
		account, err = s.store.GetAccountByUsername(ctx, login)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return content.Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return content.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if !s.hasher.Verify(account.PasswordHash, req.Password) {
		return content.Account{}, ErrInvalidCredentials
	}
	if s.opts.RequireEmailVerification && !account.EmailVerified {
		return content.Account{}, ErrEmailNotVerified
	}
	return account, nil
}

// VerifyEmail consumes a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) (content.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return content.Account{}, ErrInvalidVerificationToken
	}
	account, err := s.store.VerifyAccountEmail(ctx, auth.HashToken(token))
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, store.ErrTokenExpired) {
		return content.Account{}, ErrInvalidVerificationToken
	}
	if err != nil {
		return content.Account{}, fmt.Errorf("verify email: %w", err)
	}
	return account, nil
}
