package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"corkboard/internal/auth"
	"corkboard/internal/authpw"
	"corkboard/internal/content"
	"corkboard/internal/media"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

// errForbidden is returned for every failed ownership check. The message is
// the same whichever rule failed.
var errForbidden = domainError(http.StatusForbidden, "FORBIDDEN", "incorrect password or no permission", nil)

var errRateLimited = domainError(http.StatusTooManyRequests, "RATE_LIMITED", "Too many posts. Please wait.", nil)

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, content.ErrLoginRequired):
		return http.StatusUnauthorized, "LOGIN_REQUIRED", "Sign in to post on this forum", nil
	case errors.Is(err, content.ErrUnknownBoard),
		errors.Is(err, content.ErrAuthorNameRequired),
		errors.Is(err, content.ErrPasswordRequired),
		errors.Is(err, content.ErrInvalidAuthorship),
		errors.Is(err, authpw.ErrMissingFields),
		errors.Is(err, authpw.ErrInvalidUsername),
		errors.Is(err, authpw.ErrInvalidEmail),
		errors.Is(err, authpw.ErrWeakPassword):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, media.ErrNotConfigured):
		return http.StatusUnprocessableEntity, "ATTACHMENTS_DISABLED", "Attachments are not enabled", nil
	case errors.Is(err, authpw.ErrUsernameTaken):
		return http.StatusConflict, "USERNAME_TAKEN", "Username already taken", nil
	case errors.Is(err, authpw.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username, email or password", nil
	case errors.Is(err, authpw.ErrEmailNotVerified):
		return http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email before signing in", nil
	case errors.Is(err, authpw.ErrInvalidVerificationToken):
		return http.StatusBadRequest, "VERIFICATION_FAILED", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
