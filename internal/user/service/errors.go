package service

import (
	"errors"
	"net/http"

	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
)

var (
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid email or password",
	)

	ErrEmailTaken = commonerrors.NewDomainError(
		"EMAIL_TAKEN",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"user with this email already exists",
	)

	ErrValidationEmail = commonerrors.NewDomainError(
		"INVALID_EMAIL",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"enter a valid email address",
	)

	ErrValidationPasswordLength = commonerrors.NewDomainError(
		"PASSWORD_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password must be between 8 and 72 bytes",
	)

	ErrValidationPasswordLetterDigit = commonerrors.NewDomainError(
		"PASSWORD_TOO_WEAK",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password must contain at least one letter and one digit",
	)

	ErrValidationUsernameLength = commonerrors.NewDomainError(
		"USERNAME_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"username must be at most 150 characters",
	)

	ErrUserNotFound = commonerrors.ErrUserNotFound

	ErrServiceUnavailable = commonerrors.ErrServiceUnavailable
)

func handleCircuitBreakerError(err error) error {
	if errors.Is(err, commonerrors.ErrCircuitOpen) {
		return ErrServiceUnavailable.WithCause(err)
	}
	return err
}
