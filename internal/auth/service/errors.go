package service

import (
	"errors"
	"net/http"

	authrepo "github.com/AlibekovAA/jwt-auth-api/internal/auth/repository"
	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
)

var (
	ErrInvalidRefreshToken = commonerrors.NewDomainError(
		"INVALID_REFRESH_TOKEN",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"token is invalid or expired",
	)

	ErrRefreshTokenExpired = commonerrors.NewDomainError(
		"REFRESH_TOKEN_EXPIRED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token expired",
	)

	ErrRefreshTokenRevoked = commonerrors.NewDomainError(
		"REFRESH_TOKEN_REVOKED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token has been revoked",
	)

	ErrInvalidTokenType = commonerrors.NewDomainError(
		"INVALID_TOKEN_TYPE",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"token has wrong type",
	)

	ErrTokenExpired = commonerrors.ErrTokenExpired

	ErrServiceUnavailable = commonerrors.ErrServiceUnavailable
)

// IsTokenError reports whether err is one of the 401 token failures.
func IsTokenError(err error) bool {
	de, ok := commonerrors.AsDomainError(err)
	return ok && de.Category() == commonerrors.CategoryUnauthorized
}

func handleCircuitBreakerError(err error) error {
	if errors.Is(err, commonerrors.ErrCircuitOpen) {
		return ErrServiceUnavailable.WithCause(err)
	}
	return err
}

func handleRefreshTokenError(err error) error {
	if errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
		return ErrInvalidRefreshToken
	}
	return handleCircuitBreakerError(err)
}
