package jwtverify

import (
	"context"
	"net/http"
	"strings"

	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
	commonhttp "github.com/AlibekovAA/jwt-auth-api/internal/common/http"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
)

// Verifier checks an access token and returns its claims.
type Verifier interface {
	VerifyAccess(ctx context.Context, token string) (Claims, error)
}

type contextKey string

const claimsKey contextKey = "jwt_claims"

func Middleware(verifier Verifier, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "jwt_auth_missing",
				}).Warn("jwt auth failed: missing or invalid authorization header")
				commonhttp.WriteRequestError(w, r, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization")
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
			claims, err := verifier.VerifyAccess(r.Context(), tokenString)
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "jwt_auth_failed",
				}).Warnf("jwt auth failed: %v", err)
				if domainErr, ok := commonerrors.AsDomainError(err); ok {
					commonhttp.WriteRequestError(w, r, domainErr.HTTPStatus(), domainErr.Code(), domainErr.Message())
					return
				}
				commonhttp.WriteRequestError(w, r, http.StatusUnauthorized, commonhttp.CodeInvalidToken, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func FromContext(ctx context.Context) (Claims, bool) {
	val := ctx.Value(claimsKey)
	claims, ok := val.(Claims)
	return claims, ok
}
