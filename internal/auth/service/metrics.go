package service

import (
	"github.com/AlibekovAA/jwt-auth-api/internal/observability/metrics"
)

func incrementRefreshTokensIssued() {
	metrics.RefreshTokensIssued.Inc()
}

func incrementRefreshTokensUsed() {
	metrics.RefreshTokensUsed.Inc()
}

func incrementRefreshTokensRevoked() {
	metrics.RefreshTokensRevoked.Inc()
}

func incrementRefreshTokensExpired() {
	metrics.RefreshTokensExpired.Inc()
}

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}

func recordJWTValidation(err error, reason string) {
	metrics.JWTValidationsTotal.Inc()
	if err != nil {
		metrics.JWTValidationsFailed.WithLabelValues(reason).Inc()
	}
}
