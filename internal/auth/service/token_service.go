package service

import (
	"context"
	"errors"
	"time"

	authdomain "github.com/AlibekovAA/jwt-auth-api/internal/auth/domain"
	authrepo "github.com/AlibekovAA/jwt-auth-api/internal/auth/repository"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/jwt-auth-api/internal/common/crypto"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/db"
	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/jwtverify"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/resilience"
	userdomain "github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
)

// UserLookup resolves the current state of a user when an access token is
// minted from a refresh token.
type UserLookup interface {
	Get(ctx context.Context, id userdomain.ID) (userdomain.User, error)
}

type TokenService struct {
	refreshTokenRepo authrepo.RefreshTokenRepository
	users            UserLookup
	issuer           *TokenIssuer
	circuitBreaker   resilience.CircuitBreakerInterface
	clock            clock.Clock
	maxRefreshTokens int
	retry            db.RetryConfig
	log              *logger.Logger
}

type TokenServiceDeps struct {
	RefreshTokenRepo authrepo.RefreshTokenRepository
	Users            UserLookup
	IDGenerator      commoncrypto.IDGenerator
	CircuitBreaker   resilience.CircuitBreakerInterface
	Clock            clock.Clock
	Log              *logger.Logger
}

type TokenServiceConfig struct {
	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	MaxRefreshTokens int
	// Retry applies to storage writes. The zero value means db.DefaultRetryConfig.
	Retry db.RetryConfig
}

func NewTokenService(deps TokenServiceDeps, config TokenServiceConfig) *TokenService {
	if deps.Clock == nil {
		deps.Clock = clock.NewRealClock()
	}
	return &TokenService{
		refreshTokenRepo: deps.RefreshTokenRepo,
		users:            deps.Users,
		issuer: NewTokenIssuer(
			config.JWTSecret,
			deps.IDGenerator,
			config.AccessTokenTTL,
			config.RefreshTokenTTL,
			deps.Clock,
		),
		circuitBreaker:   deps.CircuitBreaker,
		clock:            deps.Clock,
		maxRefreshTokens: config.MaxRefreshTokens,
		retry:            config.Retry,
		log:              deps.Log,
	}
}

type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

func (s *TokenService) call(ctx context.Context, fn func(context.Context) error) error {
	if s.circuitBreaker == nil {
		return fn(ctx)
	}
	return s.circuitBreaker.Call(ctx, fn)
}

// callWithRetry retries transient database failures before the circuit
// breaker sees the outcome, so one retried write counts as one call.
func (s *TokenService) callWithRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	return s.call(ctx, func(ctx context.Context) error {
		return db.RetryWithBackoff(ctx, s.log, s.retry, operation, fn)
	})
}

// IssuePair signs an access and a refresh token for user and stores the
// refresh record. The insert and the pruning of the user's oldest records run
// in one transaction.
func (s *TokenService) IssuePair(ctx context.Context, user userdomain.User) (TokenPair, error) {
	userID := string(user.ID)

	access, err := s.issuer.IssueAccessToken(userID, user.Email)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "issue_access_token_failed",
		}).Errorf("failed to sign access token: %v", err)
		return TokenPair{}, err
	}

	refresh, err := s.issuer.IssueRefreshToken(userID)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "issue_refresh_token_failed",
		}).Errorf("failed to sign refresh token: %v", err)
		return TokenPair{}, err
	}

	record := authdomain.RefreshToken{
		ID:        refresh.JTI,
		TokenHash: HashToken(refresh.Token),
		UserID:    userID,
		CreatedAt: refresh.IssuedAt,
		ExpiresAt: refresh.ExpiresAt,
	}

	var pruned int64
	err = s.callWithRetry(ctx, "store_refresh_token", func(ctx context.Context) error {
		return s.refreshTokenRepo.TxManager().WithTx(ctx, func(ctx context.Context, tx authrepo.RefreshTokenTx) error {
			if err := tx.Create(ctx, record); err != nil {
				return err
			}
			if s.maxRefreshTokens <= 0 {
				return nil
			}
			var err error
			pruned, err = tx.DeleteExcessByUserID(ctx, userID, record.ID, s.maxRefreshTokens)
			return err
		})
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "store_refresh_token_failed",
		}).Errorf("failed to store refresh token: %v", err)
		return TokenPair{}, handleCircuitBreakerError(err)
	}

	incrementAccessTokensIssued()
	incrementRefreshTokensIssued()

	fields := logger.Fields{
		"user_id": userID,
		"jti":     refresh.JTI,
		"action":  "issue_tokens_success",
	}
	if pruned > 0 {
		fields["pruned"] = pruned
	}
	s.log.WithFields(ctx, fields).Info("token pair issued")

	return TokenPair{
		Access:           access.Token,
		Refresh:          refresh.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token
// itself stays valid until it expires or is revoked.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (AccessToken, error) {
	claims, err := s.issuer.ParseToken(refreshToken, jwtverify.TypeRefresh)
	if err != nil {
		recordJWTValidation(err, "refresh_parse")
		s.log.WithFields(ctx, logger.Fields{
			"action": "refresh_invalid_token",
		}).Warnf("refresh failed: %v", err)
		if isExpired(err) {
			incrementRefreshTokensExpired()
			return AccessToken{}, ErrRefreshTokenExpired
		}
		return AccessToken{}, ErrInvalidRefreshToken.WithCause(err)
	}
	recordJWTValidation(nil, "")

	var record authdomain.RefreshToken
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.refreshTokenRepo.FindByTokenHash(ctx, HashToken(refreshToken))
		return err
	})
	if err != nil {
		if errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": claims.UserID,
				"jti":     claims.JTI,
				"action":  "refresh_token_unknown",
			}).Warn("refresh failed: token not found")
		} else {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": claims.UserID,
				"action":  "refresh_lookup_failed",
			}).Errorf("refresh failed: %v", err)
		}
		return AccessToken{}, handleRefreshTokenError(err)
	}

	if record.UserID != claims.UserID || record.ID != claims.JTI {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": claims.UserID,
			"jti":     claims.JTI,
			"action":  "refresh_token_mismatch",
		}).Warn("refresh failed: stored record does not match token claims")
		return AccessToken{}, ErrInvalidRefreshToken
	}

	switch record.Status(s.clock.Now()) {
	case authdomain.TokenRevoked:
		s.log.WithFields(ctx, logger.Fields{
			"user_id": record.UserID,
			"jti":     record.ID,
			"action":  "refresh_token_revoked",
		}).Warn("refresh failed: token revoked")
		return AccessToken{}, ErrRefreshTokenRevoked
	case authdomain.TokenExpired:
		incrementRefreshTokensExpired()
		return AccessToken{}, ErrRefreshTokenExpired
	}

	// The email claim follows the user's current address, not the one at login.
	user, err := s.users.Get(ctx, userdomain.ID(record.UserID))
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"user_id": record.UserID,
				"action":  "refresh_user_missing",
			}).Warn("refresh failed: user no longer exists")
			return AccessToken{}, ErrInvalidRefreshToken
		}
		return AccessToken{}, err
	}

	access, err := s.issuer.IssueAccessToken(string(user.ID), user.Email)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": claims.UserID,
			"action":  "refresh_sign_failed",
		}).Errorf("refresh failed: %v", err)
		return AccessToken{}, err
	}

	incrementRefreshTokensUsed()
	incrementAccessTokensIssued()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": claims.UserID,
		"jti":     claims.JTI,
		"action":  "refresh_success",
	}).Info("access token refreshed")

	return AccessToken{Token: access.Token, ExpiresAt: access.ExpiresAt}, nil
}

// Revoke marks refreshToken revoked. Unknown and already revoked tokens fail
// with ErrInvalidRefreshToken.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	err := s.callWithRetry(ctx, "revoke_refresh_token", func(ctx context.Context) error {
		return s.refreshTokenRepo.Revoke(ctx, HashToken(refreshToken), s.clock.Now())
	})
	if err != nil {
		if errors.Is(err, authrepo.ErrRefreshTokenNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"action": "revoke_token_unknown",
			}).Warn("revoke failed: token unknown or already revoked")
		} else {
			s.log.WithFields(ctx, logger.Fields{
				"action": "revoke_failed",
			}).Errorf("revoke failed: %v", err)
		}
		return handleRefreshTokenError(err)
	}

	incrementRefreshTokensRevoked()
	s.log.WithFields(ctx, logger.Fields{
		"action": "revoke_success",
	}).Info("refresh token revoked")
	return nil
}

// VerifyAccess checks signature, expiry and type of an access token. It never
// touches storage.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (jwtverify.Claims, error) {
	claims, err := s.issuer.ParseToken(token, jwtverify.TypeAccess)
	if err != nil {
		reason := "invalid"
		if isExpired(err) {
			reason = "expired"
		} else if errors.Is(err, ErrInvalidTokenType) {
			reason = "wrong_type"
		}
		recordJWTValidation(err, reason)
		return jwtverify.Claims{}, err
	}
	recordJWTValidation(nil, "")
	return claims, nil
}
