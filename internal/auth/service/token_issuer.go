package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/jwt-auth-api/internal/common/crypto"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/jwtverify"
)

type TokenIssuer struct {
	jwtSecret       []byte
	idGenerator     commoncrypto.IDGenerator
	clock           clock.Clock
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

func NewTokenIssuer(
	jwtSecret string,
	idGenerator commoncrypto.IDGenerator,
	accessTokenTTL time.Duration,
	refreshTokenTTL time.Duration,
	clock clock.Clock,
) *TokenIssuer {
	return &TokenIssuer{
		jwtSecret:       []byte(jwtSecret),
		idGenerator:     idGenerator,
		clock:           clock,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// SignedToken is a freshly signed JWT together with the claims it carries.
type SignedToken struct {
	Token     string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (ti *TokenIssuer) IssueAccessToken(userID, email string) (SignedToken, error) {
	return ti.sign(jwtverify.TypeAccess, userID, email, ti.accessTokenTTL)
}

// IssueRefreshToken signs a refresh token. It carries no email; the access
// tokens minted from it read the user's current one.
func (ti *TokenIssuer) IssueRefreshToken(userID string) (SignedToken, error) {
	return ti.sign(jwtverify.TypeRefresh, userID, "", ti.refreshTokenTTL)
}

func (ti *TokenIssuer) sign(typ, userID, email string, ttl time.Duration) (SignedToken, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return SignedToken{}, err
	}

	now := ti.clock.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": typ,
		"jti": jti,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	if email != "" {
		claims["email"] = email
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.jwtSecret)
	if err != nil {
		return SignedToken{}, err
	}

	return SignedToken{
		Token:     tokenString,
		JTI:       jti,
		IssuedAt:  time.Unix(now.Unix(), 0),
		ExpiresAt: time.Unix(expiresAt.Unix(), 0),
	}, nil
}

// ParseToken verifies tokenString and requires its typ claim to equal
// expectedType.
func (ti *TokenIssuer) ParseToken(tokenString, expectedType string) (jwtverify.Claims, error) {
	claims, err := jwtverify.ParseToken(tokenString, ti.jwtSecret, ti.clock.Now)
	if err != nil {
		return jwtverify.Claims{}, err
	}
	if claims.Type != expectedType {
		return jwtverify.Claims{}, ErrInvalidTokenType
	}
	return claims, nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func isExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}
