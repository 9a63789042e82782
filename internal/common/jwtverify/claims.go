package jwtverify

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

type Claims struct {
	UserID    string
	Email     string
	Type      string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseToken verifies an HS256 token against secret using now as the current
// time and returns its claims. It does not check the token type.
func ParseToken(tokenString string, secret []byte, now func() time.Time) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, commonerrors.ErrInvalidTokenSigningMethod
		}
		return secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, commonerrors.ErrTokenExpired.WithCause(err)
		case errors.Is(err, commonerrors.ErrInvalidTokenSigningMethod):
			return Claims{}, commonerrors.ErrInvalidTokenSigningMethod
		default:
			return Claims{}, commonerrors.ErrInvalidToken.WithCause(err)
		}
	}
	if !parsed.Valid {
		return Claims{}, commonerrors.ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, commonerrors.ErrInvalidTokenClaims
	}

	sub, _ := mapClaims["sub"].(string)
	typ, _ := mapClaims["typ"].(string)
	jti, _ := mapClaims["jti"].(string)
	email, _ := mapClaims["email"].(string)
	if sub == "" || typ == "" || jti == "" {
		return Claims{}, commonerrors.ErrMissingTokenClaims
	}

	claims := Claims{
		UserID: sub,
		Email:  email,
		Type:   typ,
		JTI:    jti,
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}
