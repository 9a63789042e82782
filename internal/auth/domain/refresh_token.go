package domain

import "time"

type TokenStatus string

const (
	TokenActive  TokenStatus = "active"
	TokenRevoked TokenStatus = "revoked"
	TokenExpired TokenStatus = "expired"
)

// RefreshToken is the stored record of one issued refresh token. Only the
// hash of the token is kept; ID doubles as the token's jti claim.
type RefreshToken struct {
	ID        string
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

func (t RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

func (t RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Status reports the lifecycle state at now. Revocation wins over expiry.
func (t RefreshToken) Status(now time.Time) TokenStatus {
	switch {
	case t.IsRevoked():
		return TokenRevoked
	case t.IsExpired(now):
		return TokenExpired
	default:
		return TokenActive
	}
}
