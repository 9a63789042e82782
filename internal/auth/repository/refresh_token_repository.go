package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	authdomain "github.com/AlibekovAA/jwt-auth-api/internal/auth/domain"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/db"
)

type RefreshTokenRepository interface {
	FindByTokenHash(ctx context.Context, hash string) (authdomain.RefreshToken, error)
	Revoke(ctx context.Context, hash string, revokedAt time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	TxManager() RefreshTokenTxManagerInterface
}

// RefreshTokenTx is the set of writes performed atomically when a token is
// issued.
type RefreshTokenTx interface {
	Create(ctx context.Context, token authdomain.RefreshToken) error
	DeleteExcessByUserID(ctx context.Context, userID, keepID string, keep int) (int64, error)
}

type PgRefreshTokenRepository struct {
	pool  *pgxpool.Pool
	txMgr *RefreshTokenTxManager
}

func NewPgRefreshTokenRepository(pool *pgxpool.Pool) *PgRefreshTokenRepository {
	return &PgRefreshTokenRepository{
		pool:  pool,
		txMgr: NewRefreshTokenTxManager(pool),
	}
}

func (r *PgRefreshTokenRepository) TxManager() RefreshTokenTxManagerInterface {
	return r.txMgr
}

func (r *PgRefreshTokenRepository) FindByTokenHash(ctx context.Context, hash string) (authdomain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, token_hash, user_id, created_at, expires_at, revoked_at
		 FROM refresh_tokens
		 WHERE token_hash = $1`,
		hash,
	)

	var token authdomain.RefreshToken
	err := row.Scan(&token.ID, &token.TokenHash, &token.UserID, &token.CreatedAt, &token.ExpiresAt, &token.RevokedAt)
	if err := db.HandleQueryError(err, ErrRefreshTokenNotFound, "find refresh token", start); err != nil {
		return authdomain.RefreshToken{}, err
	}
	return token, nil
}

// Revoke marks the token revoked. Unknown and already revoked tokens both
// report ErrRefreshTokenNotFound so a token can be revoked only once.
func (r *PgRefreshTokenRepository) Revoke(ctx context.Context, hash string, revokedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`UPDATE refresh_tokens
		 SET revoked_at = $2
		 WHERE token_hash = $1 AND revoked_at IS NULL`,
		hash,
		revokedAt,
	)
	if err != nil {
		return db.HandleExecError(err, "revoke refresh token", start)
	}
	db.MeasureQueryDuration("revoke refresh token", start)
	if res.RowsAffected() == 0 {
		return ErrRefreshTokenNotFound
	}
	return nil
}

func (r *PgRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	res, err := r.pool.Exec(
		ctx,
		`DELETE FROM refresh_tokens WHERE expires_at <= $1`,
		before,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete expired refresh tokens", start)
	}
	db.MeasureQueryDuration("delete expired refresh tokens", start)
	return res.RowsAffected(), nil
}

type pgRefreshTokenTx struct {
	tx pgx.Tx
}

func (t *pgRefreshTokenTx) Create(ctx context.Context, token authdomain.RefreshToken) error {
	start := time.Now()
	_, err := t.tx.Exec(
		ctx,
		`INSERT INTO refresh_tokens (id, token_hash, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.CreatedAt,
		token.ExpiresAt,
	)
	return db.HandleExecError(err, "create refresh token", start)
}

// DeleteExcessByUserID trims the user's records down to keep. The record keepID
// always survives; the remaining slots go to the newest other records.
func (t *pgRefreshTokenTx) DeleteExcessByUserID(ctx context.Context, userID, keepID string, keep int) (int64, error) {
	others := keep - 1
	if others < 0 {
		others = 0
	}

	start := time.Now()
	res, err := t.tx.Exec(
		ctx,
		`DELETE FROM refresh_tokens
		 WHERE user_id = $1
		   AND id <> $2
		   AND id NOT IN (
		 	SELECT id
		 	FROM refresh_tokens
		 	WHERE user_id = $1 AND id <> $2
		 	ORDER BY created_at DESC, id DESC
		 	LIMIT $3
		 )`,
		userID,
		keepID,
		others,
	)
	if err != nil {
		return 0, db.HandleExecError(err, "delete excess refresh tokens", start)
	}
	db.MeasureQueryDuration("delete excess refresh tokens", start)
	return res.RowsAffected(), nil
}

var ErrRefreshTokenNotFound = pgx.ErrNoRows
