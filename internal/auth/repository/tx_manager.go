package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
)

type RefreshTokenTxManagerInterface interface {
	WithTx(ctx context.Context, fn func(context.Context, RefreshTokenTx) error) error
}

type RefreshTokenTxManager struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenTxManager(pool *pgxpool.Pool) *RefreshTokenTxManager {
	return &RefreshTokenTxManager{pool: pool}
}

// WithTx runs fn in a transaction that is committed when fn returns nil and
// rolled back otherwise, including on panic.
func (m *RefreshTokenTxManager) WithTx(ctx context.Context, fn func(context.Context, RefreshTokenTx) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	return fn(ctx, &pgRefreshTokenTx{tx: tx})
}
