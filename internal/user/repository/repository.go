package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/db"
	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
	"github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
)

type Repository interface {
	Create(ctx context.Context, user domain.User) error
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	Update(ctx context.Context, id domain.ID, changes domain.Changes) (domain.User, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const userColumns = `id, email, username, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (r *PgRepository) Create(ctx context.Context, user domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, email, username, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		string(user.ID),
		user.Email,
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		db.MeasureQueryDuration("create user", start)
		return ErrEmailAlreadyExists
	}
	return db.HandleExecError(err, "create user", start)
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by email", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		string(id),
	))
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by id", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) Update(ctx context.Context, id domain.ID, changes domain.Changes) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	user, err := scanUser(r.pool.QueryRow(
		ctx,
		`UPDATE users
		 SET email = COALESCE($2, email),
		     username = COALESCE($3, username),
		     updated_at = $4
		 WHERE id = $1
		 RETURNING `+userColumns,
		string(id),
		changes.Email,
		changes.Username,
		changes.UpdatedAt,
	))
	if db.IsUniqueViolation(err) {
		db.MeasureQueryDuration("update user", start)
		return domain.User{}, ErrEmailAlreadyExists
	}
	if err := db.HandleQueryError(err, ErrUserNotFound, "update user", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

var ErrUserNotFound = pgx.ErrNoRows

var ErrEmailAlreadyExists = commonerrors.ErrEmailAlreadyExists
