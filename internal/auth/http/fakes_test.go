package http

import (
	"context"
	"sync"
	"time"

	authdomain "github.com/AlibekovAA/jwt-auth-api/internal/auth/domain"
	authrepo "github.com/AlibekovAA/jwt-auth-api/internal/auth/repository"
	"github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
	userrepo "github.com/AlibekovAA/jwt-auth-api/internal/user/repository"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[domain.ID]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[domain.ID]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return userrepo.ErrEmailAlreadyExists
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, userrepo.ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id domain.ID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, userrepo.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) Update(_ context.Context, id domain.ID, changes domain.Changes) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, userrepo.ErrUserNotFound
	}
	if changes.Email != nil {
		for otherID, other := range r.users {
			if otherID != id && other.Email == *changes.Email {
				return domain.User{}, userrepo.ErrEmailAlreadyExists
			}
		}
		u.Email = *changes.Email
	}
	if changes.Username != nil {
		u.Username = *changes.Username
	}
	u.UpdatedAt = changes.UpdatedAt
	r.users[id] = u
	return u, nil
}

type memRefreshTokenRepo struct {
	mu      sync.Mutex
	records map[string]authdomain.RefreshToken
}

func newMemRefreshTokenRepo() *memRefreshTokenRepo {
	return &memRefreshTokenRepo{records: make(map[string]authdomain.RefreshToken)}
}

func (r *memRefreshTokenRepo) FindByTokenHash(_ context.Context, hash string) (authdomain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[hash]
	if !ok {
		return authdomain.RefreshToken{}, authrepo.ErrRefreshTokenNotFound
	}
	return rec, nil
}

func (r *memRefreshTokenRepo) Revoke(_ context.Context, hash string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[hash]
	if !ok || rec.RevokedAt != nil {
		return authrepo.ErrRefreshTokenNotFound
	}
	rec.RevokedAt = &revokedAt
	r.records[hash] = rec
	return nil
}

func (r *memRefreshTokenRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *memRefreshTokenRepo) TxManager() authrepo.RefreshTokenTxManagerInterface {
	return r
}

func (r *memRefreshTokenRepo) WithTx(ctx context.Context, fn func(context.Context, authrepo.RefreshTokenTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, memRefreshTokenTx{records: r.records})
}

type memRefreshTokenTx struct {
	records map[string]authdomain.RefreshToken
}

func (t memRefreshTokenTx) Create(_ context.Context, token authdomain.RefreshToken) error {
	t.records[token.TokenHash] = token
	return nil
}

func (t memRefreshTokenTx) DeleteExcessByUserID(context.Context, string, string, int) (int64, error) {
	return 0, nil
}
