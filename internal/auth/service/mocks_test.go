package service

import (
	"context"
	"sort"
	"sync"
	"time"

	authdomain "github.com/AlibekovAA/jwt-auth-api/internal/auth/domain"
	authrepo "github.com/AlibekovAA/jwt-auth-api/internal/auth/repository"
	commonerrors "github.com/AlibekovAA/jwt-auth-api/internal/common/errors"
	userdomain "github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
)

type mockRefreshTokenRepo struct {
	findByTokenHashFunc func(ctx context.Context, hash string) (authdomain.RefreshToken, error)
	revokeFunc          func(ctx context.Context, hash string, revokedAt time.Time) error
	deleteExpiredFunc   func(ctx context.Context, before time.Time) (int64, error)
	txManagerFunc       func() authrepo.RefreshTokenTxManagerInterface
}

func (m *mockRefreshTokenRepo) FindByTokenHash(ctx context.Context, hash string) (authdomain.RefreshToken, error) {
	if m.findByTokenHashFunc != nil {
		return m.findByTokenHashFunc(ctx, hash)
	}
	return authdomain.RefreshToken{}, authrepo.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepo) Revoke(ctx context.Context, hash string, revokedAt time.Time) error {
	if m.revokeFunc != nil {
		return m.revokeFunc(ctx, hash, revokedAt)
	}
	return authrepo.ErrRefreshTokenNotFound
}

func (m *mockRefreshTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx, before)
	}
	return 0, nil
}

func (m *mockRefreshTokenRepo) TxManager() authrepo.RefreshTokenTxManagerInterface {
	if m.txManagerFunc != nil {
		return m.txManagerFunc()
	}
	return &testRefreshTokenTxManager{}
}

type testRefreshTokenTxManager struct {
	withTxFunc func(ctx context.Context, fn func(context.Context, authrepo.RefreshTokenTx) error) error
}

func (m *testRefreshTokenTxManager) WithTx(ctx context.Context, fn func(context.Context, authrepo.RefreshTokenTx) error) error {
	if m.withTxFunc != nil {
		return m.withTxFunc(ctx, fn)
	}
	return fn(ctx, &mockRefreshTokenTx{})
}

type mockRefreshTokenTx struct {
	createFunc               func(ctx context.Context, token authdomain.RefreshToken) error
	deleteExcessByUserIDFunc func(ctx context.Context, userID, keepID string, keep int) (int64, error)
}

func (m *mockRefreshTokenTx) Create(ctx context.Context, token authdomain.RefreshToken) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, token)
	}
	return nil
}

func (m *mockRefreshTokenTx) DeleteExcessByUserID(ctx context.Context, userID, keepID string, keep int) (int64, error) {
	if m.deleteExcessByUserIDFunc != nil {
		return m.deleteExcessByUserIDFunc(ctx, userID, keepID, keep)
	}
	return 0, nil
}

type mockIDGenerator struct {
	newIDFunc func() (string, error)
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return "test-id-123", nil
}

type mockUserLookup struct {
	getFunc func(ctx context.Context, id userdomain.ID) (userdomain.User, error)
}

func (m *mockUserLookup) Get(ctx context.Context, id userdomain.ID) (userdomain.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return userdomain.User{}, commonerrors.ErrUserNotFound
}

type mockCircuitBreaker struct {
	callFunc func(ctx context.Context, fn func(context.Context) error) error
}

func (m *mockCircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if m.callFunc != nil {
		return m.callFunc(ctx, fn)
	}
	return fn(ctx)
}

// memRefreshTokenRepo keeps records in memory with the same semantics as the
// Postgres repository.
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
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, rec := range r.records {
		if !rec.ExpiresAt.After(before) {
			delete(r.records, hash)
			n++
		}
	}
	return n, nil
}

func (r *memRefreshTokenRepo) TxManager() authrepo.RefreshTokenTxManagerInterface {
	return r
}

func (r *memRefreshTokenRepo) WithTx(ctx context.Context, fn func(context.Context, authrepo.RefreshTokenTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := make(map[string]authdomain.RefreshToken, len(r.records))
	for k, v := range r.records {
		staged[k] = v
	}
	if err := fn(ctx, &memRefreshTokenTx{records: staged}); err != nil {
		return err
	}
	r.records = staged
	return nil
}

func (r *memRefreshTokenRepo) countByUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

type memRefreshTokenTx struct {
	records map[string]authdomain.RefreshToken
}

func (t *memRefreshTokenTx) Create(_ context.Context, token authdomain.RefreshToken) error {
	t.records[token.TokenHash] = token
	return nil
}

func (t *memRefreshTokenTx) DeleteExcessByUserID(_ context.Context, userID, keepID string, keep int) (int64, error) {
	var others []authdomain.RefreshToken
	for _, rec := range t.records {
		if rec.UserID == userID && rec.ID != keepID {
			others = append(others, rec)
		}
	}
	slots := keep - 1
	if slots < 0 {
		slots = 0
	}
	if len(others) <= slots {
		return 0, nil
	}
	sort.Slice(others, func(i, j int) bool {
		if others[i].CreatedAt.Equal(others[j].CreatedAt) {
			return others[i].ID > others[j].ID
		}
		return others[i].CreatedAt.After(others[j].CreatedAt)
	})
	var n int64
	for _, rec := range others[slots:] {
		delete(t.records, rec.TokenHash)
		n++
	}
	return n, nil
}
