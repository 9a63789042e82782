package service

import (
	"context"

	"github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
	userrepo "github.com/AlibekovAA/jwt-auth-api/internal/user/repository"
)

type mockUserRepo struct {
	createFunc      func(ctx context.Context, user domain.User) error
	findByEmailFunc func(ctx context.Context, email string) (domain.User, error)
	findByIDFunc    func(ctx context.Context, id domain.ID) (domain.User, error)
	updateFunc      func(ctx context.Context, id domain.ID, changes domain.Changes) (domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return domain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return domain.User{}, userrepo.ErrUserNotFound
}

func (m *mockUserRepo) Update(ctx context.Context, id domain.ID, changes domain.Changes) (domain.User, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, changes)
	}
	return domain.User{}, userrepo.ErrUserNotFound
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash string, password string) error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockHasher) Compare(hash string, password string) error {
	if m.compareFunc != nil {
		return m.compareFunc(hash, password)
	}
	if hash != "hashed_"+password {
		return errMismatch
	}
	return nil
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

type mockCircuitBreaker struct {
	callFunc func(ctx context.Context, fn func(context.Context) error) error
}

func (m *mockCircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if m.callFunc != nil {
		return m.callFunc(ctx, fn)
	}
	return fn(ctx)
}
