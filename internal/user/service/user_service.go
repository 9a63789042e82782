package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/jwt-auth-api/internal/common/crypto"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/resilience"
	"github.com/AlibekovAA/jwt-auth-api/internal/observability/metrics"
	"github.com/AlibekovAA/jwt-auth-api/internal/user/domain"
	userrepo "github.com/AlibekovAA/jwt-auth-api/internal/user/repository"
)

// dummyPassword is hashed once and compared against when a login names an
// unknown email.
const dummyPassword = "unknown-user-placeholder-1"

type UserService struct {
	repo           userrepo.Repository
	hasher         commoncrypto.PasswordHasher
	idGenerator    commoncrypto.IDGenerator
	clock          clock.Clock
	circuitBreaker resilience.CircuitBreakerInterface
	log            *logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

type UserServiceDeps struct {
	Repo           userrepo.Repository
	Hasher         commoncrypto.PasswordHasher
	IDGenerator    commoncrypto.IDGenerator
	Clock          clock.Clock
	CircuitBreaker resilience.CircuitBreakerInterface
	Log            *logger.Logger
}

func NewUserService(deps UserServiceDeps) *UserService {
	if deps.Clock == nil {
		deps.Clock = clock.NewRealClock()
	}
	return &UserService{
		repo:           deps.Repo,
		hasher:         deps.Hasher,
		idGenerator:    deps.IDGenerator,
		clock:          deps.Clock,
		circuitBreaker: deps.CircuitBreaker,
		log:            deps.Log,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
}

type UpdateInput struct {
	Email    *string
	Username *string
}

func (s *UserService) call(ctx context.Context, fn func(context.Context) error) error {
	if s.circuitBreaker == nil {
		return fn(ctx)
	}
	return handleCircuitBreakerError(s.circuitBreaker.Call(ctx, fn))
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	email := NormalizeEmail(input.Email)

	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "register_attempt",
	}).Info("register attempt")

	if err := s.validateRegistration(email, input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		return domain.User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_id_generation_failed",
		}).Errorf("register failed: id generation error: %v", err)
		return domain.User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           domain.ID(id),
		Email:        email,
		Username:     input.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.call(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrEmailAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "register_email_exists",
			}).Warn("register failed: email already exists")
			return domain.User{}, ErrEmailTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "register_create_failed",
		}).Errorf("register failed: %v", err)
		return domain.User{}, err
	}

	metrics.UsersRegistered.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"email":   email,
		"user_id": string(user.ID),
		"action":  "register_success",
	}).Info("register success")

	return user, nil
}

func (s *UserService) validateRegistration(email string, input RegisterInput) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := validatePassword(input.Password); err != nil {
		return err
	}
	return validateUsername(input.Username)
}

// Authenticate returns the user owning email when password matches. Unknown
// emails and wrong passwords yield the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = NormalizeEmail(email)

	var user domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByEmail(ctx, email)
		return err
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			// Keep unknown emails as slow as wrong passwords.
			_ = s.hasher.Compare(s.dummyPasswordHash(), password)
			metrics.LoginFailures.WithLabelValues("user_not_found").Inc()
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "login_user_not_found",
			}).Warn("login failed: not found")
			return domain.User{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return domain.User{}, err
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		metrics.LoginFailures.WithLabelValues("invalid_password").Inc()
		s.log.WithFields(ctx, logger.Fields{
			"email":   email,
			"user_id": string(user.ID),
			"action":  "login_invalid_password",
		}).Warn("login failed: invalid password")
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

func (s *UserService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.log.Errorf("failed to prepare dummy password hash: %v", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *UserService) Get(ctx context.Context, id domain.ID) (domain.User, error) {
	var user domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(id),
			"action":  "get_user_failed",
		}).Errorf("get user failed: %v", err)
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id domain.ID, input UpdateInput) (domain.User, error) {
	changes := domain.Changes{UpdatedAt: s.clock.Now()}

	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if err := validateEmail(email); err != nil {
			return domain.User{}, err
		}
		changes.Email = &email
	}
	if input.Username != nil {
		if err := validateUsername(*input.Username); err != nil {
			return domain.User{}, err
		}
		username := *input.Username
		changes.Username = &username
	}

	if changes.Email == nil && changes.Username == nil {
		return s.Get(ctx, id)
	}

	var user domain.User
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.repo.Update(ctx, id, changes)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, userrepo.ErrUserNotFound):
			return domain.User{}, ErrUserNotFound
		case errors.Is(err, userrepo.ErrEmailAlreadyExists):
			s.log.WithFields(ctx, logger.Fields{
				"user_id": string(id),
				"action":  "update_email_exists",
			}).Warn("update failed: email already exists")
			return domain.User{}, ErrEmailTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(id),
			"action":  "update_failed",
		}).Errorf("update failed: %v", err)
		return domain.User{}, err
	}

	metrics.UsersUpdated.Inc()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": string(id),
		"action":  "update_success",
	}).Info("update success")

	return user, nil
}
