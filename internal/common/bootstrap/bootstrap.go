package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	authrepo "github.com/AlibekovAA/jwt-auth-api/internal/auth/repository"
	authservice "github.com/AlibekovAA/jwt-auth-api/internal/auth/service"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/clock"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/config"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/jwt-auth-api/internal/common/crypto"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/db"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/resilience"
	userrepo "github.com/AlibekovAA/jwt-auth-api/internal/user/repository"
	userservice "github.com/AlibekovAA/jwt-auth-api/internal/user/service"
)

type App struct {
	Log   *logger.Logger
	Pool  *pgxpool.Pool
	Clock clock.Clock
}

type AuthApp struct {
	App
	Config           config.AuthConfig
	RefreshTokenRepo authrepo.RefreshTokenRepository
	UserService      *userservice.UserService
	TokenService     *authservice.TokenService
}

// NewAuthApp loads configuration, connects to Postgres and assembles the
// services. The returned app owns the pool; call Close when done.
func NewAuthApp(ctx context.Context) (*AuthApp, error) {
	cfg, err := config.LoadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogDir, "auth", cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := initializeApp(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	circuitBreaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		Timeout:    cfg.CircuitBreakerTimeout,
		ResetAfter: cfg.CircuitBreakerReset,
		Name:       "auth_db",
		Logger:     log,
	})
	idGenerator := commoncrypto.NewUUIDGenerator()
	refreshTokenRepo := authrepo.NewPgRefreshTokenRepository(app.Pool)

	userService := userservice.NewUserService(userservice.UserServiceDeps{
		Repo:           userrepo.NewPgRepository(app.Pool),
		Hasher:         commoncrypto.NewBcryptHasher(),
		IDGenerator:    idGenerator,
		Clock:          app.Clock,
		CircuitBreaker: circuitBreaker,
		Log:            log,
	})

	tokenService := authservice.NewTokenService(
		authservice.TokenServiceDeps{
			RefreshTokenRepo: refreshTokenRepo,
			Users:            userService,
			IDGenerator:      idGenerator,
			CircuitBreaker:   circuitBreaker,
			Clock:            app.Clock,
			Log:              log,
		},
		authservice.TokenServiceConfig{
			JWTSecret:        cfg.JWTSecret,
			AccessTokenTTL:   cfg.AccessTokenTTL(),
			RefreshTokenTTL:  cfg.RefreshTokenTTL(),
			MaxRefreshTokens: cfg.MaxRefreshTokensPerUser,
		},
	)

	return &AuthApp{
		App:              *app,
		Config:           cfg,
		RefreshTokenRepo: refreshTokenRepo,
		UserService:      userService,
		TokenService:     tokenService,
	}, nil
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func initializeApp(ctx context.Context, log *logger.Logger, databaseURL string) (*App, error) {
	pool, err := db.NewPool(ctx, log, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	db.StartPoolMetrics(ctx, pool, constants.DBPoolMetricsInterval)

	return &App{
		Log:   log,
		Pool:  pool,
		Clock: clock.NewRealClock(),
	}, nil
}
