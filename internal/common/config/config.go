package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidJWTSecret   = errors.New("JWT_SECRET must be at least 32 bytes")
	ErrInvalidLifetime    = errors.New("token lifetime must be positive")
)

// AuthConfig is read once at startup. ACCESS_TOKEN_LIFETIME is in seconds and
// REFRESH_TOKEN_LIFETIME in days.
type AuthConfig struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8081"`
	DatabaseURL string `env:"DATABASE_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	LogDir      string `env:"LOG_DIR"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	AccessTokenLifetime     int `env:"ACCESS_TOKEN_LIFETIME" envDefault:"900"`
	RefreshTokenLifetime    int `env:"REFRESH_TOKEN_LIFETIME" envDefault:"7"`
	MaxRefreshTokensPerUser int `env:"MAX_REFRESH_TOKENS_PER_USER" envDefault:"5"`

	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	CleanupInterval   time.Duration `env:"REFRESH_TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`

	CircuitBreakerThreshold int32         `env:"CIRCUIT_BREAKER_THRESHOLD" envDefault:"500"`
	CircuitBreakerTimeout   time.Duration `env:"CIRCUIT_BREAKER_TIMEOUT" envDefault:"15s"`
	CircuitBreakerReset     time.Duration `env:"CIRCUIT_BREAKER_RESET" envDefault:"10s"`
}

func (c AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenLifetime) * time.Second
}

func (c AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenLifetime) * 24 * time.Hour
}

func LoadAuthConfig() (AuthConfig, error) {
	var cfg AuthConfig
	if err := env.Parse(&cfg); err != nil {
		return AuthConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return AuthConfig{}, fmt.Errorf("%w: JWT_SECRET", ErrMissingRequiredEnv)
	}
	if err := validateJWTSecret(cfg.JWTSecret); err != nil {
		return AuthConfig{}, err
	}

	if cfg.DatabaseURL == "" {
		return AuthConfig{}, fmt.Errorf("%w: DATABASE_URL", ErrMissingRequiredEnv)
	}

	if cfg.AccessTokenLifetime <= 0 {
		return AuthConfig{}, fmt.Errorf("%w: ACCESS_TOKEN_LIFETIME=%d", ErrInvalidLifetime, cfg.AccessTokenLifetime)
	}
	if cfg.RefreshTokenLifetime <= 0 {
		return AuthConfig{}, fmt.Errorf("%w: REFRESH_TOKEN_LIFETIME=%d", ErrInvalidLifetime, cfg.RefreshTokenLifetime)
	}

	if cfg.MaxRefreshTokensPerUser <= 0 {
		cfg.MaxRefreshTokensPerUser = constants.DefaultMaxRefreshTokensPerUser
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}

	return cfg, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidJWTSecret, len(secret))
	}
	return nil
}
