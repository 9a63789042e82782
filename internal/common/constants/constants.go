package constants

import "time"

const (
	EmailMaxLength     = 254
	UsernameMaxLength  = 150
	PasswordMinLength  = 8
	PasswordMaxLength  = 72
	JWTSecretMinLength = 32
	BcryptCost         = 12

	DefaultMaxRequestSize = 1 << 20

	DBPoolMaxConns        = 25
	DBPoolMinConns        = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBQueryTimeout        = 30 * time.Second

	DBRetryMaxAttempts  = 3
	DBRetryInitialDelay = 100 * time.Millisecond
	DBRetryMaxDelay     = 2 * time.Second
	DBRetryMultiplier   = 2.0

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultRequestTimeout          = 5 * time.Second
	DefaultMaxRefreshTokensPerUser = 5

	RateLimitCleanupInterval = 5 * time.Minute

	RateLimitLoginRequestsPerSecond    = 1.0
	RateLimitLoginBurst                = 5
	RateLimitRegisterRequestsPerSecond = 0.2
	RateLimitRegisterBurst             = 3
	RateLimitRefreshRequestsPerSecond  = 2.0
	RateLimitRefreshBurst              = 10
	RateLimitLogoutRequestsPerSecond   = 2.0
	RateLimitLogoutBurst               = 10
	RateLimitGeneralRequestsPerSecond  = 20.0
	RateLimitGeneralBurst              = 40

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
