package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
	"github.com/AlibekovAA/jwt-auth-api/internal/observability/metrics"
)

const (
	PathRegister = "/api/register/"
	PathLogin    = "/api/login/"
	PathRefresh  = "/api/refresh/"
	PathLogout   = "/api/logout/"
	PathMe       = "/api/me/"
)

// RateLimiter keeps one token bucket per client key. Idle buckets are dropped
// by a background sweep.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	cleanup  *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		cleanup:  time.NewTicker(constants.RateLimitCleanupInterval),
		done:     make(chan struct{}),
	}

	go rl.cleanupLimiters()

	return rl
}

func (rl *RateLimiter) cleanupLimiters() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.cleanup.C:
			rl.mu.Lock()
			for key, limiter := range rl.limiters {
				// a full bucket means the client has been quiet long enough
				if limiter.Tokens() >= float64(rl.burst) {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanup.Stop()
		close(rl.done)
	})
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		limiter, exists = rl.limiters[key]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[key] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

type StrictRateLimiter struct {
	trustProxyHeaders bool

	loginLimiter    *RateLimiter
	registerLimiter *RateLimiter
	refreshLimiter  *RateLimiter
	logoutLimiter   *RateLimiter
	generalLimiter  *RateLimiter
}

// NewStrictRateLimiter keys buckets by client address. trustProxyHeaders
// switches the key to X-Real-IP / X-Forwarded-For and must only be enabled
// behind a proxy that overwrites those headers.
func NewStrictRateLimiter(trustProxyHeaders bool) *StrictRateLimiter {
	return &StrictRateLimiter{
		trustProxyHeaders: trustProxyHeaders,

		loginLimiter:    NewRateLimiter(constants.RateLimitLoginRequestsPerSecond, constants.RateLimitLoginBurst),
		registerLimiter: NewRateLimiter(constants.RateLimitRegisterRequestsPerSecond, constants.RateLimitRegisterBurst),
		refreshLimiter:  NewRateLimiter(constants.RateLimitRefreshRequestsPerSecond, constants.RateLimitRefreshBurst),
		logoutLimiter:   NewRateLimiter(constants.RateLimitLogoutRequestsPerSecond, constants.RateLimitLogoutBurst),
		generalLimiter:  NewRateLimiter(constants.RateLimitGeneralRequestsPerSecond, constants.RateLimitGeneralBurst),
	}
}

func (srl *StrictRateLimiter) Stop() {
	srl.loginLimiter.Stop()
	srl.registerLimiter.Stop()
	srl.refreshLimiter.Stop()
	srl.logoutLimiter.Stop()
	srl.generalLimiter.Stop()
}

// MiddlewareForPath picks the bucket for path. A nil limiter lets everything
// through.
func (srl *StrictRateLimiter) MiddlewareForPath(path string) func(http.Handler) http.Handler {
	if srl == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	var limiter *RateLimiter
	var limiterType string

	switch path {
	case PathLogin:
		limiter = srl.loginLimiter
		limiterType = "login"
	case PathRegister:
		limiter = srl.registerLimiter
		limiterType = "register"
	case PathRefresh:
		limiter = srl.refreshLimiter
		limiterType = "refresh"
	case PathLogout:
		limiter = srl.logoutLimiter
		limiterType = "logout"
	default:
		limiter = srl.generalLimiter
		limiterType = "general"
	}

	trustProxyHeaders := srl.trustProxyHeaders
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(GetClientIP(r, trustProxyHeaders)) {
				metrics.RateLimitBlocked.WithLabelValues(path, limiterType).Inc()
				w.Header().Set("Retry-After", "1")
				WriteRequestError(w, r, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Wrap is the HandlerFunc form of MiddlewareForPath.
func (srl *StrictRateLimiter) Wrap(path string, h http.HandlerFunc) http.HandlerFunc {
	return srl.MiddlewareForPath(path)(h).ServeHTTP
}
