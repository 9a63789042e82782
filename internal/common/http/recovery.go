package http

import (
	"net/http"
	"runtime/debug"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
)

func RecoveryMiddleware(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(r.Context(), logger.Fields{
						"action": "panic_recovered",
						"path":   r.URL.Path,
					}).Criticalf("panic recovered: %v\n%s", err, debug.Stack())
					WriteRequestError(w, r, http.StatusInternalServerError, CodeUnknown, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
