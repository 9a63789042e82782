package http

import (
	"context"
	"net/http"
	"time"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthHandler(log *logger.Logger, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteRequestError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
			return
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				log.Warnf("health check: database unreachable: %v", err)
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
				return
			}
		}

		log.Debug("health check request")
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
