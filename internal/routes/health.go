package routes

import (
	"net/http"

	"go.uber.org/zap"
)

// HealthCheck answers GET /health_check with an empty 200 and logs the
// caller's socket address.  The database is not consulted.
func HealthCheck(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("health check", zap.String("peer", r.RemoteAddr))
		w.WriteHeader(http.StatusOK)
	}
}
