// Package routes holds Fantasia's HTTP handlers.  Each constructor takes
// the dependencies it needs and returns a plain http.HandlerFunc, so the
// handlers can be exercised with httptest alone.
package routes

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/fantasia/internal/middleware"
)

// Index answers GET / with an empty 200.  Each hit gets a fresh
// correlation id in the debug log, alongside the transport request id.
func Index(log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("index",
			zap.Stringer("correlation_id", uuid.New()),
			zap.String("request_id", middleware.RequestIDFrom(r.Context())),
		)
		w.WriteHeader(http.StatusOK)
	}
}
