package middleware

import (
	"net/http"
	"time"
)

// DefaultTimeout caps how long a handler may take before the client gets
// a 503.
const DefaultTimeout = 30 * time.Second

// Timeout abandons handlers that run past d and replies 503 Service
// Unavailable in their place.  The handler's context is cancelled at the
// same moment so database calls stop too.
//
// Anything inside Timeout runs on its own goroutine, so it must not share
// per-request state with the wrappers outside it.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "")
	}
}
