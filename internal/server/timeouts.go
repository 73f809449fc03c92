// internal/server/timeouts.go
//
// http.Server construction with production timeouts.
//
//   • ReadHeaderTimeout  – abort slow-loris headers (10 s)
//   • ReadTimeout        – cap body upload time (10 s)
//   • WriteTimeout       – hard ceiling above the 30 s handler timeout (35 s)
//   • IdleTimeout        – close keep-alives on idle clients (60 s)
//
// WriteTimeout must stay above middleware.DefaultTimeout, otherwise the
// connection is cut before the 503 reply can be written.

package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 10 * time.Second
	WriteTimeout      = 35 * time.Second
	IdleTimeout       = 60 * time.Second
)

// New constructs an *http.Server for handler.  The server has no Addr: it
// is always driven through Serve on a listener produced by Bind.
func New(handler http.Handler, log *zap.Logger) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}
}
