package middleware

import (
	"net/http"
	"sort"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yanizio/fantasia/internal/ua"
)

// Trace logs one span per request: a start record with the request headers
// and parsed User-Agent, and a finish record with status, size, latency, and
// the response headers.  Both carry the request id, so RequestID must run
// first.
func Trace(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			span := log.With(
				zap.String("request_id", RequestIDFrom(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("peer", r.RemoteAddr),
			)

			fields := append([]zap.Field{
				zap.String("proto", r.Proto),
				zap.Object("headers", headerFields(r.Header)),
			}, ua.Parse(r.UserAgent()).Fields()...)
			span.Info("request started", fields...)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				span.Info("request finished",
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
					zap.Object("headers", headerFields(ww.Header())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// sensitiveHeaders are logged as [REDACTED].
var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
}

// headerFields renders h as a sorted zap object, one key per header.
func headerFields(h http.Header) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		keys := make([]string, 0, len(h))
		for k := range h {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if sensitiveHeaders[k] {
				enc.AddString(k, "[REDACTED]")
				continue
			}
			enc.AddString(k, strings.Join(h[k], ", "))
		}
		return nil
	})
}
