package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/fantasia/internal/middleware"
	"github.com/yanizio/fantasia/internal/routes"
)

// compressionLevel is the gzip/deflate level negotiated via Accept-Encoding.
const compressionLevel = 5

// BindRoutes builds the route table shared by every listener.
//
// Wrapping order, outermost first:
//
//	RequestID -> Trace -> Recoverer -> Compress -> Timeout -> router(Metrics -> routes)
//
// A known path with the wrong method gets chi's 405 with an Allow header;
// unknown paths get 404.
//
// The chi router sits entirely inside Timeout.  chi recycles its routing
// context once ServeHTTP returns, and an abandoned handler would otherwise
// still be reading it.
func BindRoutes(st *State) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Metrics)

	r.Get("/", routes.Index(st.Log))
	r.Get("/health_check", routes.HealthCheck(st.Log))
	r.NotFound(routes.NotFound)

	return standard(st.Log).Handler(r)
}

// standard is the middleware stack in front of the router, outermost first.
func standard(log *zap.Logger) chi.Middlewares {
	return chi.Chain(
		middleware.RequestID,
		middleware.Trace(log),
		chimw.Recoverer,
		chimw.Compress(compressionLevel),
		middleware.Timeout(middleware.DefaultTimeout),
	)
}
