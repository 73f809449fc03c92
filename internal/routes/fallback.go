package routes

import "net/http"

// NotFound is the fallback for every unmatched method and path.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
