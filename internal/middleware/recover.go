package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Recoverer turns a panicking handler into a generic 500 JSON response
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("Panic while handling request",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", chimw.GetReqID(r.Context()),
				"stack", string(debug.Stack()))
			writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
