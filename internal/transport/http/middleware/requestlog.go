package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-steps-nosql/internal/pkg/reqlog"
)

// RequestLog copies chi's request id into the logging context and echoes it
// back to the caller. Must run after chimiddleware.RequestID.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimiddleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set(chimiddleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r.WithContext(reqlog.WithRequestID(r.Context(), id)))
	})
}
