package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-steps-nosql/internal/pkg/reqlog"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// TokenVerifier validates an upstream-issued bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Identity resolves the caller's user id. With a verifier the Bearer token's
// subject is used; otherwise the gateway-supplied header is trusted as is.
func Identity(header string, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if verifier != nil {
				authHeader := r.Header.Get("Authorization")
				if !strings.HasPrefix(authHeader, "Bearer ") {
					reqlog.From(r.Context()).Info("missing bearer token")
					writeJSONError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
					return
				}
				sub, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
				if err != nil {
					reqlog.From(r.Context()).Info("rejected bearer token", "err", err)
					writeJSONError(w, r, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				userID = sub
			} else {
				userID = strings.TrimSpace(r.Header.Get(header))
			}
			if userID == "" {
				reqlog.From(r.Context()).Info("missing user identity", "header", header)
				writeJSONError(w, r, http.StatusUnauthorized, "missing user identity")
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the caller's user id from the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}
