package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type ContextKey string

const UserContextKey ContextKey = "currentUser"

// TokenParser turns a bearer token into a user id.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// UserIDFromContext returns the authenticated user id set by the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserContextKey).(string)
	return userID, ok && userID != ""
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}

// AuthMiddleware requires an Authorization: Bearer header.
func AuthMiddleware(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing auth token")
				return
			}
			authenticate(parser, strings.TrimPrefix(authHeader, "Bearer "), next, w, r)
		})
	}
}

// WebSocketAuthMiddleware reads the token from the query string, since
// browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.URL.Query().Get("token")
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Missing auth token")
				return
			}
			authenticate(parser, token, next, w, r)
		})
	}
}

func authenticate(parser TokenParser, token string, next http.Handler, w http.ResponseWriter, r *http.Request) {
	userID, err := parser.ParseToken(strings.TrimSpace(token))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
}

func ResponseWrapperMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": "UNAUTHORIZED"})
}
