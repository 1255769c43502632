package middleware

import (
	"context"
	"net/http"
	"strings"

	"finman-sync-server/pkg/jwt"
	"finman-sync-server/pkg/response"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	// TokenKey carries the raw bearer token; the session guard keys its
	// single-active-session tracking on it.
	TokenKey contextKey = "token"
)

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			token := parts[1]
			claims, err := jwt.ValidateToken(token, jwtSecret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, TokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUserID(r *http.Request) string {
	userID, ok := r.Context().Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

func GetToken(r *http.Request) string {
	token, ok := r.Context().Value(TokenKey).(string)
	if !ok {
		return ""
	}
	return token
}
