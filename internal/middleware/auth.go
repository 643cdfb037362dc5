package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xelth-com/eckdocs/internal/utils"
)

type contextKey string

const (
	UserContextKey     contextKey = "user"
	InternalContextKey contextKey = "internal"
)

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// bearerClaims validates an access token from the Authorization header
func bearerClaims(r *http.Request, secret string) (jwt.MapClaims, int, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, http.StatusUnauthorized, "Authorization header required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, "Invalid authorization header format"
	}

	claims, err := utils.ValidateToken(parts[1], secret)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}
	if typ, _ := claims["type"].(string); typ != "access" {
		return nil, http.StatusUnauthorized, "Access token required"
	}
	return claims, 0, ""
}

// Auth verifies JWT access tokens
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, status, msg := bearerClaims(r, secret)
			if claims == nil {
				writeError(w, status, msg)
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			setRequestUser(ctx, UserID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InternalOrAuth admits either the shared internal key (query "key" or
// X-Internal-Key header) or a valid access token. The headless browser
// printing agreements uses the key.
func InternalOrAuth(internalKey, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Query().Get("key")
			if key == "" {
				key = r.Header.Get("X-Internal-Key")
			}
			if key != "" {
				if internalKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(internalKey)) != 1 {
					writeError(w, http.StatusForbidden, "Invalid internal key")
					return
				}
				ctx := context.WithValue(r.Context(), InternalContextKey, true)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, status, msg := bearerClaims(r, secret)
			if claims == nil {
				writeError(w, status, msg)
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			setRequestUser(ctx, UserID(ctx))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects users whose role is not listed. Must run after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[Role(r.Context())] {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Claims returns the token claims stored by Auth
func Claims(ctx context.Context) jwt.MapClaims {
	claims, _ := ctx.Value(UserContextKey).(jwt.MapClaims)
	return claims
}

// UserID returns the authenticated user id, or nil for internal and anonymous calls
func UserID(ctx context.Context) *uint {
	claims := Claims(ctx)
	if claims == nil {
		return nil
	}
	id, ok := utils.ClaimsUserID(claims)
	if !ok {
		return nil
	}
	return &id
}

// Role returns the authenticated user's role
func Role(ctx context.Context) string {
	role, _ := Claims(ctx)["role"].(string)
	return role
}
