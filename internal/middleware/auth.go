package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lunarveil/backend/internal/models"
	"github.com/spf13/viper"
)

type contextKey string

const (
	accountIDKey contextKey = "accountID"
	roleKey      contextKey = "role"
)

// AccountID returns the authenticated account id resolved by the auth
// middleware. Handlers must use this, never an id from the request
// payload.
func AccountID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok
}

// Role returns the authenticated caller's role.
func Role(ctx context.Context) models.Role {
	if r, ok := ctx.Value(roleKey).(models.Role); ok {
		return r
	}
	return models.RoleCustomer
}

// WithAccount injects an account identity into a context. Test helper
// and the only way identity ever enters a request context.
func WithAccount(ctx context.Context, accountID int64, role models.Role) context.Context {
	ctx = context.WithValue(ctx, accountIDKey, accountID)
	return context.WithValue(ctx, roleKey, role)
}

// AuthMiddleware resolves the bearer token into an account identity.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		accountID, role, err := validateToken(parts[1])
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), accountID, role)))
	})
}

// RequireStaff gates the operator endpoints; must run after
// AuthMiddleware.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Role(r.Context()).Staff() {
			http.Error(w, "Staff privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validateToken(tokenString string) (int64, models.Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})

	if err != nil || !token.Valid {
		return 0, models.RoleCustomer, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, models.RoleCustomer, jwt.ErrTokenInvalidClaims
	}

	accountID, ok := claims["account_id"].(float64)
	if !ok || accountID <= 0 {
		return 0, models.RoleCustomer, jwt.ErrTokenInvalidClaims
	}

	role := models.RoleCustomer
	if r, ok := claims["role"].(string); ok {
		role, _ = models.ParseRole(r)
	}

	return int64(accountID), role, nil
}
