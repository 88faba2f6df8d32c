package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/lunarveil/backend/internal/models"
)

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	assert.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	defer viper.Reset()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := AccountID(r.Context())
		assert.True(t, ok)
		assert.Equal(t, int64(5), accountID)
		assert.Equal(t, models.RoleStaff, Role(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(next)

	t.Run("valid token resolves identity", func(t *testing.T) {
		token := signTestToken(t, "test-secret", jwt.MapClaims{
			"account_id": 5,
			"role":       "staff",
			"exp":        time.Now().Add(time.Hour).Unix(),
		})

		r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		r.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := signTestToken(t, "other-secret", jwt.MapClaims{
			"account_id": 5,
			"exp":        time.Now().Add(time.Hour).Unix(),
		})

		r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signTestToken(t, "test-secret", jwt.MapClaims{
			"account_id": 5,
			"exp":        time.Now().Add(-time.Hour).Unix(),
		})

		r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token without account id", func(t *testing.T) {
		token := signTestToken(t, "test-secret", jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		r := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireStaff(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireStaff(next)

	t.Run("staff and admin pass", func(t *testing.T) {
		for _, role := range []models.Role{models.RoleStaff, models.RoleAdmin} {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
			r = r.WithContext(WithAccount(r.Context(), 5, role))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)
			assert.Equal(t, http.StatusOK, w.Code, role)
		}
	})

	t.Run("customer is forbidden", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
		r = r.WithContext(WithAccount(r.Context(), 5, models.RoleCustomer))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing identity is forbidden", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
