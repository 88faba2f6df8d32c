package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestPasswordHashing(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		encoded, err := hashPassword("kapeng-barako")
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))
		assert.True(t, verifyPassword("kapeng-barako", encoded))
	})

	t.Run("wrong password", func(t *testing.T) {
		encoded, err := hashPassword("kapeng-barako")
		assert.NoError(t, err)
		assert.False(t, verifyPassword("kapeng-barak0", encoded))
	})

	t.Run("unique salts", func(t *testing.T) {
		first, err := hashPassword("same-password")
		assert.NoError(t, err)
		second, err := hashPassword("same-password")
		assert.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("malformed hash", func(t *testing.T) {
		assert.False(t, verifyPassword("anything", "not-a-hash"))
		assert.False(t, verifyPassword("anything", "$bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"))
	})
}

func TestAuthService_Register(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 1)
	defer viper.Reset()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAuthService(db)

	t.Run("successful registration", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("maria@example.com", sqlmock.AnyArg(), "Maria Santos", "+639171234567",
				"customer", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, time.Now()))

		body := `{"email":"Maria@example.com","password":"secret123","name":"Maria Santos","phone_number":"+639171234567"}`
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp AuthResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, int64(5), resp.User.ID)
		assert.Equal(t, "maria@example.com", resp.User.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation failure", func(t *testing.T) {
		body := `{"email":"not-an-email","password":"123","name":"M","phone_number":""}`
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		body := `{"email":"maria@example.com","password":"secret123","name":"Maria Santos","phone_number":"+639171234567","role":"admin"}`
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO users").
			WillReturnError(assert.AnError)

		body := `{"email":"maria@example.com","password":"secret123","name":"Maria Santos","phone_number":"+639171234567"}`
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_Login(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 1)
	defer viper.Reset()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewAuthService(db)

	userColumns := []string{"id", "email", "name", "phone_number", "role", "password", "created_at"}

	t.Run("successful login", func(t *testing.T) {
		encoded, err := hashPassword("secret123")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT id, email, name, phone_number, role, password, created_at FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(5, "maria@example.com", "Maria Santos", "+639171234567", "customer", encoded, time.Now()))

		body := `{"email":"maria@example.com","password":"secret123"}`
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp AuthResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		encoded, err := hashPassword("secret123")
		assert.NoError(t, err)

		mock.ExpectQuery("SELECT id, email, name, phone_number, role, password, created_at FROM users WHERE email = \\$1").
			WithArgs("maria@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(5, "maria@example.com", "Maria Santos", "+639171234567", "customer", encoded, time.Now()))

		body := `{"email":"maria@example.com","password":"wrong-password"}`
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account gets the same answer", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, name, phone_number, role, password, created_at FROM users WHERE email = \\$1").
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns))

		body := `{"email":"nobody@example.com","password":"secret123"}`
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
