package handlers

import (
	"bytes"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"photopro/db"
	"photopro/models"
)

func setupHandlerDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	prevDB := db.DB
	db.DB = mockDB
	t.Cleanup(func() {
		db.DB = prevDB
		mockDB.Close()
	})
	return mock
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/signup", Signup)
	r.POST("/auth/login", Login)
	return r
}

func TestSignupGrantsWelcomeBonus(t *testing.T) {
	mock := setupHandlerDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice@example.com", "alice1", "Alice Example", sqlmock.AnyArg(), models.PlanFree).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectQuery("UPDATE users").
		WithArgs(models.WelcomeCredits, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(3))
	mock.ExpectExec("INSERT INTO credit_transactions").
		WithArgs(int64(1), models.WelcomeCredits, models.TxWelcomeBonus, "Welcome bonus - 3 free credits").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	body := `{"email":"alice@example.com","username":"alice1","full_name":"Alice Example","password":"supersecret"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	authRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"credits":3`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignupDuplicateIdentity(t *testing.T) {
	mock := setupHandlerDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	body := `{"email":"alice@example.com","username":"alice1","full_name":"Alice Example","password":"supersecret"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	authRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already registered")
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short password", `{"email":"a@b.com","username":"alice1","full_name":"A","password":"short"}`},
		{"bad email", `{"email":"not-an-email","username":"alice1","full_name":"A","password":"supersecret"}`},
		{"short username", `{"email":"a@b.com","username":"ab","full_name":"A","password":"supersecret"}`},
		{"missing full name", `{"email":"a@b.com","username":"alice1","password":"supersecret"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Validation failures must never reach the database.
			setupHandlerDB(t)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/signup", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			authRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	mock := setupHandlerDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, email, username, password_hash").
		WithArgs("alice1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "is_active"}).
			AddRow(int64(1), "alice@example.com", "alice1", string(hash), true))

	form := url.Values{"username": {"alice1"}, "password": {"supersecret"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	authRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "access_token")
	assert.Contains(t, w.Body.String(), `"token_type":"bearer"`)
}

func TestLoginWrongPassword(t *testing.T) {
	mock := setupHandlerDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, email, username, password_hash").
		WithArgs("alice1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "is_active"}).
			AddRow(int64(1), "alice@example.com", "alice1", string(hash), true))

	form := url.Values{"username": {"alice1"}, "password": {"wrong-password"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	authRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	mock := setupHandlerDB(t)

	mock.ExpectQuery("SELECT id, email, username, password_hash").
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	form := url.Values{"username": {"nobody"}, "password": {"whatever"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	authRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
