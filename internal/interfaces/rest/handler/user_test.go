package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/coursesync/internal/infrastructure/auth"
	"github.com/pot-code/coursesync/internal/infrastructure/driver"
	"github.com/pot-code/coursesync/internal/infrastructure/uuid"
	"github.com/pot-code/coursesync/internal/infrastructure/validate"
	"github.com/pot-code/coursesync/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryKV) SetEX(key string, value string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", driver.ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryKV) Exists(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memoryKV) Del(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKV) Ping() error { return nil }

func setupUsers(t *testing.T) (*UserHandler, *memoryKV) {
	t.Helper()
	ctx := context.Background()
	conn, err := driver.NewSQLiteConn(":memory:", &driver.DBConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(ctx) })
	require.NoError(t, driver.Migrate(ctx, conn))

	kv := &memoryKV{data: make(map[string]string)}
	uc := user.NewUserUseCase(user.NewUserRepository(conn), uuid.NewNanoIDGenerator(12), 5, time.Minute)
	jwtUtil := auth.NewJWTUtil("HS256", "secret", "token", time.Hour)
	return NewUserHandler(jwtUtil, kv, uc, validate.NewValidator()), kv
}

func newJSONRequest(method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestUserHandler_SignUpAndSignIn(t *testing.T) {
	uh, kv := setupUsers(t)
	account := map[string]string{"username": "gopher", "email": "gopher@example.com", "password": "correct horse"}

	c, rec := newJSONRequest(http.MethodPost, "/api/v1/auth/sign-up", account)
	require.NoError(t, uh.HandleSignUp(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	c, rec = newJSONRequest(http.MethodPost, "/api/v1/auth/sign-up", account)
	require.NoError(t, uh.HandleSignUp(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = newJSONRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "gopher", "password": "wrong password"})
	require.NoError(t, uh.HandleSignIn(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newJSONRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "gopher@example.com", "password": "correct horse"})
	require.NoError(t, uh.HandleSignIn(c))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)

	c, rec = newJSONRequest(http.MethodPut, "/api/v1/auth/sign-out", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+cookies[0].Value)
	require.NoError(t, uh.HandleSignOut(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	blacklisted, err := kv.Exists(cookies[0].Value)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestUserHandler_SignUpValidation(t *testing.T) {
	uh, _ := setupUsers(t)

	c, rec := newJSONRequest(http.MethodPost, "/api/v1/auth/sign-up", map[string]string{"username": "go", "email": "nope", "password": "short"})
	require.NoError(t, uh.HandleSignUp(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body RESTValidationError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.InvalidParams, 3)
}

func TestUserHandler_Exists(t *testing.T) {
	uh, _ := setupUsers(t)

	c, rec := newJSONRequest(http.MethodGet, "/api/v1/auth/exists", nil)
	require.NoError(t, uh.HandleUserExists(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newJSONRequest(http.MethodGet, "/api/v1/auth/exists?username=gopher", nil)
	require.NoError(t, uh.HandleUserExists(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", string(bytes.TrimSpace(rec.Body.Bytes())))
}
