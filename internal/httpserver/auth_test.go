package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skvortsov-lab/auth_service/internal/events"
	"github.com/skvortsov-lab/auth_service/internal/models"
	"github.com/skvortsov-lab/auth_service/internal/repo"
	"github.com/skvortsov-lab/auth_service/internal/service"
	"github.com/skvortsov-lab/auth_service/internal/tokens"
)

func newTestServer(t *testing.T) (*echo.Echo, *service.AuthService) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.TokenEntry{}))

	svc := &service.AuthService{
		Repo:     repo.GormRepo{DB: db},
		Codec:    tokens.NewCodec([]byte("test-signing-key"), 15*time.Minute, 7*24*time.Hour),
		Producer: events.NewProducer(nil),
	}

	e := echo.New()
	Register(e, &Deps{AuthHandler: &AuthHTTP{Svc: svc}})
	return e, svc
}

func doJSON(e *echo.Echo, method, path string, body map[string]string, bearer string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodePair(t *testing.T, rec *httptest.ResponseRecorder) *service.TokenPair {
	t.Helper()

	var pair service.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return &pair
}

func registerAlice(t *testing.T, e *echo.Echo) *service.TokenPair {
	t.Helper()

	rec := doJSON(e, http.MethodPost, "/register", map[string]string{
		"username":   "alice",
		"password":   "pw123",
		"first_name": "Alice",
		"last_name":  "Doe",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodePair(t, rec)
}

func TestRegisterEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	registerAlice(t, e)

	rec := doJSON(e, http.MethodPost, "/register", map[string]string{
		"username": "alice",
		"password": "other",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(e, http.MethodPost, "/register", map[string]string{
		"username": "",
		"password": "pw",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	registerAlice(t, e)

	rec := doJSON(e, http.MethodPost, "/login", map[string]string{
		"username": "alice",
		"password": "pw123",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodePair(t, rec)

	rec = doJSON(e, http.MethodPost, "/login", map[string]string{
		"username": "alice",
		"password": "wrongpw",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodPost, "/login", map[string]string{
		"username": "nobody",
		"password": "pw123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unknown user and wrong password must be indistinguishable")
}

func TestRefreshEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	pair := registerAlice(t, e)

	rec := doJSON(e, http.MethodPost, "/refresh_token", nil, pair.RefreshToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decodePair(t, rec)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// replaying the superseded refresh token
	rec = doJSON(e, http.MethodPost, "/refresh_token", nil, pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// missing header
	rec = doJSON(e, http.MethodPost, "/refresh_token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token
	rec = doJSON(e, http.MethodPost, "/refresh_token", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint_Always200(t *testing.T) {
	e, svc := newTestServer(t)
	pair := registerAlice(t, e)

	// no header at all
	rec := doJSON(e, http.MethodPost, "/logout", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// garbage token
	rec = doJSON(e, http.MethodPost, "/logout", nil, "garbage")
	assert.Equal(t, http.StatusOK, rec.Code)

	// real token
	rec = doJSON(e, http.MethodPost, "/logout", nil, pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	active, err := svc.Repo.IsActive(context.Background(), pair.AccessToken, models.KindAccess)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMeEndpoint(t *testing.T) {
	e, _ := newTestServer(t)
	pair := registerAlice(t, e)

	rec := doJSON(e, http.MethodGet, "/me", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "user", body["role"])

	rec = doJSON(e, http.MethodGet, "/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a logged-out access token no longer passes the middleware
	doJSON(e, http.MethodPost, "/logout", nil, pair.AccessToken)
	rec = doJSON(e, http.MethodGet, "/me", nil, pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEndpoint_RoleGate(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/register", map[string]string{
		"username": "bob",
		"password": "pw123",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	userPair := decodePair(t, rec)

	rec = doJSON(e, http.MethodPost, "/register", map[string]string{
		"username": "root",
		"password": "pw123",
		"role":     "admin",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	adminPair := decodePair(t, rec)

	rec = doJSON(e, http.MethodGet, "/admin_only", nil, userPair.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(e, http.MethodGet, "/admin_only", nil, adminPair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}
