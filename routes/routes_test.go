package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/orders-backend/app"
	"github.com/upb/orders-backend/config"
	"github.com/upb/orders-backend/repositories/postgres"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, opts ...func(*config.Config)) (*httptest.Server, *app.Dependencies, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS accounts").WillReturnResult(sqlmock.NewResult(0, 0))

	cfg := &config.Config{
		Environment: "test",
		AuthToken:   config.AuthTokenConfig{Secret: "routes-secret", Issuer: "orders-backend", TTL: time.Hour},
		Orders:      config.OrdersConfig{DefaultLimit: 20, MaxLimit: 100},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := zap.NewNop()
	factory := postgres.NewRepositoryFactoryFromDB(postgres.WrapDB(db, logger), logger)
	deps, err := app.NewDependenciesWithFactory(context.Background(), cfg, factory, logger)
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(srv.Close)
	return srv, deps, mock
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestRoutes_Health(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
	assert.Equal(t, true, decode(t, resp)["success"])
}

func TestRoutes_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/nope")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "endpoint not found", body["message"])
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["success"])
}

func TestRoutes_ProtectedRequireBearer(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/api/me", "/api/orders"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "missing or malformed authorization header", decode(t, resp)["message"], path)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid or expired token", decode(t, resp)["message"])
}

func TestRoutes_MeWithSelfIssuedToken(t *testing.T) {
	srv, deps, _ := newTestServer(t)

	token, err := deps.Tokens.Sign("uid-42", "ana@example.com")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode(t, resp)["user"].(map[string]interface{})
	assert.Equal(t, "uid-42", user["uid"])
	assert.Equal(t, "self_issued", user["authScheme"])
}

func TestRoutes_CreateOrder(t *testing.T) {
	srv, deps, mock := newTestServer(t)

	token, err := deps.Tokens.Sign("uid-42", "ana@example.com")
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/orders",
		bytes.NewBufferString(`{"items":[{"name":"Latte","price":"4.50","qty":2}]}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	order := decode(t, resp)["order"].(map[string]interface{})
	assert.Equal(t, 9.54, order["total"])
	assert.Equal(t, "uid-42", order["ownerUid"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutes_LoginThrottled(t *testing.T) {
	srv, deps, mock := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{AuthPerMinute: 3}
	})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json",
		bytes.NewBufferString(`{"email":"ana@example.com","password":"correct horse"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decode(t, resp)["error"])
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NotNil(t, deps.RateLimiter)
}

func TestRoutes_ThrottleIgnoresSpoofedForwardingHeaders(t *testing.T) {
	srv, _, mock := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{AuthPerMinute: 3}
	})

	// The test client connects from loopback, which is not a trusted proxy
	for _, spoofed := range []string{"198.51.100.1", "198.51.100.2"} {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
			WithArgs("login:ip:127.0.0.1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/login",
			bytes.NewBufferString(`{"email":"ana@example.com","password":"correct horse"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", spoofed)
		req.Header.Set("X-Real-IP", spoofed)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, spoofed)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoutes_CORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://shop.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsHandler(t *testing.T) {
	srv, deps, _ := newTestServer(t)

	// Generate one observed request
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	metrics := httptest.NewServer(MetricsHandler(deps))
	defer metrics.Close()

	resp, err = http.Get(metrics.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `orders_http_requests_total{code="200",method="GET",route="/healthz"} 1`))
}
