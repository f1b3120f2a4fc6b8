package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/userportal/internal/config"
	"github.com/yourusername/userportal/internal/logger"
	"github.com/yourusername/userportal/internal/metrics"
)

const devOrigin = "http://localhost:5173"

type fixedNotifier struct{}

func (fixedNotifier) RequestPasswordReset(ctx context.Context, emailID string) (string, error) {
	return "req-1", nil
}

func newRouter(t *testing.T, log logger.Logger) (*gin.Engine, *metrics.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.NewManager(metrics.WithRuntimeMetrics(false))
	router := NewRouter(Options{
		Config:   config.Default(),
		Logger:   log,
		Metrics:  m,
		Notifier: fixedNotifier{},
	})
	return router, m
}

func TestHealth(t *testing.T) {
	router, _ := newRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"userportal-api","version":"0.1.0"}`, rec.Body.String())
}

func TestCORSPreflightAllowedOrigin(t *testing.T) {
	router, _ := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/user/signup", nil)
	req.Header.Set("Origin", devOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, devOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORSRejectsOtherOrigins(t *testing.T) {
	router, _ := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/user/signup", bytes.NewBufferString(`{"name":"x"}`))
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSignupThroughRouter(t *testing.T) {
	var buf bytes.Buffer
	router, _ := newRouter(t, logger.New(&buf, slog.LevelInfo))

	req := httptest.NewRequest(http.MethodPost, "/user/signup", bytes.NewBufferString(`{"name":"Ann","emailid":"ann@example.com","password":"pw"}`))
	req.Header.Set("Origin", devOrigin)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, devOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.JSONEq(t, `{"message":"Signup successful","data":{"name":"Ann","emailid":"ann@example.com","password":"pw"}}`, rec.Body.String())

	assert.Contains(t, buf.String(), "path=/user/signup")
	assert.Contains(t, buf.String(), "status=200")
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `userportal_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestResetStatusRouteIsOptional(t *testing.T) {
	router, _ := newRouter(t, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/forgotpassword/r-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	router = NewRouter(Options{
		Config:      config.Default(),
		Notifier:    fixedNotifier{},
		ResetStatus: func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"requestId": c.Param("id")})
		},
	})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/forgotpassword/r-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"requestId":"r-1"}`, rec.Body.String())
}

func TestForgotPasswordFallsBackToLogNotifier(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.NewManager(metrics.WithRuntimeMetrics(false))
	router := NewRouter(Options{Config: config.Default(), Metrics: m})

	req := httptest.NewRequest(http.MethodPost, "/user/forgotpassword", bytes.NewBufferString(`{"emailid":"a@b.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"emailid":"a@b.com"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `userportal_password_reset_notifications_total{outcome="sent"} 1`)
}
