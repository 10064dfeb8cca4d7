package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/accounting/internal/interfaces/http/handler"
	"github.com/erp/accounting/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group)
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	engine := gin.New()
	var calls []string

	group := NewDomainGroup("ledger", "/ledger").Use(func(c *gin.Context) {
		calls = append(calls, "middleware")
		c.Next()
	})
	group.POST("/post", func(c *gin.Context) {
		calls = append(calls, "post")
		c.Status(http.StatusCreated)
	})
	group.Group("reports", "/reports").GET("/balance", func(c *gin.Context) {
		calls = append(calls, "balance")
		c.Status(http.StatusOK)
	})

	assert.Equal(t, "ledger", group.Name())
	assert.Equal(t, "/ledger", group.Prefix())

	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/ledger/post", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/reports/balance", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/post", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"middleware", "post", "middleware", "balance"}, calls)
}

func TestNewEngine(t *testing.T) {
	limiter, err := middleware.NewRateLimiter("1000-M")
	require.NoError(t, err)

	down := handler.HealthCheckerFunc(func(context.Context) error { return errors.New("connection refused") })
	up := handler.HealthCheckerFunc(func(context.Context) error { return nil })

	newEngine := func(checks map[string]handler.HealthChecker) *gin.Engine {
		return NewEngine(EngineOptions{
			Logger:       zap.NewNop(),
			Tracing:      middleware.TracingConfig{Enabled: false},
			CORS:         middleware.CORSConfig{AllowOrigins: []string{"*"}},
			Security:     middleware.DefaultSecurityConfig(),
			RateLimiter:  limiter,
			MaxBodyBytes: 1 << 20,
		}, Handlers{
			System: handler.NewSystemHandler("accounting-core", "test", checks),
		})
	}

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(map[string]handler.HealthChecker{"database": up}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(map[string]handler.HealthChecker{"database": down}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})

	t.Run("system info is versioned", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"name":"accounting-core"`)
	})

	t.Run("unregistered handlers have no routes", func(t *testing.T) {
		w := httptest.NewRecorder()
		newEngine(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/accounting/entries", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
