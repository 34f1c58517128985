package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ChetanXpro/yesbroker/internal/middleware"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func limitedRouter(l *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(l.Handler())
	r.GET("/properties", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiterAllowCountsPerKey(t *testing.T) {
	client, _ := newRedis(t)
	l := middleware.NewRateLimiter(client, 2)
	ctx := context.Background()

	ok, remaining, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, remaining)

	ok, remaining, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, remaining)

	ok, _, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, _, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRateLimiterHandlerRejectsOverBudget(t *testing.T) {
	client, _ := newRedis(t)
	r := limitedRouter(middleware.NewRateLimiter(client, 1))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/properties", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/properties", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))
	require.JSONEq(t, `{"success":false,"error":"Too many requests"}`, w.Body.String())
}

func TestRateLimiterFailsOpenWhenRedisIsDown(t *testing.T) {
	client, mr := newRedis(t)
	r := limitedRouter(middleware.NewRateLimiter(client, 1))
	mr.Close()

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/properties", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}
