package middleware

import (
	"net/http"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimitMiddleware_Basic(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ActorMiddleware(), RedisRateLimitMiddleware(client, 1, 0, 1*time.Second)) // 1 req/sec, no burst
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	// first request allowed
	require.Equal(t, http.StatusOK, get(r, "jan"))
	// immediate second request -> blocked
	require.Equal(t, http.StatusTooManyRequests, get(r, "jan"))
	// other callers are counted separately
	require.Equal(t, http.StatusOK, get(r, "ola"))

	// advance miniredis clock past the bucket TTL; the counter is gone
	m.FastForward(2 * time.Second)
	for _, k := range m.Keys() {
		require.NotContains(t, k, "rl:user:jan:")
	}
}

func TestRedisRateLimitMiddleware_RedisDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	m.Close()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ActorMiddleware(), RedisRateLimitMiddleware(client, 1, 0, time.Second))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusInternalServerError, get(r, "jan"))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	gin.SetMode(gin.TestMode)
	resetLimiters()
	r := gin.New()
	r.Use(ActorMiddleware(), RedisRateLimitMiddleware(nil, 0.5, 1, time.Second))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, get(r, "jan"))
	require.Equal(t, http.StatusTooManyRequests, get(r, "jan"))
}
