package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/staylane/reservation-backend/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	router := setupTestRouter()
	cfg := config.RateLimitConfig{Enabled: false, Capacity: 1, RefillInterval: time.Minute}
	router.POST("/bookings", RateLimit(cfg, nil, quietLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/bookings", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_NilClientPassesThrough(t *testing.T) {
	router := setupTestRouter()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillInterval: time.Minute}
	router.POST("/bookings", RateLimit(cfg, nil, quietLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/bookings", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	router := setupTestRouter()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillInterval: time.Minute}
	router.POST("/bookings", RateLimit(cfg, rdb, quietLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/bookings", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
