package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/auth"
	"github.com/shard-legends/clan-service/pkg/metrics"
)

const staleBucketAge = 10 * time.Minute

// RateLimiter implements token bucket rate limiting per caller. Authenticated
// callers are keyed by user id, everyone else by IP.
type RateLimiter struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	clients  map[string]*tokenBucket
	mutex    sync.Mutex
	rate     time.Duration // time between tokens
	capacity int
	now      func() time.Time

	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a limiter refilling requestsPerMinute tokens a minute
// into buckets holding at most burst tokens
func NewRateLimiter(requestsPerMinute, burst int, cleanupInterval time.Duration, logger *zap.Logger, metricsCollector *metrics.Metrics) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if burst <= 0 {
		burst = requestsPerMinute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		logger:        logger,
		metrics:       metricsCollector,
		clients:       make(map[string]*tokenBucket),
		rate:          time.Minute / time.Duration(requestsPerMinute),
		capacity:      burst,
		now:           time.Now,
		cleanupTicker: time.NewTicker(cleanupInterval),
		done:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Limit returns a middleware function that implements rate limiting
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if user, ok := auth.GetUserFromContext(c); ok {
			key = "user:" + strconv.Itoa(user.UserID)
		}

		if !rl.allow(key) {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("client", key),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			rl.metrics.RecordRateLimited()

			c.Header("Retry-After", strconv.Itoa(int(rl.rate.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please try again later.",
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	bucket, exists := rl.clients[key]
	if !exists {
		rl.clients[key] = &tokenBucket{tokens: rl.capacity - 1, lastRefill: now}
		return true
	}

	return bucket.consume(now, rl.rate, rl.capacity)
}

func (tb *tokenBucket) consume(now time.Time, rate time.Duration, capacity int) bool {
	if refill := int(now.Sub(tb.lastRefill) / rate); refill > 0 {
		tb.tokens = min(tb.tokens+refill, capacity)
		tb.lastRefill = tb.lastRefill.Add(time.Duration(refill) * rate)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops buckets idle long enough to have refilled completely
func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := rl.now().Add(-staleBucketAge)
	for key, bucket := range rl.clients {
		if bucket.lastRefill.Before(cutoff) {
			delete(rl.clients, key)
		}
	}

	rl.logger.Debug("Rate limiter cleanup completed", zap.Int("active_clients", len(rl.clients)))
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.done)
	})
}
