package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/config"
	"github.com/shard-legends/clan-service/pkg/metrics"
)

// RedisDB holds the cache client and the client for the auth database (JWT revocation)
type RedisDB struct {
	client     *redis.Client
	authClient *redis.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewRedisDB connects both Redis clients and pings them
func NewRedisDB(cfg *config.RedisConfig, logger *zap.Logger, metricsCollector *metrics.Metrics) (*RedisDB, error) {
	client, err := newRedisClient(cfg.URL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	authClient, err := newRedisClient(cfg.AuthURL, cfg)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to parse redis auth URL: %w", err)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = authClient.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	if err := authClient.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = authClient.Close()
		return nil, fmt.Errorf("failed to ping redis auth: %w", err)
	}

	if metricsCollector != nil {
		metricsCollector.RedisConnections.Set(float64(cfg.MaxConnections))
		metricsCollector.UpdateDependencyHealth("redis", true)
	}

	logger.Info("Connected to Redis",
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("read_timeout", cfg.ReadTimeout),
		zap.Duration("write_timeout", cfg.WriteTimeout),
	)

	return &RedisDB{
		client:     client,
		authClient: authClient,
		logger:     logger,
		metrics:    metricsCollector,
	}, nil
}

func newRedisClient(rawURL string, cfg *config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	opt.MaxRetries = cfg.MaxRetries
	opt.PoolSize = cfg.MaxConnections
	opt.ReadTimeout = cfg.ReadTimeout
	opt.WriteTimeout = cfg.WriteTimeout
	return redis.NewClient(opt), nil
}

// Client returns the cache client
func (r *RedisDB) Client() *redis.Client {
	return r.client
}

// Health pings both clients
func (r *RedisDB) Health(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.updateHealth(false)
		return fmt.Errorf("redis cache health check failed: %w", err)
	}
	if err := r.authClient.Ping(ctx).Err(); err != nil {
		r.updateHealth(false)
		return fmt.Errorf("redis auth health check failed: %w", err)
	}
	r.updateHealth(true)
	return nil
}

func (r *RedisDB) updateHealth(healthy bool) {
	if r.metrics != nil {
		r.metrics.UpdateDependencyHealth("redis", healthy)
	}
}

// Close closes both clients
func (r *RedisDB) Close() error {
	var errs []error

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis cache connection: %w", err))
		}
	}
	if r.authClient != nil {
		if err := r.authClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis auth connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("redis close errors: %v", errs)
	}

	if r.metrics != nil {
		r.metrics.RedisConnections.Set(0)
		r.metrics.UpdateDependencyHealth("redis", false)
	}
	r.logger.Info("Redis connections closed")
	return nil
}

// Stats returns cache client pool statistics
func (r *RedisDB) Stats() map[string]interface{} {
	if r.client == nil {
		return map[string]interface{}{
			"status": "disconnected",
		}
	}

	stats := r.client.PoolStats()
	return map[string]interface{}{
		"status":      "connected",
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}

// IsJWTRevoked checks the auth database for revoked:{jti}
func (r *RedisDB) IsJWTRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	count, err := r.authClient.Exists(ctx, "revoked:"+jti).Result()
	r.observe("exists", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check jwt revocation for jti %s: %w", jti, err)
	}
	return count > 0, nil
}

func (r *RedisDB) observe(command string, start time.Time, err error) {
	if r.metrics == nil {
		return
	}
	status := "success"
	if err != nil && err != redis.Nil {
		status = "error"
	}
	r.metrics.RedisCommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
	r.metrics.RedisCommandsTotal.WithLabelValues(command, status).Inc()
}
