package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/models"
	"github.com/shard-legends/clan-service/pkg/metrics"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired
var ErrCacheMiss = errors.New("key not found")

// Cache is a JSON value cache with per-key TTL
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis backed cache
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string, value interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get from cache")
	}
	if err := json.Unmarshal(data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cache value")
	}
	return nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal cache value")
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set cache value")
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "failed to delete from cache")
	}
	return nil
}

func (c *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return errors.Wrap(err, "failed to delete keys")
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "failed to scan keys")
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return errors.Wrap(err, "failed to delete keys")
		}
	}
	return nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates an in-process cache, used when Redis caching is off and in tests
func NewMemoryCache() Cache {
	return &memoryCache{data: make(map[string]cacheEntry)}
}

func (c *memoryCache) Get(ctx context.Context, key string, value interface{}) error {
	c.mu.Lock()
	entry, ok := c.data[key]
	if ok && time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(entry.value, value)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.data[key] = cacheEntry{value: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// DeletePattern only understands a trailing '*'
func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")

	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
	return nil
}

// StatsKey is the cache key of one user's stats in one mode
func StatsKey(userID int, mode models.GameMode) string {
	return fmt.Sprintf("clan:stats:%d:%d", userID, int(mode))
}

// GradesKey is the cache key of one user's grades in one mode
func GradesKey(userID int, mode models.GameMode) string {
	return fmt.Sprintf("clan:grades:%d:%d", userID, int(mode))
}

// StatsReader is the uncached source CachedStatsProvider wraps
type StatsReader interface {
	GetUserStats(ctx context.Context, userID int, mode models.GameMode) (*models.UserStats, error)
	GetUserGrades(ctx context.Context, userID int, mode models.GameMode) (*models.UserGrades, error)
}

// CachedStatsProvider serves per-user stats and grades through a Cache.
// A user without stats is cached as an explicit empty entry so repeated
// leaderboard builds do not hit the table for them.
type CachedStatsProvider struct {
	next    StatsReader
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewCachedStatsProvider wraps next with cache
func NewCachedStatsProvider(next StatsReader, cache Cache, ttl time.Duration, logger *zap.Logger, metricsCollector *metrics.Metrics) *CachedStatsProvider {
	return &CachedStatsProvider{
		next:    next,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		metrics: metricsCollector,
	}
}

type cachedStats struct {
	Found bool              `json:"found"`
	Stats *models.UserStats `json:"stats,omitempty"`
}

type cachedGrades struct {
	Found  bool               `json:"found"`
	Grades *models.UserGrades `json:"grades,omitempty"`
}

// GetUserStats implements service.StatsProvider
func (p *CachedStatsProvider) GetUserStats(ctx context.Context, userID int, mode models.GameMode) (*models.UserStats, error) {
	key := StatsKey(userID, mode)

	var entry cachedStats
	if err := p.cache.Get(ctx, key, &entry); err == nil {
		p.metrics.RecordCacheLookup("user_stats", true)
		return entry.Stats, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		p.logger.Warn("Stats cache read failed", zap.String("key", key), zap.Error(err))
	}
	p.metrics.RecordCacheLookup("user_stats", false)

	stats, err := p.next.GetUserStats(ctx, userID, mode)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, cachedStats{Found: stats != nil, Stats: stats}, p.ttl); err != nil {
		p.logger.Warn("Stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return stats, nil
}

// GetUserGrades implements service.GradesProvider
func (p *CachedStatsProvider) GetUserGrades(ctx context.Context, userID int, mode models.GameMode) (*models.UserGrades, error) {
	key := GradesKey(userID, mode)

	var entry cachedGrades
	if err := p.cache.Get(ctx, key, &entry); err == nil {
		p.metrics.RecordCacheLookup("user_grades", true)
		return entry.Grades, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		p.logger.Warn("Grades cache read failed", zap.String("key", key), zap.Error(err))
	}
	p.metrics.RecordCacheLookup("user_grades", false)

	grades, err := p.next.GetUserGrades(ctx, userID, mode)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, cachedGrades{Found: grades != nil, Grades: grades}, p.ttl); err != nil {
		p.logger.Warn("Grades cache write failed", zap.String("key", key), zap.Error(err))
	}
	return grades, nil
}

// InvalidateUser drops every cached entry of userID
func (p *CachedStatsProvider) InvalidateUser(ctx context.Context, userID int) error {
	if err := p.cache.DeletePattern(ctx, fmt.Sprintf("clan:stats:%d:*", userID)); err != nil {
		return err
	}
	return p.cache.DeletePattern(ctx, fmt.Sprintf("clan:grades:%d:*", userID))
}
