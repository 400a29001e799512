package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CLAN_SVC"

// Config represents the complete application configuration
type Config struct {
	Server           ServerConfig           `mapstructure:"server"`
	Database         DatabaseConfig         `mapstructure:"database"`
	Redis            RedisConfig            `mapstructure:"redis"`
	Auth             AuthConfig             `mapstructure:"auth"`
	Logging          LoggingConfig          `mapstructure:"logging"`
	Clan             ClanConfig             `mapstructure:"clan"`
	Ranking          RankingConfig          `mapstructure:"ranking"`
	Cache            CacheConfig            `mapstructure:"cache"`
	RateLimit        RateLimitConfig        `mapstructure:"rate_limit"`
	ExternalServices ExternalServicesConfig `mapstructure:"external_services"`
	Timeouts         TimeoutsConfig         `mapstructure:"timeouts"`
	Metrics          MetricsConfig          `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	InternalPort string        `mapstructure:"internal_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	URL               string        `mapstructure:"url"`
	MaxConnections    int           `mapstructure:"max_connections"`
	MinConnections    int           `mapstructure:"min_connections"`
	MaxIdleTime       time.Duration `mapstructure:"max_idle_time"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	PingTimeout       time.Duration `mapstructure:"ping_timeout"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	URL            string        `mapstructure:"url"`
	AuthURL        string        `mapstructure:"auth_url"`
	MaxConnections int           `mapstructure:"max_connections"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PingTimeout    time.Duration `mapstructure:"ping_timeout"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	PublicKeyURL    string        `mapstructure:"public_key_url"`
	PublicKeyPath   string        `mapstructure:"public_key_path"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ClanConfig contains membership workflow switches
type ClanConfig struct {
	DirectJoin       bool `mapstructure:"direct_join"`
	RequestsPageSize int  `mapstructure:"requests_page_size"`
	ListPageSize     int  `mapstructure:"list_page_size"`
}

// RankingConfig selects and tunes the ranking engine
type RankingConfig struct {
	Source          string `mapstructure:"source"`
	DefaultPageSize int    `mapstructure:"default_page_size"`
	MaxPageSize     int    `mapstructure:"max_page_size"`
}

// CacheConfig contains per-user statistics cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

// RateLimitConfig contains public API rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// ExternalServicesConfig contains external service URLs and configuration
type ExternalServicesConfig struct {
	AssetService AssetServiceConfig `mapstructure:"asset_service"`
}

// AssetServiceConfig contains configuration for the asset storage service
type AssetServiceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// TimeoutsConfig contains various timeout configurations
type TimeoutsConfig struct {
	HTTPMiddleware   time.Duration `mapstructure:"http_middleware"`
	GracefulShutdown time.Duration `mapstructure:"graceful_shutdown"`
	DatabaseHealth   time.Duration `mapstructure:"database_health"`
	RedisHealth      time.Duration `mapstructure:"redis_health"`
	JWTKeyFetch      time.Duration `mapstructure:"jwt_key_fetch"`
}

// MetricsConfig contains metrics collection configuration
type MetricsConfig struct {
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

// Load reads .env (if present), an optional config.yaml and CLAN_SVC_* environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/clan-service")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"database.url",
		"redis.url",
		"redis.auth_url",
		"server.port",
		"server.internal_port",
		"auth.public_key_url",
		"auth.public_key_path",
		"external_services.asset_service.base_url",
		"clan.direct_join",
		"ranking.source",
	} {
		_ = v.BindEnv(key, envKey(key))
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func envKey(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.max_idle_time", "30m")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.health_check_period", "1m")
	v.SetDefault("database.ping_timeout", "10s")

	v.SetDefault("redis.max_connections", 10)
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.ping_timeout", "5s")

	v.SetDefault("auth.refresh_interval", "24h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("clan.direct_join", false)
	v.SetDefault("clan.requests_page_size", 50)
	v.SetDefault("clan.list_page_size", 25)

	v.SetDefault("ranking.source", "sql")
	v.SetDefault("ranking.default_page_size", 25)
	v.SetDefault("ranking.max_page_size", 100)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.stats_ttl", "1m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.cleanup_interval", "5m")

	v.SetDefault("external_services.asset_service.timeout", "10s")
	v.SetDefault("external_services.asset_service.max_upload_bytes", 5<<20)

	v.SetDefault("timeouts.http_middleware", "60s")
	v.SetDefault("timeouts.graceful_shutdown", "30s")
	v.SetDefault("timeouts.database_health", "2s")
	v.SetDefault("timeouts.redis_health", "2s")
	v.SetDefault("timeouts.jwt_key_fetch", "10s")

	v.SetDefault("metrics.health_check_interval", "30s")
}

// Validate validates the configuration and ensures required fields are present
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"database.url", c.Database.URL},
		{"redis.url", c.Redis.URL},
		{"redis.auth_url", c.Redis.AuthURL},
		{"server.port", c.Server.Port},
		{"server.internal_port", c.Server.InternalPort},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("required configuration field '%s' is not set (use environment variable %s)", f.key, envKey(f.key))
		}
	}

	if c.Auth.PublicKeyURL == "" && c.Auth.PublicKeyPath == "" {
		return fmt.Errorf("one of auth.public_key_url or auth.public_key_path must be set")
	}

	if !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("database.url must start with postgres:// or postgresql://")
	}
	for name, u := range map[string]string{"redis.url": c.Redis.URL, "redis.auth_url": c.Redis.AuthURL} {
		if !strings.HasPrefix(u, "redis://") && !strings.HasPrefix(u, "rediss://") {
			return fmt.Errorf("%s must start with redis:// or rediss://", name)
		}
	}

	timeouts := map[string]time.Duration{
		"server.read_timeout":        c.Server.ReadTimeout,
		"server.write_timeout":       c.Server.WriteTimeout,
		"database.ping_timeout":      c.Database.PingTimeout,
		"redis.ping_timeout":         c.Redis.PingTimeout,
		"timeouts.graceful_shutdown": c.Timeouts.GracefulShutdown,
	}
	for name, timeout := range timeouts {
		if timeout <= 0 {
			return fmt.Errorf("timeout '%s' must be positive, got %v", name, timeout)
		}
		if timeout > 10*time.Minute {
			return fmt.Errorf("timeout '%s' seems too large, got %v", name, timeout)
		}
	}

	for name, d := range map[string]time.Duration{
		"database.max_idle_time":       c.Database.MaxIdleTime,
		"database.max_conn_lifetime":   c.Database.MaxConnLifetime,
		"database.health_check_period": c.Database.HealthCheckPeriod,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}

	if c.Database.MaxConnections < 1 || c.Database.MaxConnections > 100 {
		return fmt.Errorf("database.max_connections must be between 1 and 100, got %d", c.Database.MaxConnections)
	}
	if c.Redis.MaxConnections <= 0 {
		return fmt.Errorf("redis.max_connections must be positive, got %d", c.Redis.MaxConnections)
	}
	if c.Redis.MaxRetries < 0 {
		return fmt.Errorf("redis.max_retries cannot be negative, got %d", c.Redis.MaxRetries)
	}

	switch c.Ranking.Source {
	case "sql", "memory":
	default:
		return fmt.Errorf("ranking.source must be 'sql' or 'memory', got %q", c.Ranking.Source)
	}
	if c.Ranking.MaxPageSize < 1 || c.Ranking.MaxPageSize > 100 {
		return fmt.Errorf("ranking.max_page_size must be between 1 and 100, got %d", c.Ranking.MaxPageSize)
	}
	if c.Ranking.DefaultPageSize < 1 || c.Ranking.DefaultPageSize > c.Ranking.MaxPageSize {
		return fmt.Errorf("ranking.default_page_size must be between 1 and %d, got %d", c.Ranking.MaxPageSize, c.Ranking.DefaultPageSize)
	}
	if c.Clan.RequestsPageSize < 1 || c.Clan.ListPageSize < 1 {
		return fmt.Errorf("clan page sizes must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit.requests_per_minute and rate_limit.burst must be positive when rate limiting is enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logging.Format)
	}

	return nil
}

// String returns a loggable representation of the configuration with credentials masked
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s:%s (internal %s), Database: %s, Redis: %s, LogLevel: %s, RankingSource: %s, DirectJoin: %t}",
		c.Server.Host, c.Server.Port, c.Server.InternalPort,
		maskURL(c.Database.URL), maskURL(c.Redis.URL),
		c.Logging.Level, c.Ranking.Source, c.Clan.DirectJoin,
	)
}

// maskURL hides the credentials part of a connection URL
func maskURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at == -1 || scheme == -1 || scheme > at {
		return raw
	}
	return raw[:scheme+3] + "***@" + raw[at+1:]
}
