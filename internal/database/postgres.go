package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/config"
	"github.com/shard-legends/clan-service/pkg/metrics"
)

// PostgresDB owns the pgx pool and an sqlx handle that shares it
type PostgresDB struct {
	pool    *pgxpool.Pool
	sqlDB   *sql.DB
	db      *sqlx.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPostgresDB creates a new PostgreSQL connection pool
func NewPostgresDB(cfg *config.DatabaseConfig, logger *zap.Logger, metricsCollector *metrics.Metrics) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	applyPoolSettings(poolConfig, cfg)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlx runs on top of the same pool through the pgx database/sql adapter
	sqlDB := stdlib.OpenDBFromPool(pool)

	db := &PostgresDB{
		pool:    pool,
		sqlDB:   sqlDB,
		db:      sqlx.NewDb(sqlDB, "pgx"),
		logger:  logger,
		metrics: metricsCollector,
	}

	if metricsCollector != nil {
		metricsCollector.DatabaseConnections.Set(float64(cfg.MaxConnections))
		metricsCollector.UpdateDependencyHealth("postgres", true)
	}

	logger.Info("PostgreSQL connection established",
		zap.Int("max_conns", cfg.MaxConnections),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.Uint16("port", poolConfig.ConnConfig.Port),
	)

	return db, nil
}

// applyPoolSettings copies configured pool limits over the pgxpool defaults.
// Zero or negative values keep the defaults; pgxpool's health check ticker
// panics on a non-positive period.
func applyPoolSettings(poolConfig *pgxpool.Config, cfg *config.DatabaseConfig) {
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = int32(cfg.MinConnections)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
}

// DB returns the sqlx handle used by the storage layer
func (db *PostgresDB) DB() *sqlx.DB {
	return db.db
}

// Health checks the health of the database connection
func (db *PostgresDB) Health(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		if db.metrics != nil {
			db.metrics.UpdateDependencyHealth("postgres", false)
		}
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		if db.metrics != nil {
			db.metrics.UpdateDependencyHealth("postgres", false)
		}
		return fmt.Errorf("database query health check failed: %w", err)
	}

	if db.metrics != nil {
		db.metrics.UpdateDependencyHealth("postgres", true)
		db.metrics.DatabaseConnections.Set(float64(db.pool.Stat().TotalConns()))
	}

	return nil
}

// Close closes the sql adapter and the pool
func (db *PostgresDB) Close() {
	if db.sqlDB != nil {
		_ = db.sqlDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
		db.logger.Info("PostgreSQL connection pool closed")

		if db.metrics != nil {
			db.metrics.DatabaseConnections.Set(0)
			db.metrics.UpdateDependencyHealth("postgres", false)
		}
	}
}

// Stats returns connection pool statistics
func (db *PostgresDB) Stats() map[string]interface{} {
	if db.pool == nil {
		return map[string]interface{}{
			"status": "disconnected",
		}
	}

	stats := db.pool.Stat()
	return map[string]interface{}{
		"status":                "connected",
		"total_conns":           stats.TotalConns(),
		"acquired_conns":        stats.AcquiredConns(),
		"idle_conns":            stats.IdleConns(),
		"max_conns":             stats.MaxConns(),
		"new_conns_count":       stats.NewConnsCount(),
		"max_lifetime_destroys": stats.MaxLifetimeDestroyCount(),
		"max_idle_destroys":     stats.MaxIdleDestroyCount(),
	}
}
