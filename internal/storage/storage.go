package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/database"
	"github.com/shard-legends/clan-service/pkg/metrics"
)

// Storage groups every store the services depend on
type Storage struct {
	Clans        *ClanStorage
	Users        *UserStorage
	JoinRequests *JoinRequestStorage
	Files        *ClanFileStorage
	Stats        *StatsStorage
	Leaderboard  *LeaderboardStorage
}

// NewStorage builds all stores over one sqlx handle
func NewStorage(db *sqlx.DB, logger *zap.Logger, metricsCollector *metrics.Metrics) *Storage {
	base := baseStorage{db: db, logger: logger, metrics: metricsCollector}

	return &Storage{
		Clans:        &ClanStorage{baseStorage: base},
		Users:        &UserStorage{baseStorage: base},
		JoinRequests: &JoinRequestStorage{baseStorage: base},
		Files:        &ClanFileStorage{baseStorage: base},
		Stats:        &StatsStorage{baseStorage: base},
		Leaderboard:  &LeaderboardStorage{baseStorage: base},
	}
}

type baseStorage struct {
	db      *sqlx.DB
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// q returns the transaction bound to ctx, or the pool
func (s *baseStorage) q(ctx context.Context) sqlx.ExtContext {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}

func (s *baseStorage) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
	}
	s.metrics.DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
	s.metrics.DatabaseQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
