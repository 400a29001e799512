package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/shard-legends/clan-service/internal/models"
)

// StatsStorage reads the per-user tables the statistics engine maintains.
// It implements service.StatsProvider and service.GradesProvider.
type StatsStorage struct {
	baseStorage
}

// GetUserStats returns the user's stats for mode, or nil when there are none
func (s *StatsStorage) GetUserStats(ctx context.Context, userID int, mode models.GameMode) (*models.UserStats, error) {
	start := time.Now()
	q := s.q(ctx)

	var stats models.UserStats
	err := sqlx.GetContext(ctx, q, &stats, q.Rebind(`
		SELECT user_id, game_mode, pp, accuracy, ranked_score, play_count
		FROM user_stats
		WHERE user_id = ? AND game_mode = ?`), userID, int(mode))
	s.observe("get_user_stats", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get stats for user %d", userID)
	}
	return &stats, nil
}

// GetUserGrades returns the user's grade counts for mode, or nil
func (s *StatsStorage) GetUserGrades(ctx context.Context, userID int, mode models.GameMode) (*models.UserGrades, error) {
	start := time.Now()
	q := s.q(ctx)

	var grades models.UserGrades
	err := sqlx.GetContext(ctx, q, &grades, q.Rebind(`
		SELECT user_id, game_mode, count_xh, count_x, count_sh, count_s, count_a
		FROM user_grades
		WHERE user_id = ? AND game_mode = ?`), userID, int(mode))
	s.observe("get_user_grades", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to get grades for user %d", userID)
	}
	return &grades, nil
}
