package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

// metricAggregates maps a metric to its aggregate over member stat rows.
// Members without a stats row count as zero.
var metricAggregates = map[models.Metric]string{
	models.MetricTotalPP:     `SUM(COALESCE(s.pp, 0))`,
	models.MetricAveragePP:   `AVG(COALESCE(s.pp, 0))`,
	models.MetricRankedScore: `SUM(COALESCE(s.ranked_score, 0))`,
	models.MetricAccuracy:    `AVG(COALESCE(s.accuracy, 0))`,
}

// LeaderboardStorage ranks clans in a single aggregate pass in the database.
// The SQL sticks to what both PostgreSQL and SQLite accept.
type LeaderboardStorage struct {
	baseStorage
}

func rankedClansQuery(metric models.Metric) (string, error) {
	agg, ok := metricAggregates[metric]
	if !ok {
		return "", internalerrors.Validation(fmt.Sprintf("Unknown metric %q", metric))
	}

	return `
		SELECT clan_id, name, tag, owner_id, member_count, value, avg_acc, play_count,
		       RANK() OVER (ORDER BY value DESC) AS rank
		FROM (
			SELECT c.id AS clan_id, c.name AS name, c.tag AS tag, c.owner_id AS owner_id,
			       COUNT(u.id) AS member_count,
			       CAST(COALESCE(` + agg + `, 0) AS DOUBLE PRECISION) AS value,
			       CAST(COALESCE(AVG(COALESCE(s.accuracy, 0)), 0) AS DOUBLE PRECISION) AS avg_acc,
			       CAST(COALESCE(SUM(COALESCE(s.play_count, 0)), 0) AS BIGINT) AS play_count
			FROM clan c
			LEFT JOIN users u ON u.clan_id = c.id
			LEFT JOIN user_stats s ON s.user_id = u.id AND s.game_mode = ?
			GROUP BY c.id, c.name, c.tag, c.owner_id
		) agg`, nil
}

// Leaderboard returns one page of clans ordered by value desc, clan id asc
func (s *LeaderboardStorage) Leaderboard(ctx context.Context, metric models.Metric, mode models.GameMode, offset, limit int) ([]models.ClanLeaderboardItem, error) {
	ranked, err := rankedClansQuery(metric)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	q := s.q(ctx)

	items := []models.ClanLeaderboardItem{}
	err = sqlx.SelectContext(ctx, q, &items,
		q.Rebind(ranked+` ORDER BY value DESC, clan_id ASC LIMIT ? OFFSET ?`), int(mode), limit, offset)
	s.observe("leaderboard", start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s leaderboard", metric)
	}
	return items, nil
}

// RankOf returns the clan's rank for metric, NotFound if the clan does not exist
func (s *LeaderboardStorage) RankOf(ctx context.Context, metric models.Metric, mode models.GameMode, clanID int) (int, error) {
	ranked, err := rankedClansQuery(metric)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	q := s.q(ctx)

	var rank int
	err = sqlx.GetContext(ctx, q, &rank,
		q.Rebind(`SELECT rank FROM (`+ranked+`) ranked WHERE clan_id = ?`), int(mode), clanID)
	s.observe("clan_rank", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, internalerrors.NotFound("Clan not found")
		}
		return 0, errors.Wrapf(err, "failed to rank clan %d", clanID)
	}
	return rank, nil
}

// StatsOf aggregates all four metrics for one clan
func (s *LeaderboardStorage) StatsOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanStats, error) {
	start := time.Now()
	q := s.q(ctx)

	var stats models.ClanStats
	err := sqlx.GetContext(ctx, q, &stats, q.Rebind(`
		SELECT CAST(COALESCE(SUM(COALESCE(s.pp, 0)), 0) AS DOUBLE PRECISION) AS total_pp,
		       CAST(COALESCE(AVG(COALESCE(s.pp, 0)), 0) AS DOUBLE PRECISION) AS average_pp,
		       CAST(COALESCE(SUM(COALESCE(s.ranked_score, 0)), 0) AS DOUBLE PRECISION) AS ranked_score,
		       CAST(COALESCE(AVG(COALESCE(s.accuracy, 0)), 0) AS DOUBLE PRECISION) AS accuracy
		FROM clan c
		LEFT JOIN users u ON u.clan_id = c.id
		LEFT JOIN user_stats s ON s.user_id = u.id AND s.game_mode = ?
		WHERE c.id = ?
		GROUP BY c.id`), int(mode), clanID)
	s.observe("clan_stats", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internalerrors.NotFound("Clan not found")
		}
		return nil, errors.Wrapf(err, "failed to aggregate stats of clan %d", clanID)
	}
	return &stats, nil
}

// GradesOf sums member grade counts for one clan
func (s *LeaderboardStorage) GradesOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanGrades, error) {
	start := time.Now()
	q := s.q(ctx)

	var grades models.ClanGrades
	err := sqlx.GetContext(ctx, q, &grades, q.Rebind(`
		SELECT CAST(COALESCE(SUM(COALESCE(g.count_xh, 0)), 0) AS BIGINT) AS count_xh,
		       CAST(COALESCE(SUM(COALESCE(g.count_x, 0)), 0) AS BIGINT) AS count_x,
		       CAST(COALESCE(SUM(COALESCE(g.count_sh, 0)), 0) AS BIGINT) AS count_sh,
		       CAST(COALESCE(SUM(COALESCE(g.count_s, 0)), 0) AS BIGINT) AS count_s,
		       CAST(COALESCE(SUM(COALESCE(g.count_a, 0)), 0) AS BIGINT) AS count_a
		FROM clan c
		LEFT JOIN users u ON u.clan_id = c.id
		LEFT JOIN user_grades g ON g.user_id = u.id AND g.game_mode = ?
		WHERE c.id = ?
		GROUP BY c.id`), int(mode), clanID)
	s.observe("clan_grades", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internalerrors.NotFound("Clan not found")
		}
		return nil, errors.Wrapf(err, "failed to aggregate grades of clan %d", clanID)
	}
	return &grades, nil
}

// CountClans returns the number of ranked clans, which is every clan
func (s *LeaderboardStorage) CountClans(ctx context.Context) (int, error) {
	start := time.Now()

	var count int
	err := sqlx.GetContext(ctx, s.q(ctx), &count, `SELECT COUNT(*) FROM clan`)
	s.observe("count_ranked_clans", start, err)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count clans")
	}
	return count, nil
}
