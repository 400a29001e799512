package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

// MaxPageSize bounds every paginated listing
const MaxPageSize = 100

const msgInvalidPagination = "Invalid pagination parameters"

// RankingOptions tunes the leaderboard service
type RankingOptions struct {
	// Source names the configured ranking source for metrics labels
	Source          string
	DefaultPageSize int
	MaxPageSize     int
}

// LeaderboardService answers leaderboard and rank queries. Every call
// recomputes from current membership and stats; nothing is cached here.
type LeaderboardService struct {
	source  RankingSource
	opts    RankingOptions
	logger  *zap.Logger
	metrics MetricsInterface
}

// NewLeaderboardService creates a leaderboard service over source
func NewLeaderboardService(source RankingSource, opts RankingOptions, logger *zap.Logger, metrics MetricsInterface) *LeaderboardService {
	if opts.MaxPageSize < 1 || opts.MaxPageSize > MaxPageSize {
		opts.MaxPageSize = MaxPageSize
	}
	if opts.DefaultPageSize < 1 || opts.DefaultPageSize > opts.MaxPageSize {
		opts.DefaultPageSize = 25
	}
	if opts.Source == "" {
		opts.Source = "sql"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &LeaderboardService{
		source:  source,
		opts:    opts,
		logger:  logger.With(zap.String("component", "leaderboard_service")),
		metrics: metrics,
	}
}

// DefaultPageSize is used when a caller does not pass one
func (s *LeaderboardService) DefaultPageSize() int {
	return s.opts.DefaultPageSize
}

// Leaderboard returns one 0-indexed page of clans ranked by metric in mode
func (s *LeaderboardService) Leaderboard(ctx context.Context, metric models.Metric, mode models.GameMode, page, pageSize int) (*models.LeaderboardResponse, error) {
	if !metric.Valid() {
		return nil, internalerrors.Validation(fmt.Sprintf("Unknown metric %q", metric))
	}
	if !mode.Valid() {
		return nil, internalerrors.Validation("Invalid game mode")
	}
	if page < 0 || pageSize < 1 || pageSize > s.opts.MaxPageSize {
		return nil, internalerrors.Validation(msgInvalidPagination)
	}

	started := time.Now()
	items, err := s.source.Leaderboard(ctx, metric, mode, page*pageSize, pageSize)
	s.metrics.ObserveLeaderboard(string(metric), s.opts.Source, started)
	if err != nil {
		s.logger.Error("Failed to build leaderboard",
			zap.String("metric", string(metric)),
			zap.String("mode", mode.String()),
			zap.Error(err))
		return nil, err
	}

	total, err := s.source.CountClans(ctx)
	if err != nil {
		return nil, err
	}

	return &models.LeaderboardResponse{
		Metric:   metric,
		GameMode: mode,
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// RankOf returns the 1-based rank of clanID for metric in mode
func (s *LeaderboardService) RankOf(ctx context.Context, metric models.Metric, mode models.GameMode, clanID int) (int, error) {
	if !metric.Valid() {
		return 0, internalerrors.Validation(fmt.Sprintf("Unknown metric %q", metric))
	}
	started := time.Now()
	rank, err := s.source.RankOf(ctx, metric, mode, clanID)
	s.metrics.ObserveLeaderboard(string(metric), s.opts.Source, started)
	return rank, err
}

// Ranks resolves the clan's rank for every metric
func (s *LeaderboardService) Ranks(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanRanks, error) {
	ranks := &models.ClanRanks{}
	targets := map[models.Metric]*int{
		models.MetricTotalPP:     &ranks.TotalPP,
		models.MetricAveragePP:   &ranks.AveragePP,
		models.MetricRankedScore: &ranks.RankedScore,
		models.MetricAccuracy:    &ranks.Accuracy,
	}
	for _, metric := range models.AllMetrics {
		rank, err := s.RankOf(ctx, metric, mode, clanID)
		if err != nil {
			return nil, err
		}
		*targets[metric] = rank
	}
	return ranks, nil
}

// StatsOf returns the clan's raw aggregates in mode
func (s *LeaderboardService) StatsOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanStats, error) {
	return s.source.StatsOf(ctx, mode, clanID)
}

// GradesOf returns the clan's summed grade counters in mode
func (s *LeaderboardService) GradesOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanGrades, error) {
	return s.source.GradesOf(ctx, mode, clanID)
}
