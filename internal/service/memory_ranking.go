package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

// MemoryRankingSource aggregates clan stats in process from the membership
// store and the per-user stats providers. It yields the same results as the
// SQL pass and serves as the fallback when the database cannot rank.
type MemoryRankingSource struct {
	clans  ClanStorage
	users  UserStorage
	stats  StatsProvider
	grades GradesProvider
}

// NewMemoryRankingSource creates an in-process ranking source
func NewMemoryRankingSource(clans ClanStorage, users UserStorage, stats StatsProvider, grades GradesProvider) *MemoryRankingSource {
	return &MemoryRankingSource{clans: clans, users: users, stats: stats, grades: grades}
}

type clanAggregate struct {
	clan    *models.Clan
	members int
	stats   models.ClanStats
	plays   int64
}

// aggregate sums member stats for one clan. Members without stats count as zero.
func (m *MemoryRankingSource) aggregate(ctx context.Context, clan *models.Clan, mode models.GameMode) (*clanAggregate, error) {
	members, err := m.users.ListByClan(ctx, clan.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list members of clan %d", clan.ID)
	}

	agg := &clanAggregate{clan: clan, members: len(members)}
	var accSum float64
	for _, member := range members {
		st, err := m.stats.GetUserStats(ctx, member.ID, mode)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load stats of user %d", member.ID)
		}
		if st == nil {
			continue
		}
		agg.stats.TotalPP += st.PP
		agg.stats.RankedScore += float64(st.RankedScore)
		accSum += st.Accuracy
		agg.plays += st.PlayCount
	}

	if agg.members > 0 {
		agg.stats.AveragePP = agg.stats.TotalPP / float64(agg.members)
		agg.stats.Accuracy = accSum / float64(agg.members)
	}
	return agg, nil
}

func (m *MemoryRankingSource) rankAll(ctx context.Context, metric models.Metric, mode models.GameMode) ([]models.ClanLeaderboardItem, error) {
	if !metric.Valid() {
		return nil, internalerrors.Validation(fmt.Sprintf("Unknown metric %q", metric))
	}

	clans, err := m.clans.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list clans")
	}

	items := make([]models.ClanLeaderboardItem, 0, len(clans))
	for _, clan := range clans {
		agg, err := m.aggregate(ctx, clan, mode)
		if err != nil {
			return nil, err
		}
		items = append(items, models.ClanLeaderboardItem{
			ClanID:      clan.ID,
			Name:        clan.Name,
			Tag:         clan.Tag,
			OwnerID:     clan.OwnerID,
			MemberCount: agg.members,
			Value:       agg.stats.Value(metric),
			AvgAcc:      agg.stats.Accuracy,
			PlayCount:   agg.plays,
		})
	}

	RankItems(items)
	return items, nil
}

func (m *MemoryRankingSource) Leaderboard(ctx context.Context, metric models.Metric, mode models.GameMode, offset, limit int) ([]models.ClanLeaderboardItem, error) {
	items, err := m.rankAll(ctx, metric, mode)
	if err != nil {
		return nil, err
	}
	return pageOf(items, offset, limit), nil
}

func (m *MemoryRankingSource) RankOf(ctx context.Context, metric models.Metric, mode models.GameMode, clanID int) (int, error) {
	items, err := m.rankAll(ctx, metric, mode)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if item.ClanID == clanID {
			return item.Rank, nil
		}
	}
	return 0, internalerrors.NotFound(msgClanNotFound)
}

func (m *MemoryRankingSource) StatsOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanStats, error) {
	clan, err := m.requireClan(ctx, clanID)
	if err != nil {
		return nil, err
	}
	agg, err := m.aggregate(ctx, clan, mode)
	if err != nil {
		return nil, err
	}
	return &agg.stats, nil
}

func (m *MemoryRankingSource) GradesOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanGrades, error) {
	clan, err := m.requireClan(ctx, clanID)
	if err != nil {
		return nil, err
	}
	members, err := m.users.ListByClan(ctx, clan.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list members of clan %d", clan.ID)
	}

	grades := &models.ClanGrades{}
	for _, member := range members {
		g, err := m.grades.GetUserGrades(ctx, member.ID, mode)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load grades of user %d", member.ID)
		}
		grades.Add(g)
	}
	return grades, nil
}

func (m *MemoryRankingSource) CountClans(ctx context.Context) (int, error) {
	return m.clans.Count(ctx)
}

func (m *MemoryRankingSource) requireClan(ctx context.Context, clanID int) (*models.Clan, error) {
	clan, err := m.clans.GetByID(ctx, clanID)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return nil, internalerrors.NotFound(msgClanNotFound)
	}
	return clan, nil
}
