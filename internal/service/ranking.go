package service

import (
	"cmp"
	"slices"

	"github.com/shard-legends/clan-service/internal/models"
)

// RankItems orders items by value desc, clan id asc and assigns ranks the
// way SQL RANK() does: equal values share a rank and the next distinct
// value skips past the tied positions.
func RankItems(items []models.ClanLeaderboardItem) {
	slices.SortStableFunc(items, func(a, b models.ClanLeaderboardItem) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.ClanID, b.ClanID)
	})

	for i := range items {
		if i > 0 && items[i].Value == items[i-1].Value {
			items[i].Rank = items[i-1].Rank
			continue
		}
		items[i].Rank = i + 1
	}
}

// RankOfValue is 1 + the number of values strictly greater than v
func RankOfValue(values []float64, v float64) int {
	rank := 1
	for _, other := range values {
		if other > v {
			rank++
		}
	}
	return rank
}

// pageOf returns items[offset:offset+limit], clamped
func pageOf(items []models.ClanLeaderboardItem, offset, limit int) []models.ClanLeaderboardItem {
	if offset >= len(items) {
		return []models.ClanLeaderboardItem{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}
