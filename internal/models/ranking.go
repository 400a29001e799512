package models

import (
	"fmt"
	"strconv"
	"strings"
)

// GameMode selects which per-mode statistics are aggregated
type GameMode int

const (
	GameModeStandard          GameMode = 0
	GameModeTaiko             GameMode = 1
	GameModeCatchTheBeat      GameMode = 2
	GameModeMania             GameMode = 3
	GameModeRelaxStandard     GameMode = 4
	GameModeRelaxTaiko        GameMode = 5
	GameModeRelaxCatchTheBeat GameMode = 6
	GameModeAutopilotStandard GameMode = 8
)

var gameModeNames = map[GameMode]string{
	GameModeStandard:          "standard",
	GameModeTaiko:             "taiko",
	GameModeCatchTheBeat:      "catch_the_beat",
	GameModeMania:             "mania",
	GameModeRelaxStandard:     "relax_standard",
	GameModeRelaxTaiko:        "relax_taiko",
	GameModeRelaxCatchTheBeat: "relax_catch_the_beat",
	GameModeAutopilotStandard: "autopilot_standard",
}

func (m GameMode) String() string {
	if name, ok := gameModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("GameMode(%d)", int(m))
}

func (m GameMode) Valid() bool {
	_, ok := gameModeNames[m]
	return ok
}

// ParseGameMode accepts the numeric mode id or its name. An empty value means standard.
func ParseGameMode(raw string) (GameMode, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GameModeStandard, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		m := GameMode(n)
		if !m.Valid() {
			return GameModeStandard, fmt.Errorf("invalid game mode %q", raw)
		}
		return m, nil
	}

	key := normalizeEnumName(raw)
	for m, name := range gameModeNames {
		if normalizeEnumName(name) == key {
			return m, nil
		}
	}
	return GameModeStandard, fmt.Errorf("invalid game mode %q", raw)
}

// Metric is a clan ranking dimension
type Metric string

const (
	MetricTotalPP     Metric = "total_pp"
	MetricAveragePP   Metric = "average_pp"
	MetricRankedScore Metric = "ranked_score"
	MetricAccuracy    Metric = "accuracy"
)

// AllMetrics lists the supported metrics in display order
var AllMetrics = []Metric{MetricTotalPP, MetricAveragePP, MetricRankedScore, MetricAccuracy}

func (m Metric) Valid() bool {
	for _, known := range AllMetrics {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMetric accepts "total_pp", "TotalPp", "totalpp" and so on. An empty value means total_pp.
func ParseMetric(raw string) (Metric, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MetricTotalPP, nil
	}
	key := normalizeEnumName(raw)
	for _, m := range AllMetrics {
		if normalizeEnumName(string(m)) == key {
			return m, nil
		}
	}
	return MetricTotalPP, fmt.Errorf("invalid metric %q", raw)
}

func normalizeEnumName(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// UserStats is one user's per-mode statistics as produced by the stats engine
type UserStats struct {
	UserID      int      `json:"user_id" db:"user_id"`
	GameMode    GameMode `json:"game_mode" db:"game_mode"`
	PP          float64  `json:"pp" db:"pp"`
	Accuracy    float64  `json:"accuracy" db:"accuracy"`
	RankedScore int64    `json:"ranked_score" db:"ranked_score"`
	PlayCount   int64    `json:"play_count" db:"play_count"`
}

// UserGrades is one user's per-mode grade tally
type UserGrades struct {
	UserID   int      `json:"user_id" db:"user_id"`
	GameMode GameMode `json:"game_mode" db:"game_mode"`
	CountXH  int64    `json:"count_xh" db:"count_xh"`
	CountX   int64    `json:"count_x" db:"count_x"`
	CountSH  int64    `json:"count_sh" db:"count_sh"`
	CountS   int64    `json:"count_s" db:"count_s"`
	CountA   int64    `json:"count_a" db:"count_a"`
}

// ClanStats holds the four raw aggregates of a clan for one mode
type ClanStats struct {
	TotalPP     float64 `json:"total_pp" db:"total_pp"`
	AveragePP   float64 `json:"average_pp" db:"average_pp"`
	RankedScore float64 `json:"ranked_score" db:"ranked_score"`
	Accuracy    float64 `json:"accuracy" db:"accuracy"`
}

// Value returns the aggregate used to rank by metric
func (s *ClanStats) Value(metric Metric) float64 {
	switch metric {
	case MetricAveragePP:
		return s.AveragePP
	case MetricRankedScore:
		return s.RankedScore
	case MetricAccuracy:
		return s.Accuracy
	default:
		return s.TotalPP
	}
}

// ClanGrades sums grade counters across all members
type ClanGrades struct {
	CountXH int64 `json:"xh" db:"count_xh"`
	CountX  int64 `json:"x" db:"count_x"`
	CountSH int64 `json:"sh" db:"count_sh"`
	CountS  int64 `json:"s" db:"count_s"`
	CountA  int64 `json:"a" db:"count_a"`
}

// Add accumulates one member's grades
func (g *ClanGrades) Add(u *UserGrades) {
	if u == nil {
		return
	}
	g.CountXH += u.CountXH
	g.CountX += u.CountX
	g.CountSH += u.CountSH
	g.CountS += u.CountS
	g.CountA += u.CountA
}

// ClanLeaderboardItem is a derived per-clan snapshot. It is recomputed on every query.
type ClanLeaderboardItem struct {
	ClanID      int     `json:"clan_id" db:"clan_id"`
	Name        string  `json:"name" db:"name"`
	Tag         string  `json:"tag" db:"tag"`
	OwnerID     int     `json:"owner_id" db:"owner_id"`
	MemberCount int     `json:"member_count" db:"member_count"`
	Value       float64 `json:"value" db:"value"`
	AvgAcc      float64 `json:"avg_acc" db:"avg_acc"`
	PlayCount   int64   `json:"play_count" db:"play_count"`
	Rank        int     `json:"rank" db:"rank"`
}
