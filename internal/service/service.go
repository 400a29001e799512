package service

import (
	"time"

	"go.uber.org/zap"
)

// ServiceDependencies aggregates everything the clan services need
type ServiceDependencies struct {
	Clans        ClanStorage
	Users        UserStorage
	JoinRequests JoinRequestStorage
	Files        ClanFileStorage
	Tx           Transactor
	Ranking      RankingSource
	Assets       AssetStore
	Metrics      MetricsInterface
	Logger       *zap.Logger
}

// Services bundles the public services for the handler layer
type Services struct {
	Clans        *ClanService
	JoinRequests *JoinRequestService
	Leaderboard  *LeaderboardService
}

// NewServices wires all services over deps
func NewServices(deps *ServiceDependencies, ranking RankingOptions) *Services {
	deps.applyDefaults()

	leaderboard := NewLeaderboardService(deps.Ranking, ranking, deps.Logger, deps.Metrics)
	return &Services{
		Clans:        NewClanService(deps, leaderboard),
		JoinRequests: NewJoinRequestService(deps),
		Leaderboard:  leaderboard,
	}
}

func (d *ServiceDependencies) applyDefaults() {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordClanOperation(string, error)            {}
func (noopMetrics) RecordJoinRequest(string, error)              {}
func (noopMetrics) ObserveLeaderboard(string, string, time.Time) {}
