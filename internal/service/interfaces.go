package service

import (
	"context"
	"time"

	"github.com/shard-legends/clan-service/internal/models"
)

// Lookups return (nil, nil) when the row does not exist; callers decide
// which not-found message applies.

// ClanStorage persists clans
type ClanStorage interface {
	GetByID(ctx context.Context, id int) (*models.Clan, error)
	GetByTag(ctx context.Context, tag string) (*models.Clan, error)
	GetByOwner(ctx context.Context, ownerID int) (*models.Clan, error)
	GetByIDForUpdate(ctx context.Context, id int) (*models.Clan, error)
	Create(ctx context.Context, clan *models.Clan) (*models.Clan, error)
	UpdateDetails(ctx context.Context, id int, name, tag string) error
	SetOwner(ctx context.Context, id, ownerID int) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, offset, limit int) ([]*models.Clan, error)
	Count(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]*models.Clan, error)
}

// UserStorage reads users and edits their clan membership columns
type UserStorage interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
	IsInAnyClan(ctx context.Context, userID int) (bool, error)
	AttachToClan(ctx context.Context, userID, clanID int, priv models.Privilege) error
	DetachFromClan(ctx context.Context, userID int) error
	DetachAllFromClan(ctx context.Context, clanID int) (int64, error)
	SetPrivilege(ctx context.Context, userID int, priv models.Privilege) error
	ListByClan(ctx context.Context, clanID int) ([]*models.User, error)
	CountByClan(ctx context.Context, clanID int) (int, error)
}

// JoinRequestStorage persists clan join requests
type JoinRequestStorage interface {
	Create(ctx context.Context, req *models.ClanJoinRequest) (*models.ClanJoinRequest, error)
	GetByID(ctx context.Context, id int) (*models.ClanJoinRequest, error)
	GetPending(ctx context.Context, clanID, userID int) (*models.ClanJoinRequest, error)
	HasPending(ctx context.Context, clanID, userID int) (bool, error)
	// UpdateStatus only moves a pending request; anything else is NotFound
	UpdateStatus(ctx context.Context, id int, status models.JoinRequestStatus, actionedBy int) error
	ListByClan(ctx context.Context, clanID int, status *models.JoinRequestStatus, offset, limit int) ([]*models.ClanJoinRequest, error)
	CountByClan(ctx context.Context, clanID int, status *models.JoinRequestStatus) (int, error)
	CancelPendingForUser(ctx context.Context, userID, actionedBy int) (int64, error)
}

// ClanFileStorage records avatar and banner paths
type ClanFileStorage interface {
	Upsert(ctx context.Context, clanID int, fileType models.ClanFileType, path string) (*models.ClanFile, error)
	Get(ctx context.Context, clanID int, fileType models.ClanFileType) (*models.ClanFile, error)
}

// Transactor runs fn in one transaction carried by ctx
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatsProvider returns per-user statistics; (nil, nil) means no stats
type StatsProvider interface {
	GetUserStats(ctx context.Context, userID int, mode models.GameMode) (*models.UserStats, error)
}

// GradesProvider returns per-user grade counts; (nil, nil) means none
type GradesProvider interface {
	GetUserGrades(ctx context.Context, userID int, mode models.GameMode) (*models.UserGrades, error)
}

// RankingSource computes clan aggregates and their ranks
type RankingSource interface {
	Leaderboard(ctx context.Context, metric models.Metric, mode models.GameMode, offset, limit int) ([]models.ClanLeaderboardItem, error)
	RankOf(ctx context.Context, metric models.Metric, mode models.GameMode, clanID int) (int, error)
	StatsOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanStats, error)
	GradesOf(ctx context.Context, mode models.GameMode, clanID int) (*models.ClanGrades, error)
	CountClans(ctx context.Context) (int, error)
}

// AssetStore uploads clan images and returns the stored path
type AssetStore interface {
	SaveClanAsset(ctx context.Context, clanID int, fileType models.ClanFileType, filename string, data []byte) (string, error)
}

// MetricsInterface is the subset of pkg/metrics the services record into
type MetricsInterface interface {
	RecordClanOperation(operation string, err error)
	RecordJoinRequest(action string, err error)
	ObserveLeaderboard(metric, source string, started time.Time)
}
