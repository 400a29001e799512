package handlers

import (
	"context"

	"github.com/shard-legends/clan-service/internal/models"
)

// ClanOperations is the clan lifecycle surface the HTTP API calls
type ClanOperations interface {
	CreateClan(ctx context.Context, ownerID int, name, tag string, description *string) (*models.Clan, error)
	JoinClan(ctx context.Context, userID, clanID int) error
	LeaveClan(ctx context.Context, userID int) error
	TransferOwnership(ctx context.Context, ownerID, targetUserID int) error
	DisbandClan(ctx context.Context, ownerID int) error
	PromoteToOfficer(ctx context.Context, ownerID, targetUserID int) error
	DemoteToMember(ctx context.Context, ownerID, targetUserID int) error
	EditClan(ctx context.Context, ownerID int, newName, newTag *string) (*models.Clan, error)
	GetClanByTag(ctx context.Context, tag string) (*models.Clan, error)
	ListClans(ctx context.Context, page, pageSize int) (*models.ClanListResponse, error)
	GetClanDetails(ctx context.Context, clanID int, mode models.GameMode) (*models.ClanDetailsResponse, error)
	SetClanAsset(ctx context.Context, userID, clanID int, fileType models.ClanFileType, filename string, data []byte) (string, error)
}

// JoinRequestOperations is the join request workflow surface the HTTP API calls
type JoinRequestOperations interface {
	Submit(ctx context.Context, userID, clanID int) (*models.ClanJoinRequest, error)
	Revoke(ctx context.Context, userID, clanID int) error
	Approve(ctx context.Context, ownerID, requestID, targetUserID int) error
	Deny(ctx context.Context, ownerID, requestID int) error
	Status(ctx context.Context, userID, clanID int) (*models.JoinRequestStatusResponse, error)
	ListRequests(ctx context.Context, ownerID, clanID int, status *models.JoinRequestStatus, page, pageSize int) (*models.JoinRequestListResponse, error)
}

// LeaderboardOperations serves ranked clan pages
type LeaderboardOperations interface {
	Leaderboard(ctx context.Context, metric models.Metric, mode models.GameMode, page, pageSize int) (*models.LeaderboardResponse, error)
	DefaultPageSize() int
}
