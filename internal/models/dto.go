package models

import "time"

// CreateClanRequest is the payload of POST /clan/create
type CreateClanRequest struct {
	Name        string  `json:"name" validate:"max=128"`
	Tag         string  `json:"tag" validate:"max=32"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1024"`
}

// EditClanRequest is the payload of PATCH /clan/edit. Omitted fields stay unchanged.
type EditClanRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=128"`
	Tag  *string `json:"tag,omitempty" validate:"omitempty,max=32"`
}

// ClanIDRequest carries a target clan id
type ClanIDRequest struct {
	ClanID int `json:"clan_id" validate:"required,gt=0"`
}

// TargetUserRequest carries a target user id for transfer, promote and demote
type TargetUserRequest struct {
	TargetUserID int `json:"target_user_id" validate:"required,gt=0"`
}

// ApproveJoinRequest is the payload of POST /clan/requests/approve
type ApproveJoinRequest struct {
	RequestID    int `json:"request_id" validate:"required,gt=0"`
	TargetUserID int `json:"target_user_id" validate:"required,gt=0"`
}

// DenyJoinRequest is the payload of POST /clan/requests/deny
type DenyJoinRequest struct {
	RequestID int `json:"request_id" validate:"required,gt=0"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse is returned by mutations without a richer body
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ClanMemberResponse is one row of the member list in clan details
type ClanMemberResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Rank     string `json:"rank"`
}

// ClanRanks holds a clan's position for each metric
type ClanRanks struct {
	TotalPP     int `json:"total_pp"`
	AveragePP   int `json:"average_pp"`
	RankedScore int `json:"ranked_score"`
	Accuracy    int `json:"accuracy"`
}

// ClanDetailsResponse is the full clan info view
type ClanDetailsResponse struct {
	ID          int                  `json:"id"`
	Name        string               `json:"name"`
	Tag         string               `json:"tag"`
	Description *string              `json:"description,omitempty"`
	OwnerID     int                  `json:"owner_id"`
	Owner       *ClanMemberResponse  `json:"owner,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	MemberCount int                  `json:"member_count"`
	Members     []ClanMemberResponse `json:"members"`
	GameMode    GameMode             `json:"game_mode"`
	Ranks       ClanRanks            `json:"ranks"`
	Stats       ClanStats            `json:"stats"`
	Grades      ClanGrades           `json:"grades"`
	AvatarPath  *string              `json:"avatar_path,omitempty"`
	BannerPath  *string              `json:"banner_path,omitempty"`
}

// ClanListResponse is a page of clans
type ClanListResponse struct {
	Clans    []*Clan `json:"clans"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// LeaderboardResponse is a page of ranked clans
type LeaderboardResponse struct {
	Metric   Metric                `json:"metric"`
	GameMode GameMode              `json:"game_mode"`
	Items    []ClanLeaderboardItem `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

// JoinRequestStatusResponse tells an applicant whether a request is pending
type JoinRequestStatusResponse struct {
	Pending bool             `json:"pending"`
	Request *ClanJoinRequest `json:"request,omitempty"`
}

// JoinRequestListResponse is a page of a clan's join requests
type JoinRequestListResponse struct {
	Requests []*ClanJoinRequest `json:"requests"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// AssetUploadResponse is returned after an avatar or banner upload
type AssetUploadResponse struct {
	ClanID int    `json:"clan_id"`
	Type   string `json:"type"`
	Path   string `json:"path"`
}
