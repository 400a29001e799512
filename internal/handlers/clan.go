package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/auth"
	"github.com/shard-legends/clan-service/internal/models"
)

const defaultMaxUploadBytes = 5 << 20

// Options tunes request parsing. A zero RequestsPageSize leaves the default
// to the join request service.
type Options struct {
	DirectJoin       bool
	ListPageSize     int
	RequestsPageSize int
	MaxUploadBytes   int64
}

// ClanHandler serves the /clan API
type ClanHandler struct {
	clans       ClanOperations
	requests    JoinRequestOperations
	leaderboard LeaderboardOperations
	logger      *zap.Logger
	opts        Options
}

// NewClanHandler creates the /clan handler
func NewClanHandler(clans ClanOperations, requests JoinRequestOperations, leaderboard LeaderboardOperations, logger *zap.Logger, opts Options) *ClanHandler {
	if opts.ListPageSize <= 0 {
		opts.ListPageSize = 25
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &ClanHandler{
		clans:       clans,
		requests:    requests,
		leaderboard: leaderboard,
		logger:      logger,
		opts:        opts,
	}
}

// currentUser returns the authenticated caller or writes a 401
func currentUser(c *gin.Context) (*auth.UserContext, bool) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "unauthorized",
			Message: msgUnauthorized,
		})
		return nil, false
	}
	return user, true
}

// bindBody decodes and validates a JSON body or writes a 400
func bindBody(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, msgInvalidPayload)
		return false
	}
	if err := models.ValidateStruct(req); err != nil {
		badRequest(c, msgInvalidPayload)
		return false
	}
	return true
}

func clanIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, msgInvalidClanID)
		return 0, false
	}
	return id, true
}

// pagination reads page (0-indexed) and pageSize; range checks are left to the services
func pagination(c *gin.Context, defaultSize int) (int, int, bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil {
		badRequest(c, msgInvalidPagination)
		return 0, 0, false
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultSize)))
	if err != nil {
		badRequest(c, msgInvalidPagination)
		return 0, 0, false
	}
	return page, pageSize, true
}

func gameModeQuery(c *gin.Context) (models.GameMode, bool) {
	mode, err := models.ParseGameMode(c.Query("mode"))
	if err != nil {
		badRequest(c, msgInvalidGameMode)
		return 0, false
	}
	return mode, true
}

// GetClan handles GET /clan/:id
func (h *ClanHandler) GetClan(c *gin.Context) {
	clanID, ok := clanIDParam(c)
	if !ok {
		return
	}
	mode, ok := gameModeQuery(c)
	if !ok {
		return
	}

	details, err := h.clans.GetClanDetails(c.Request.Context(), clanID, mode)
	if err != nil {
		h.respondError(c, "get_clan", err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// GetClanByTag handles GET /clan/tag/:tag
func (h *ClanHandler) GetClanByTag(c *gin.Context) {
	clan, err := h.clans.GetClanByTag(c.Request.Context(), c.Param("tag"))
	if err != nil {
		h.respondError(c, "get_clan_by_tag", err)
		return
	}
	c.JSON(http.StatusOK, clan)
}

// ListClans handles GET /clan/list
func (h *ClanHandler) ListClans(c *gin.Context) {
	page, pageSize, ok := pagination(c, h.opts.ListPageSize)
	if !ok {
		return
	}

	list, err := h.clans.ListClans(c.Request.Context(), page, pageSize)
	if err != nil {
		h.respondError(c, "list_clans", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Leaderboard handles GET /clan/leaderboard
func (h *ClanHandler) Leaderboard(c *gin.Context) {
	metric, err := models.ParseMetric(c.Query("metric"))
	if err != nil {
		badRequest(c, msgInvalidMetric)
		return
	}
	mode, ok := gameModeQuery(c)
	if !ok {
		return
	}
	page, pageSize, ok := pagination(c, h.leaderboard.DefaultPageSize())
	if !ok {
		return
	}

	board, err := h.leaderboard.Leaderboard(c.Request.Context(), metric, mode, page, pageSize)
	if err != nil {
		h.respondError(c, "leaderboard", err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// CreateClan handles POST /clan/create
func (h *ClanHandler) CreateClan(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.CreateClanRequest
	if !bindBody(c, &req) {
		return
	}

	clan, err := h.clans.CreateClan(c.Request.Context(), user.UserID, req.Name, req.Tag, req.Description)
	if err != nil {
		h.respondError(c, "create_clan", err)
		return
	}
	c.JSON(http.StatusCreated, clan)
}

// JoinClan handles POST /clan/join, registered only when direct joining is on
func (h *ClanHandler) JoinClan(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ClanIDRequest
	if !bindBody(c, &req) {
		return
	}

	if err := h.clans.JoinClan(c.Request.Context(), user.UserID, req.ClanID); err != nil {
		h.respondError(c, "join_clan", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Joined clan"})
}

// LeaveClan handles POST /clan/leave
func (h *ClanHandler) LeaveClan(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.clans.LeaveClan(c.Request.Context(), user.UserID); err != nil {
		h.respondError(c, "leave_clan", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Left clan"})
}

// targetAction runs one of the owner-on-member operations
func (h *ClanHandler) targetAction(c *gin.Context, operation, done string, fn func(c *gin.Context, ownerID, targetUserID int) error) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.TargetUserRequest
	if !bindBody(c, &req) {
		return
	}

	if err := fn(c, user.UserID, req.TargetUserID); err != nil {
		h.respondError(c, operation, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: done})
}

// TransferOwnership handles POST /clan/transfer
func (h *ClanHandler) TransferOwnership(c *gin.Context) {
	h.targetAction(c, "transfer_ownership", "Ownership transferred", func(c *gin.Context, ownerID, targetUserID int) error {
		return h.clans.TransferOwnership(c.Request.Context(), ownerID, targetUserID)
	})
}

// PromoteToOfficer handles POST /clan/promote
func (h *ClanHandler) PromoteToOfficer(c *gin.Context) {
	h.targetAction(c, "promote", "Member promoted to officer", func(c *gin.Context, ownerID, targetUserID int) error {
		return h.clans.PromoteToOfficer(c.Request.Context(), ownerID, targetUserID)
	})
}

// DemoteToMember handles POST /clan/demote
func (h *ClanHandler) DemoteToMember(c *gin.Context) {
	h.targetAction(c, "demote", "Officer demoted to member", func(c *gin.Context, ownerID, targetUserID int) error {
		return h.clans.DemoteToMember(c.Request.Context(), ownerID, targetUserID)
	})
}

// DisbandClan handles POST /clan/disband
func (h *ClanHandler) DisbandClan(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.clans.DisbandClan(c.Request.Context(), user.UserID); err != nil {
		h.respondError(c, "disband_clan", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Clan disbanded"})
}

// EditClan handles PATCH /clan/edit
func (h *ClanHandler) EditClan(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.EditClanRequest
	if !bindBody(c, &req) {
		return
	}

	clan, err := h.clans.EditClan(c.Request.Context(), user.UserID, req.Name, req.Tag)
	if err != nil {
		h.respondError(c, "edit_clan", err)
		return
	}
	c.JSON(http.StatusOK, clan)
}

// UploadAvatar handles POST /clan/:id/upload/avatar
func (h *ClanHandler) UploadAvatar(c *gin.Context) {
	h.uploadAsset(c, models.ClanFileAvatar)
}

// UploadBanner handles POST /clan/:id/upload/banner
func (h *ClanHandler) UploadBanner(c *gin.Context) {
	h.uploadAsset(c, models.ClanFileBanner)
}

func (h *ClanHandler) uploadAsset(c *gin.Context, fileType models.ClanFileType) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	clanID, ok := clanIDParam(c)
	if !ok {
		return
	}

	// multipart overhead on top of the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes+64<<10)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "payload_too_large", Message: msgFileTooLarge})
			return
		}
		badRequest(c, msgNoFiles)
		return
	}
	if header.Size > h.opts.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "payload_too_large", Message: msgFileTooLarge})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.respondError(c, "upload_asset", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(c, "upload_asset", err)
		return
	}
	if len(data) == 0 {
		badRequest(c, msgNoFiles)
		return
	}

	path, err := h.clans.SetClanAsset(c.Request.Context(), user.UserID, clanID, fileType, header.Filename, data)
	if err != nil {
		h.respondError(c, "upload_asset", err)
		return
	}

	c.JSON(http.StatusOK, models.AssetUploadResponse{
		ClanID: clanID,
		Type:   fileType.String(),
		Path:   path,
	})
}
