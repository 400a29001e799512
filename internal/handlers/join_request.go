package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shard-legends/clan-service/internal/models"
)

// SubmitRequest handles POST /clan/request
func (h *ClanHandler) SubmitRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ClanIDRequest
	if !bindBody(c, &req) {
		return
	}

	created, err := h.requests.Submit(c.Request.Context(), user.UserID, req.ClanID)
	if err != nil {
		h.respondError(c, "submit_join_request", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// RevokeRequest handles POST /clan/request/revoke
func (h *ClanHandler) RevokeRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ClanIDRequest
	if !bindBody(c, &req) {
		return
	}

	if err := h.requests.Revoke(c.Request.Context(), user.UserID, req.ClanID); err != nil {
		h.respondError(c, "revoke_join_request", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Join request revoked"})
}

// RequestStatus handles GET /clan/:id/request/status
func (h *ClanHandler) RequestStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	clanID, ok := clanIDParam(c)
	if !ok {
		return
	}

	status, err := h.requests.Status(c.Request.Context(), user.UserID, clanID)
	if err != nil {
		h.respondError(c, "join_request_status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListRequests handles GET /clan/:id/requests
func (h *ClanHandler) ListRequests(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	clanID, ok := clanIDParam(c)
	if !ok {
		return
	}

	// pending unless asked otherwise; "all" drops the filter
	pending := models.JoinRequestPending
	status := &pending
	if raw := c.Query("status"); strings.EqualFold(raw, "all") {
		status = nil
	} else if raw != "" {
		parsed, err := models.ParseJoinRequestStatus(raw)
		if err != nil {
			badRequest(c, msgInvalidStatus)
			return
		}
		status = &parsed
	}

	page, pageSize, ok := pagination(c, h.opts.RequestsPageSize)
	if !ok {
		return
	}

	list, err := h.requests.ListRequests(c.Request.Context(), user.UserID, clanID, status, page, pageSize)
	if err != nil {
		h.respondError(c, "list_join_requests", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// ApproveRequest handles POST /clan/requests/approve
func (h *ClanHandler) ApproveRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ApproveJoinRequest
	if !bindBody(c, &req) {
		return
	}

	if err := h.requests.Approve(c.Request.Context(), user.UserID, req.RequestID, req.TargetUserID); err != nil {
		h.respondError(c, "approve_join_request", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Join request approved"})
}

// DenyRequest handles POST /clan/requests/deny
func (h *ClanHandler) DenyRequest(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.DenyJoinRequest
	if !bindBody(c, &req) {
		return
	}

	if err := h.requests.Deny(c.Request.Context(), user.UserID, req.RequestID); err != nil {
		h.respondError(c, "deny_join_request", err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: "Join request denied"})
}
