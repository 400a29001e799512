package service

import (
	"context"

	"go.uber.org/zap"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

const (
	msgRequestPending     = "Join request already pending"
	msgNoPendingRequest   = "No pending join request"
	msgRequestNotFound    = "Join request not found"
	msgRequestOtherClan   = "Join request does not belong to your clan"
	msgRequestNotPending  = "Join request is not pending"
	msgRequestUserChanged = "Target user does not match join request"
)

// DefaultRequestsPageSize is the page size of join request listings
const DefaultRequestsPageSize = 50

// JoinRequestService drives the join request workflow: Pending moves once
// to Approved, Denied or Revoked and never moves again.
type JoinRequestService struct {
	deps   *ServiceDependencies
	logger *zap.Logger
}

// NewJoinRequestService creates the workflow service
func NewJoinRequestService(deps *ServiceDependencies) *JoinRequestService {
	deps.applyDefaults()
	return &JoinRequestService{
		deps:   deps,
		logger: deps.Logger.With(zap.String("component", "join_request_service")),
	}
}

// Submit files a pending request from userID to join clanID
func (s *JoinRequestService) Submit(ctx context.Context, userID, clanID int) (req *models.ClanJoinRequest, err error) {
	defer func() { s.deps.Metrics.RecordJoinRequest("submit", err) }()

	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		clan, err := s.deps.Clans.GetByID(ctx, clanID)
		if err != nil {
			return err
		}
		if clan == nil {
			return internalerrors.NotFound(msgClanNotFound)
		}

		inClan, err := s.deps.Users.IsInAnyClan(ctx, userID)
		if err != nil {
			return err
		}
		if inClan {
			return internalerrors.Conflict(msgUserAlreadyInClan)
		}

		pending, err := s.deps.JoinRequests.HasPending(ctx, clanID, userID)
		if err != nil {
			return err
		}
		if pending {
			return internalerrors.Conflict(msgRequestPending)
		}

		req, err = s.deps.JoinRequests.Create(ctx, &models.ClanJoinRequest{
			ClanID:      clanID,
			UserID:      userID,
			Status:      models.JoinRequestPending,
			RequestedBy: userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Join request submitted",
		zap.Int("request_id", req.ID),
		zap.Int("clan_id", clanID),
		zap.Int("user_id", userID))
	return req, nil
}

// Revoke withdraws userID's pending request to clanID
func (s *JoinRequestService) Revoke(ctx context.Context, userID, clanID int) (err error) {
	defer func() { s.deps.Metrics.RecordJoinRequest("revoke", err) }()

	req, err := s.deps.JoinRequests.GetPending(ctx, clanID, userID)
	if err != nil {
		return err
	}
	if req == nil {
		return internalerrors.NotFound(msgNoPendingRequest)
	}

	if err := s.deps.JoinRequests.UpdateStatus(ctx, req.ID, models.JoinRequestRevoked, userID); err != nil {
		if internalerrors.IsNotFound(err) {
			return internalerrors.NotFound(msgNoPendingRequest)
		}
		return err
	}
	return nil
}

// actionable loads a pending request of the owner's clan
func (s *JoinRequestService) actionable(ctx context.Context, ownerID, requestID int) (*models.ClanJoinRequest, error) {
	clan, err := s.deps.Clans.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return nil, internalerrors.Unauthorized(msgNotOwner)
	}

	req, err := s.deps.JoinRequests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, internalerrors.NotFound(msgRequestNotFound)
	}
	if req.ClanID != clan.ID {
		return nil, internalerrors.Unauthorized(msgRequestOtherClan)
	}
	if !req.IsPending() {
		return nil, internalerrors.Validation(msgRequestNotPending)
	}
	return req, nil
}

// Approve admits the applicant of requestID into the owner's clan as a
// Member. The applicant's pending requests to other clans are revoked.
func (s *JoinRequestService) Approve(ctx context.Context, ownerID, requestID, targetUserID int) (err error) {
	defer func() { s.deps.Metrics.RecordJoinRequest("approve", err) }()

	var req *models.ClanJoinRequest
	var cancelled int64
	err = s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		found, err := s.actionable(ctx, ownerID, requestID)
		if err != nil {
			return err
		}
		req = found
		if req.UserID != targetUserID {
			return internalerrors.Validation(msgRequestUserChanged)
		}

		inClan, err := s.deps.Users.IsInAnyClan(ctx, req.UserID)
		if err != nil {
			return err
		}
		if inClan {
			return internalerrors.Conflict(msgUserAlreadyInClan)
		}

		if err := s.deps.Users.AttachToClan(ctx, req.UserID, req.ClanID, models.PrivilegeMember); err != nil {
			return err
		}
		if err := s.deps.JoinRequests.UpdateStatus(ctx, req.ID, models.JoinRequestApproved, ownerID); err != nil {
			return err
		}
		cancelled, err = s.deps.JoinRequests.CancelPendingForUser(ctx, req.UserID, ownerID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("Join request approved",
		zap.Int("request_id", req.ID),
		zap.Int("clan_id", req.ClanID),
		zap.Int("user_id", req.UserID),
		zap.Int64("other_requests_revoked", cancelled))
	return nil
}

// Deny rejects a pending request to the owner's clan
func (s *JoinRequestService) Deny(ctx context.Context, ownerID, requestID int) (err error) {
	defer func() { s.deps.Metrics.RecordJoinRequest("deny", err) }()

	return s.deps.Tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.actionable(ctx, ownerID, requestID)
		if err != nil {
			return err
		}
		return s.deps.JoinRequests.UpdateStatus(ctx, req.ID, models.JoinRequestDenied, ownerID)
	})
}

// Status reports whether userID has a pending request to clanID
func (s *JoinRequestService) Status(ctx context.Context, userID, clanID int) (*models.JoinRequestStatusResponse, error) {
	clan, err := s.deps.Clans.GetByID(ctx, clanID)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return nil, internalerrors.NotFound(msgClanNotFound)
	}

	req, err := s.deps.JoinRequests.GetPending(ctx, clanID, userID)
	if err != nil {
		return nil, err
	}
	return &models.JoinRequestStatusResponse{Pending: req != nil, Request: req}, nil
}

// ListRequests pages through the join requests of clanID, which ownerID must own.
// A nil status lists every state; the HTTP layer asks for Pending by default.
func (s *JoinRequestService) ListRequests(ctx context.Context, ownerID, clanID int, status *models.JoinRequestStatus, page, pageSize int) (*models.JoinRequestListResponse, error) {
	if pageSize == 0 {
		pageSize = DefaultRequestsPageSize
	}
	if page < 0 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, internalerrors.Validation(msgInvalidPagination)
	}

	clan, err := s.deps.Clans.GetByID(ctx, clanID)
	if err != nil {
		return nil, err
	}
	if clan == nil {
		return nil, internalerrors.NotFound(msgClanNotFound)
	}
	if clan.OwnerID != ownerID {
		return nil, internalerrors.Unauthorized(msgNotOwnerOfThisClan)
	}

	requests, err := s.deps.JoinRequests.ListByClan(ctx, clanID, status, page*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.deps.JoinRequests.CountByClan(ctx, clanID, status)
	if err != nil {
		return nil, err
	}

	return &models.JoinRequestListResponse{
		Requests: requests,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}
