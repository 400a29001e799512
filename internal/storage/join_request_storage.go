package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

const joinRequestColumns = `id, clan_id, user_id, status, requested_by, actioned_by, created_at, updated_at`

// JoinRequestStorage implements service.JoinRequestStorage
type JoinRequestStorage struct {
	baseStorage
}

// Create inserts a request. A second pending request for the same pair
// violates clan_join_request_pending_idx and comes back as Conflict.
func (s *JoinRequestStorage) Create(ctx context.Context, req *models.ClanJoinRequest) (*models.ClanJoinRequest, error) {
	start := time.Now()
	q := s.q(ctx)

	query := q.Rebind(`
		INSERT INTO clan_join_request (clan_id, user_id, status, requested_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		RETURNING ` + joinRequestColumns)

	var created models.ClanJoinRequest
	err := sqlx.GetContext(ctx, q, &created, query, req.ClanID, req.UserID, int(req.Status), req.RequestedBy)
	s.observe("create_join_request", start, err)
	if err != nil {
		return nil, internalerrors.HandleDatabaseError(err, "create join request")
	}
	return &created, nil
}

func (s *JoinRequestStorage) getOne(ctx context.Context, operation, where string, args ...interface{}) (*models.ClanJoinRequest, error) {
	start := time.Now()
	q := s.q(ctx)

	var req models.ClanJoinRequest
	err := sqlx.GetContext(ctx, q, &req, q.Rebind(`SELECT `+joinRequestColumns+` FROM clan_join_request WHERE `+where), args...)
	s.observe(operation, start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalerrors.HandleDatabaseError(err, operation)
	}
	return &req, nil
}

// GetByID returns the request, or nil
func (s *JoinRequestStorage) GetByID(ctx context.Context, id int) (*models.ClanJoinRequest, error) {
	return s.getOne(ctx, "get_join_request", `id = ?`, id)
}

// GetPending returns the pending request of userID to clanID, or nil
func (s *JoinRequestStorage) GetPending(ctx context.Context, clanID, userID int) (*models.ClanJoinRequest, error) {
	return s.getOne(ctx, "get_pending_join_request",
		`clan_id = ? AND user_id = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		clanID, userID, int(models.JoinRequestPending))
}

// HasPending reports whether userID has a pending request to clanID
func (s *JoinRequestStorage) HasPending(ctx context.Context, clanID, userID int) (bool, error) {
	start := time.Now()
	q := s.q(ctx)

	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, q.Rebind(`
		SELECT EXISTS (
			SELECT 1 FROM clan_join_request WHERE clan_id = ? AND user_id = ? AND status = ?
		)`), clanID, userID, int(models.JoinRequestPending))
	s.observe("has_pending_join_request", start, err)
	if err != nil {
		return false, errors.Wrap(err, "failed to check pending join request")
	}
	return exists, nil
}

// UpdateStatus moves a pending request to status. Terminal requests are
// never touched; the zero-row case is reported as NotFound.
func (s *JoinRequestStorage) UpdateStatus(ctx context.Context, id int, status models.JoinRequestStatus, actionedBy int) error {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE clan_join_request
		SET status = ?, actioned_by = ?, updated_at = NOW()
		WHERE id = ? AND status = ?`),
		int(status), actionedBy, id, int(models.JoinRequestPending))
	s.observe("update_join_request", start, err)
	if err != nil {
		return internalerrors.HandleDatabaseError(err, "update join request")
	}
	return requireAffected(res, "Join request not found")
}

// ListByClan returns a page of the clan's requests, newest first.
// A nil status lists every status.
func (s *JoinRequestStorage) ListByClan(ctx context.Context, clanID int, status *models.JoinRequestStatus, offset, limit int) ([]*models.ClanJoinRequest, error) {
	start := time.Now()
	q := s.q(ctx)

	where, args := joinRequestFilter(clanID, status)
	args = append(args, limit, offset)

	requests := []*models.ClanJoinRequest{}
	err := sqlx.SelectContext(ctx, q, &requests, q.Rebind(`SELECT `+joinRequestColumns+
		` FROM clan_join_request WHERE `+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`), args...)
	s.observe("list_join_requests", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list join requests")
	}
	return requests, nil
}

// CountByClan counts the clan's requests, optionally for one status
func (s *JoinRequestStorage) CountByClan(ctx context.Context, clanID int, status *models.JoinRequestStatus) (int, error) {
	start := time.Now()
	q := s.q(ctx)

	where, args := joinRequestFilter(clanID, status)

	var count int
	err := sqlx.GetContext(ctx, q, &count, q.Rebind(`SELECT COUNT(*) FROM clan_join_request WHERE `+where), args...)
	s.observe("count_join_requests", start, err)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count join requests")
	}
	return count, nil
}

// CancelPendingForUser revokes every pending request of userID
func (s *JoinRequestStorage) CancelPendingForUser(ctx context.Context, userID, actionedBy int) (int64, error) {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE clan_join_request
		SET status = ?, actioned_by = ?, updated_at = NOW()
		WHERE user_id = ? AND status = ?`),
		int(models.JoinRequestRevoked), actionedBy, userID, int(models.JoinRequestPending))
	s.observe("cancel_pending_join_requests", start, err)
	if err != nil {
		return 0, internalerrors.HandleDatabaseError(err, "cancel pending join requests")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}
	return n, nil
}

func joinRequestFilter(clanID int, status *models.JoinRequestStatus) (string, []interface{}) {
	if status == nil {
		return `clan_id = ?`, []interface{}{clanID}
	}
	return `clan_id = ? AND status = ?`, []interface{}{clanID, int(*status)}
}
