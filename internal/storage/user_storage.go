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

const userColumns = `id, username, clan_id, clan_priv`

// UserStorage implements service.UserStorage. Only the membership columns
// of users are written here.
type UserStorage struct {
	baseStorage
}

// GetByID returns the user, or nil
func (s *UserStorage) GetByID(ctx context.Context, id int) (*models.User, error) {
	start := time.Now()
	q := s.q(ctx)

	var user models.User
	err := sqlx.GetContext(ctx, q, &user, q.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	s.observe("get_user", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalerrors.HandleDatabaseError(err, "get user")
	}
	return &user, nil
}

// IsInAnyClan reports whether the user currently belongs to a clan
func (s *UserStorage) IsInAnyClan(ctx context.Context, userID int) (bool, error) {
	start := time.Now()
	q := s.q(ctx)

	var inClan bool
	err := sqlx.GetContext(ctx, q, &inClan,
		q.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE id = ? AND clan_id <> 0)`), userID)
	s.observe("user_in_clan", start, err)
	if err != nil {
		return false, errors.Wrap(err, "failed to check clan membership")
	}
	return inClan, nil
}

// AttachToClan sets clan and privilege in a single statement. Only a user
// without a clan is attached; anyone else gets Conflict.
func (s *UserStorage) AttachToClan(ctx context.Context, userID, clanID int, priv models.Privilege) error {
	start := time.Now()
	err := attachUser(ctx, s.q(ctx), userID, clanID, priv)
	s.observe("attach_user", start, err)
	return err
}

// attachUser is the guarded membership write shared with ClanStorage.Create
func attachUser(ctx context.Context, q sqlx.ExtContext, userID, clanID int, priv models.Privilege) error {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE users SET clan_id = ?, clan_priv = ? WHERE id = ? AND clan_id = 0`),
		clanID, int(priv), userID)
	if err != nil {
		return internalerrors.HandleDatabaseError(err, "attach user to clan")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, q.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`), userID); err != nil {
		return errors.Wrap(err, "failed to check user")
	}
	if !exists {
		return internalerrors.NotFound("User not found")
	}
	return internalerrors.Conflict("User already in a clan")
}

// DetachFromClan clears the user's clan and privilege
func (s *UserStorage) DetachFromClan(ctx context.Context, userID int) error {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE users SET clan_id = 0, clan_priv = 0 WHERE id = ?`), userID)
	s.observe("detach_user", start, err)
	if err != nil {
		return internalerrors.HandleDatabaseError(err, "detach user from clan")
	}
	return requireAffected(res, "User not found")
}

// DetachAllFromClan clears membership for every member of clanID
func (s *UserStorage) DetachAllFromClan(ctx context.Context, clanID int) (int64, error) {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE users SET clan_id = 0, clan_priv = 0 WHERE clan_id = ?`), clanID)
	s.observe("detach_members", start, err)
	if err != nil {
		return 0, internalerrors.HandleDatabaseError(err, "detach clan members")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}
	return n, nil
}

// SetPrivilege changes the user's privilege within their current clan
func (s *UserStorage) SetPrivilege(ctx context.Context, userID int, priv models.Privilege) error {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE users SET clan_priv = ? WHERE id = ? AND clan_id <> 0`), int(priv), userID)
	s.observe("set_privilege", start, err)
	if err != nil {
		return internalerrors.HandleDatabaseError(err, "set clan privilege")
	}
	return requireAffected(res, "User not found")
}

// ListByClan returns members, owner first, then by privilege and id
func (s *UserStorage) ListByClan(ctx context.Context, clanID int) ([]*models.User, error) {
	start := time.Now()
	q := s.q(ctx)

	users := []*models.User{}
	err := sqlx.SelectContext(ctx, q, &users,
		q.Rebind(`SELECT `+userColumns+` FROM users WHERE clan_id = ? ORDER BY clan_priv DESC, id ASC`), clanID)
	s.observe("list_members", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list clan members")
	}
	return users, nil
}

// CountByClan returns the member count of clanID
func (s *UserStorage) CountByClan(ctx context.Context, clanID int) (int, error) {
	start := time.Now()
	q := s.q(ctx)

	var count int
	err := sqlx.GetContext(ctx, q, &count, q.Rebind(`SELECT COUNT(*) FROM users WHERE clan_id = ?`), clanID)
	s.observe("count_members", start, err)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count clan members")
	}
	return count, nil
}
