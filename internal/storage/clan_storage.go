package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	internalerrors "github.com/shard-legends/clan-service/internal/errors"
	"github.com/shard-legends/clan-service/internal/models"
)

const clanColumns = `id, name, tag, description, owner_id, created_at, updated_at`

// ClanStorage implements service.ClanStorage on the clan table
type ClanStorage struct {
	baseStorage
}

func (s *ClanStorage) getOne(ctx context.Context, operation, where string, args ...interface{}) (*models.Clan, error) {
	start := time.Now()
	q := s.q(ctx)

	var clan models.Clan
	err := sqlx.GetContext(ctx, q, &clan, q.Rebind(`SELECT `+clanColumns+` FROM clan WHERE `+where), args...)
	s.observe(operation, start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalerrors.HandleDatabaseError(err, operation)
	}
	return &clan, nil
}

// GetByID returns the clan with id, or nil
func (s *ClanStorage) GetByID(ctx context.Context, id int) (*models.Clan, error) {
	return s.getOne(ctx, "get_clan", `id = ?`, id)
}

// GetByTag looks a clan up by tag, ignoring case
func (s *ClanStorage) GetByTag(ctx context.Context, tag string) (*models.Clan, error) {
	return s.getOne(ctx, "get_clan_by_tag", `tag = ?`, models.NormalizeTag(tag))
}

// GetByOwner returns the clan owned by ownerID, or nil
func (s *ClanStorage) GetByOwner(ctx context.Context, ownerID int) (*models.Clan, error) {
	return s.getOne(ctx, "get_clan_by_owner", `owner_id = ? ORDER BY id LIMIT 1`, ownerID)
}

// GetByIDForUpdate reads the clan and locks its row until the transaction ends
func (s *ClanStorage) GetByIDForUpdate(ctx context.Context, id int) (*models.Clan, error) {
	return s.getOne(ctx, "lock_clan", `id = ? FOR UPDATE`, id)
}

// Create inserts the clan and attaches its owner with Owner privilege.
// Call it inside a transaction so both writes land together; an owner who
// joined another clan meanwhile fails the attach with Conflict.
func (s *ClanStorage) Create(ctx context.Context, clan *models.Clan) (*models.Clan, error) {
	start := time.Now()
	q := s.q(ctx)

	query := q.Rebind(`
		INSERT INTO clan (name, tag, description, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		RETURNING ` + clanColumns)

	var created models.Clan
	err := sqlx.GetContext(ctx, q, &created, query, clan.Name, clan.Tag, clan.Description, clan.OwnerID)
	s.observe("create_clan", start, err)
	if err != nil {
		return nil, internalerrors.HandleDatabaseError(err, "create clan")
	}

	if err := attachUser(ctx, q, created.OwnerID, created.ID, models.PrivilegeOwner); err != nil {
		return nil, err
	}

	s.logger.Info("Clan created",
		zap.Int("clan_id", created.ID),
		zap.String("tag", created.Tag),
		zap.Int("owner_id", created.OwnerID))

	return &created, nil
}

// UpdateDetails replaces name and tag
func (s *ClanStorage) UpdateDetails(ctx context.Context, id int, name, tag string) error {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE clan SET name = ?, tag = ?, updated_at = NOW() WHERE id = ?`), name, tag, id)
	s.observe("update_clan", start, err)
	if err != nil {
		return internalerrors.HandleDatabaseError(err, "update clan")
	}
	return requireAffected(res, "Clan not found")
}

// SetOwner points the clan at a new owner
func (s *ClanStorage) SetOwner(ctx context.Context, id, ownerID int) error {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE clan SET owner_id = ?, updated_at = NOW() WHERE id = ?`), ownerID, id)
	s.observe("set_clan_owner", start, err)
	if err != nil {
		return internalerrors.HandleDatabaseError(err, "set clan owner")
	}
	return requireAffected(res, "Clan not found")
}

// Delete removes the clan; join requests and files cascade
func (s *ClanStorage) Delete(ctx context.Context, id int) error {
	start := time.Now()
	q := s.q(ctx)

	res, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM clan WHERE id = ?`), id)
	s.observe("delete_clan", start, err)
	if err != nil {
		return internalerrors.HandleDatabaseError(err, "delete clan")
	}
	return requireAffected(res, "Clan not found")
}

// List returns a page of clans ordered by id
func (s *ClanStorage) List(ctx context.Context, offset, limit int) ([]*models.Clan, error) {
	start := time.Now()
	q := s.q(ctx)

	clans := []*models.Clan{}
	err := sqlx.SelectContext(ctx, q, &clans,
		q.Rebind(`SELECT `+clanColumns+` FROM clan ORDER BY id LIMIT ? OFFSET ?`), limit, offset)
	s.observe("list_clans", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list clans")
	}
	return clans, nil
}

// Count returns the number of clans
func (s *ClanStorage) Count(ctx context.Context) (int, error) {
	start := time.Now()

	var count int
	err := sqlx.GetContext(ctx, s.q(ctx), &count, `SELECT COUNT(*) FROM clan`)
	s.observe("count_clans", start, err)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count clans")
	}
	return count, nil
}

// ListAll returns every clan ordered by id
func (s *ClanStorage) ListAll(ctx context.Context) ([]*models.Clan, error) {
	start := time.Now()

	clans := []*models.Clan{}
	err := sqlx.SelectContext(ctx, s.q(ctx), &clans, `SELECT `+clanColumns+` FROM clan ORDER BY id`)
	s.observe("list_all_clans", start, err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list all clans")
	}
	return clans, nil
}

func requireAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return internalerrors.NotFound(notFound)
	}
	return nil
}
