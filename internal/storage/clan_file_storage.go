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

// ClanFileStorage implements service.ClanFileStorage
type ClanFileStorage struct {
	baseStorage
}

// Upsert records path as the clan's file of fileType, replacing the previous one
func (s *ClanFileStorage) Upsert(ctx context.Context, clanID int, fileType models.ClanFileType, path string) (*models.ClanFile, error) {
	start := time.Now()
	q := s.q(ctx)

	query := q.Rebind(`
		INSERT INTO clan_file (clan_id, type, path, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON CONFLICT (clan_id, type) DO UPDATE SET path = EXCLUDED.path, updated_at = NOW()
		RETURNING id, clan_id, path, type, created_at, updated_at`)

	var file models.ClanFile
	err := sqlx.GetContext(ctx, q, &file, query, clanID, int(fileType), path)
	s.observe("upsert_clan_file", start, err)
	if err != nil {
		return nil, internalerrors.HandleDatabaseError(err, "upsert clan file")
	}
	return &file, nil
}

// Get returns the clan's file of fileType, or nil
func (s *ClanFileStorage) Get(ctx context.Context, clanID int, fileType models.ClanFileType) (*models.ClanFile, error) {
	start := time.Now()
	q := s.q(ctx)

	var file models.ClanFile
	err := sqlx.GetContext(ctx, q, &file, q.Rebind(`
		SELECT id, clan_id, path, type, created_at, updated_at
		FROM clan_file
		WHERE clan_id = ? AND type = ?`), clanID, int(fileType))
	s.observe("get_clan_file", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalerrors.HandleDatabaseError(err, "get clan file")
	}
	return &file, nil
}
