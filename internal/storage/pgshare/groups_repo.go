package pgshare

import (
	"context"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const groupColumns = `id, name, longitude, latitude, created_at, updated_at`

func scanGroup(row rowScanner) (*models.StorageGroup, error) {
	var g models.StorageGroup
	if err := row.Scan(&g.ID, &g.Name, &g.Longitude, &g.Latitude, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Lockers = []*models.Locker{}
	return &g, nil
}

func (s *Storage) CreateStorageGroup(ctx context.Context, in models.StorageGroupCreateInput) (*models.StorageGroup, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	err = tx.QueryRow(ctx, `
INSERT INTO storage_groups (name, longitude, latitude, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
RETURNING id
`, in.Name, in.Longitude, in.Latitude, now).Scan(&id)
	if err != nil {
		return nil, classify(err, "insert storage group")
	}

	for i := 0; i < in.LockerCount; i++ {
		if _, err := tx.Exec(ctx, `
INSERT INTO lockers (storage_group_id, commodity_id, created_at, updated_at)
VALUES ($1, NULL, $2, $2)
`, id, now); err != nil {
			return nil, classify(err, "insert locker")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return s.GetStorageGroup(ctx, id)
}

func (s *Storage) PatchStorageGroup(ctx context.Context, id uint64, p models.StorageGroupPatch) (*models.StorageGroup, error) {
	var got uint64
	err := s.db.QueryRow(ctx, `
UPDATE storage_groups
SET
  name = COALESCE($2, name),
  longitude = COALESCE($3, longitude),
  latitude = COALESCE($4, latitude),
  updated_at = $5
WHERE id = $1
RETURNING id
`, id, p.Name, p.Longitude, p.Latitude, time.Now().UTC()).Scan(&got)
	if err != nil {
		return nil, classify(err, "update storage group")
	}
	return s.GetStorageGroup(ctx, id)
}

func (s *Storage) GetStorageGroup(ctx context.Context, id uint64) (*models.StorageGroup, error) {
	g, err := scanGroup(s.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM storage_groups WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select storage group")
	}
	lockers, err := s.ListLockers(ctx, &id)
	if err != nil {
		return nil, err
	}
	g.Lockers = lockers
	return g, nil
}

func (s *Storage) ListStorageGroups(ctx context.Context) ([]*models.StorageGroup, error) {
	rows, err := s.db.Query(ctx, `SELECT `+groupColumns+` FROM storage_groups ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "select storage groups")
	}
	defer rows.Close()

	out := []*models.StorageGroup{}
	byID := map[uint64]*models.StorageGroup{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan storage group")
		}
		out = append(out, g)
		byID[g.ID] = g
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	lockers, err := s.ListLockers(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, l := range lockers {
		if g, ok := byID[l.StorageGroupID]; ok {
			g.Lockers = append(g.Lockers, l)
		}
	}
	return out, nil
}

// DeleteStorageGroup removes a group together with its lockers in one transaction. Groups that
// still own commodities are refused with ErrConflict.
func (s *Storage) DeleteStorageGroup(ctx context.Context, id uint64) (int, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockGroup(ctx, tx, id); err != nil {
		return 0, err
	}

	var inUse bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM commodities WHERE storage_group_id = $1)`, id).Scan(&inUse); err != nil {
		return 0, errors.Wrap(err, "check commodities")
	}
	if inUse {
		return 0, errors.Wrapf(models.ErrConflict, "storage group %d still has commodities", id)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM lockers WHERE storage_group_id = $1`, id)
	if err != nil {
		return 0, classify(err, "delete lockers")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM storage_groups WHERE id = $1`, id); err != nil {
		return 0, classify(err, "delete storage group")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return int(tag.RowsAffected()), nil
}

// lockGroup takes the group row lock that serializes allocations within a group.
func lockGroup(ctx context.Context, tx pgx.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRow(ctx, `SELECT id FROM storage_groups WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	if err != nil {
		return classify(err, "lock storage group")
	}
	return nil
}
