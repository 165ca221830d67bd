package pgshare

import (
	"context"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const lockerColumns = `id, storage_group_id, commodity_id, created_at, updated_at`

func scanLocker(row rowScanner) (*models.Locker, error) {
	var l models.Locker
	var commodityID *uint64
	if err := row.Scan(&l.ID, &l.StorageGroupID, &commodityID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.CommodityID = commodityID
	return &l, nil
}

func (s *Storage) CreateLocker(ctx context.Context, storageGroupID uint64) (*models.Locker, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockGroup(ctx, tx, storageGroupID); err != nil {
		return nil, err
	}

	l, err := scanLocker(tx.QueryRow(ctx, `
INSERT INTO lockers (storage_group_id, commodity_id, created_at, updated_at)
VALUES ($1, NULL, $2, $2)
RETURNING `+lockerColumns, storageGroupID, now))
	if err != nil {
		return nil, classify(err, "insert locker")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return l, nil
}

func (s *Storage) GetLocker(ctx context.Context, id uint64) (*models.Locker, error) {
	l, err := scanLocker(s.db.QueryRow(ctx, `SELECT `+lockerColumns+` FROM lockers WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select locker")
	}
	return l, nil
}

func (s *Storage) ListLockers(ctx context.Context, storageGroupID *uint64) ([]*models.Locker, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+lockerColumns+`
FROM lockers
WHERE $1::BIGINT IS NULL OR storage_group_id = $1
ORDER BY id
`, storageGroupID)
	if err != nil {
		return nil, errors.Wrap(err, "select lockers")
	}
	defer rows.Close()

	out := []*models.Locker{}
	for rows.Next() {
		l, err := scanLocker(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan locker")
		}
		out = append(out, l)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// PatchLocker sets or clears a locker's occupant. Lockers never move between groups.
func (s *Storage) PatchLocker(ctx context.Context, id uint64, p models.LockerPatch) (*models.Locker, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanLocker(tx.QueryRow(ctx, `SELECT `+lockerColumns+` FROM lockers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, classify(err, "lock locker")
	}
	if p.StorageGroupID != nil && *p.StorageGroupID != cur.StorageGroupID {
		return nil, errors.Wrapf(models.ErrValidation, "locker %d cannot move to storage group %d", id, *p.StorageGroupID)
	}

	occupant := cur.CommodityID
	switch {
	case p.ClearCommodity:
		occupant = nil
	case p.CommodityID != nil:
		var got uint64
		if err := tx.QueryRow(ctx, `SELECT id FROM commodities WHERE id = $1 FOR KEY SHARE`, *p.CommodityID).Scan(&got); err != nil {
			return nil, classify(err, "select commodity")
		}
		occupant = p.CommodityID
	}

	l, err := scanLocker(tx.QueryRow(ctx, `
UPDATE lockers SET commodity_id = $2, updated_at = $3
WHERE id = $1
RETURNING `+lockerColumns, id, occupant, time.Now().UTC()))
	if err != nil {
		return nil, classify(err, "update locker")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return l, nil
}

// DeleteLocker removes an empty locker. Occupied lockers are refused with ErrConflict.
func (s *Storage) DeleteLocker(ctx context.Context, id uint64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanLocker(tx.QueryRow(ctx, `SELECT `+lockerColumns+` FROM lockers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return classify(err, "lock locker")
	}
	if !cur.Empty() {
		return errors.Wrapf(models.ErrConflict, "locker %d holds commodity %d", id, *cur.CommodityID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM lockers WHERE id = $1`, id); err != nil {
		return classify(err, "delete locker")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// AllocateLocker assigns the lowest-id empty locker of a group to an existing commodity.
func (s *Storage) AllocateLocker(ctx context.Context, storageGroupID, commodityID uint64) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var got uint64
	if err := tx.QueryRow(ctx, `SELECT id FROM commodities WHERE id = $1 FOR KEY SHARE`, commodityID).Scan(&got); err != nil {
		return 0, classify(err, "select commodity")
	}

	lockerID, err := allocate(ctx, tx, storageGroupID, commodityID, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return lockerID, nil
}

// allocate is the allocate-or-fail step: group lock, empty-locker pick and occupant write share tx.
func allocate(ctx context.Context, tx pgx.Tx, storageGroupID, commodityID uint64, now time.Time) (uint64, error) {
	if err := lockGroup(ctx, tx, storageGroupID); err != nil {
		return 0, err
	}

	var lockerID uint64
	err := tx.QueryRow(ctx, `
SELECT id FROM lockers
WHERE storage_group_id = $1 AND commodity_id IS NULL
ORDER BY id
LIMIT 1
FOR UPDATE
`, storageGroupID).Scan(&lockerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(models.ErrCapacityExceeded, "storage group %d", storageGroupID)
	}
	if err != nil {
		return 0, errors.Wrap(err, "select empty locker")
	}

	if _, err := tx.Exec(ctx, `UPDATE lockers SET commodity_id = $2, updated_at = $3 WHERE id = $1`, lockerID, commodityID, now); err != nil {
		return 0, classify(err, "occupy locker")
	}
	return lockerID, nil
}

// ReleaseLockers clears every locker that points at the commodity and returns their ids.
func (s *Storage) ReleaseLockers(ctx context.Context, commodityID uint64) ([]uint64, error) {
	return release(ctx, s.db, commodityID, time.Now().UTC())
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func release(ctx context.Context, q querier, commodityID uint64, now time.Time) ([]uint64, error) {
	rows, err := q.Query(ctx, `
UPDATE lockers SET commodity_id = NULL, updated_at = $2
WHERE commodity_id = $1
RETURNING id
`, commodityID, now)
	if err != nil {
		return nil, errors.Wrap(err, "release lockers")
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan released locker")
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return ids, nil
}
