package pgshare

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const commodityColumns = `
  id, giver_id, receiver_id, storage_group_id,
  name, description, category, condition, images,
  status, expire_time, give_expire_time, receive_expire_time,
  created_at, updated_at`

func scanCommodity(row rowScanner) (*models.Commodity, error) {
	var c models.Commodity
	var receiverID *string
	var receiveExpireTime *time.Time
	var images []byte
	if err := row.Scan(
		&c.ID, &c.GiverID, &receiverID, &c.StorageGroupID,
		&c.Name, &c.Description, &c.Category, &c.Condition, &images,
		&c.Status, &c.ExpireTime, &c.GiveExpireTime, &receiveExpireTime,
		&c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.ReceiverID = receiverID
	c.ReceiveExpireTime = receiveExpireTime

	c.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &c.Images); err != nil {
			return nil, errors.Wrap(err, "unmarshal images")
		}
	}
	return &c, nil
}

func marshalImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	b, err := json.Marshal(images)
	return b, errors.Wrap(err, "marshal images")
}

// CreateCommodity inserts the commodity and occupies an empty locker of its group in one
// transaction. A full group yields ErrCapacityExceeded and leaves nothing behind.
func (s *Storage) CreateCommodity(ctx context.Context, c *models.Commodity) (*models.Commodity, uint64, error) {
	images, err := marshalImages(c.Images)
	if err != nil {
		return nil, 0, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Блокируем группу до вставки, чтобы не плодить commodity без ячейки.
	if err := lockGroup(ctx, tx, c.StorageGroupID); err != nil {
		return nil, 0, err
	}

	created, err := scanCommodity(tx.QueryRow(ctx, `
INSERT INTO commodities (
  giver_id, receiver_id, storage_group_id,
  name, description, category, condition, images,
  status, expire_time, give_expire_time, receive_expire_time,
  created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING `+commodityColumns,
		c.GiverID, c.ReceiverID, c.StorageGroupID,
		c.Name, c.Description, c.Category, c.Condition, images,
		c.Status, c.ExpireTime.UTC(), c.GiveExpireTime.UTC(), c.ReceiveExpireTime,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	))
	if err != nil {
		return nil, 0, classify(err, "insert commodity")
	}

	lockerID, err := allocate(ctx, tx, created.StorageGroupID, created.ID, created.CreatedAt)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, errors.Wrap(err, "commit tx")
	}
	return created, lockerID, nil
}

func (s *Storage) GetCommodity(ctx context.Context, id uint64) (*models.Commodity, error) {
	c, err := scanCommodity(s.db.QueryRow(ctx, `SELECT `+commodityColumns+` FROM commodities WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select commodity")
	}
	return c, nil
}

func (s *Storage) ListCommodities(ctx context.Context, f models.CommodityFilter) ([]*models.Commodity, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+commodityColumns+`
FROM commodities
WHERE ($1::TEXT IS NULL OR status = $1)
  AND ($2::TEXT IS NULL OR giver_id = $2)
  AND ($3::TEXT IS NULL OR receiver_id = $3)
  AND ($4::BIGINT IS NULL OR storage_group_id = $4)
ORDER BY id
`, f.Status, f.GiverID, f.ReceiverID, f.StorageGroupID)
	if err != nil {
		return nil, errors.Wrap(err, "select commodities")
	}
	defer rows.Close()

	out := []*models.Commodity{}
	for rows.Next() {
		c, err := scanCommodity(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan commodity")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// MutateCommodity locks the row, lets fn edit it and persists the result. When fn asks for it the
// commodity's lockers are released in the same transaction and their ids returned.
func (s *Storage) MutateCommodity(ctx context.Context, id uint64, fn models.MutateFunc) (*models.Commodity, []uint64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := scanCommodity(tx.QueryRow(ctx, `SELECT `+commodityColumns+` FROM commodities WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, nil, classify(err, "lock commodity")
	}

	releaseLockers, err := fn(c)
	if err != nil {
		return nil, nil, err
	}

	updated, err := updateCommodity(ctx, tx, c)
	if err != nil {
		return nil, nil, err
	}

	var released []uint64
	if releaseLockers {
		released, err = release(ctx, tx, id, updated.UpdatedAt)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "commit tx")
	}
	return updated, released, nil
}

func updateCommodity(ctx context.Context, tx pgx.Tx, c *models.Commodity) (*models.Commodity, error) {
	images, err := marshalImages(c.Images)
	if err != nil {
		return nil, err
	}
	out, err := scanCommodity(tx.QueryRow(ctx, `
UPDATE commodities
SET
  receiver_id = $2,
  name = $3,
  description = $4,
  category = $5,
  condition = $6,
  images = $7,
  status = $8,
  receive_expire_time = $9,
  updated_at = $10
WHERE id = $1
RETURNING `+commodityColumns,
		c.ID, c.ReceiverID, c.Name, c.Description, c.Category, c.Condition, images,
		c.Status, c.ReceiveExpireTime, c.UpdatedAt.UTC(),
	))
	if err != nil {
		return nil, classify(err, "update commodity")
	}
	return out, nil
}

// DeleteCommodity frees the commodity's lockers and removes it. Released locker ids are returned.
func (s *Storage) DeleteCommodity(ctx context.Context, id uint64) ([]uint64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var got uint64
	if err := tx.QueryRow(ctx, `SELECT id FROM commodities WHERE id = $1 FOR UPDATE`, id).Scan(&got); err != nil {
		return nil, classify(err, "lock commodity")
	}

	released, err := release(ctx, tx, id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM commodities WHERE id = $1`, id); err != nil {
		return nil, classify(err, "delete commodity")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return released, nil
}
