package pgshare

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// SweepCommodities evaluates one chunk of commodities with id > afterID, ordered by id.
// Rows held by concurrent writers are skipped and picked up by the next pass. Each status write
// runs in its own savepoint, so a failing row is counted and logged without aborting the chunk.
func (s *Storage) SweepCommodities(ctx context.Context, afterID uint64, limit int, at time.Time, evaluate models.EvaluateFunc) (models.SweepBatch, error) {
	batch := models.SweepBatch{LastID: afterID}
	if limit <= 0 {
		limit = 500
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return batch, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT `+commodityColumns+`
FROM commodities
WHERE id > $1
ORDER BY id ASC
LIMIT $2
FOR UPDATE SKIP LOCKED
`, afterID, limit)
	if err != nil {
		return batch, errors.Wrap(err, "select sweep chunk")
	}

	var picked []*models.Commodity
	for rows.Next() {
		c, err := scanCommodity(rows)
		if err != nil {
			rows.Close()
			return batch, errors.Wrap(err, "scan sweep chunk")
		}
		picked = append(picked, c)
	}
	rows.Close()
	if rows.Err() != nil {
		return batch, errors.Wrap(rows.Err(), "rows")
	}

	batch.Scanned = len(picked)
	if len(picked) > 0 {
		batch.LastID = picked[len(picked)-1].ID
	}

	for _, c := range picked {
		from := c.Status
		to, changed := evaluate(c)
		if !changed {
			continue
		}

		if err := setStatus(ctx, tx, c.ID, to, at); err != nil {
			batch.Failed++
			slog.Error("sweep: status write failed", "commodity_id", c.ID, "from", from, "to", to, "error", err.Error())
			continue
		}
		batch.Changes = append(batch.Changes, models.StatusChange{CommodityID: c.ID, From: from, To: to, At: at})
	}

	if err := tx.Commit(ctx); err != nil {
		return models.SweepBatch{LastID: afterID}, errors.Wrap(err, "commit tx")
	}
	return batch, nil
}

func setStatus(ctx context.Context, tx pgx.Tx, id uint64, status string, at time.Time) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "savepoint")
	}
	defer func() { _ = sp.Rollback(ctx) }()

	if _, err := sp.Exec(ctx, `UPDATE commodities SET status = $2, updated_at = $3 WHERE id = $1`, id, status, at.UTC()); err != nil {
		return errors.Wrap(err, "update status")
	}
	return errors.Wrap(sp.Commit(ctx), "release savepoint")
}
