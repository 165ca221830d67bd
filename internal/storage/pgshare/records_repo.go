package pgshare

import (
	"context"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

const recordColumns = `id, user_id, role, commodity_id, reward, reason, created_at`

func scanRecord(row rowScanner) (*models.Record, error) {
	var r models.Record
	if err := row.Scan(&r.ID, &r.UserID, &r.Role, &r.CommodityID, &r.Reward, &r.Reason, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Storage) AppendRecord(ctx context.Context, in models.RecordCreateInput) (*models.Record, error) {
	r, err := scanRecord(s.db.QueryRow(ctx, `
INSERT INTO records (user_id, role, commodity_id, reward, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING `+recordColumns,
		in.UserID, in.Role, in.CommodityID, in.Reward, in.Reason, time.Now().UTC()))
	if err != nil {
		return nil, classify(err, "insert record")
	}
	return r, nil
}

func (s *Storage) ListRecords(ctx context.Context, userID *string) ([]*models.Record, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+recordColumns+`
FROM records
WHERE $1::TEXT IS NULL OR user_id = $1
ORDER BY id
`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "select records")
	}
	defer rows.Close()

	out := []*models.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) RecordStats(ctx context.Context, userID string) (models.RecordStats, error) {
	var st models.RecordStats
	err := s.db.QueryRow(ctx, `
SELECT
  COUNT(*),
  COALESCE(SUM(reward), 0)::BIGINT,
  COUNT(*) FILTER (WHERE reason = $2)
FROM records
WHERE user_id = $1
`, userID, models.RecordReasonReport).Scan(&st.RecordCount, &st.RewardSum, &st.ReportCount)
	if err != nil {
		return st, errors.Wrap(err, "record stats")
	}
	return st, nil
}
