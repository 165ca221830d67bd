package pgshare

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS storage_groups (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  longitude DOUBLE PRECISION NOT NULL,
  latitude DOUBLE PRECISION NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS commodities (
  id BIGSERIAL PRIMARY KEY,
  giver_id TEXT NOT NULL,
  receiver_id TEXT NULL,
  storage_group_id BIGINT NOT NULL REFERENCES storage_groups(id),
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  condition TEXT NOT NULL,
  images JSONB NOT NULL DEFAULT '[]',
  status TEXT NOT NULL,
  expire_time TIMESTAMPTZ NOT NULL,
  give_expire_time TIMESTAMPTZ NOT NULL,
  receive_expire_time TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_commodities_storage_group_id ON commodities(storage_group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_commodities_status ON commodities(status)`,
		// Group deletion cascades explicitly in DeleteStorageGroup, so no ON DELETE CASCADE here.
		`
CREATE TABLE IF NOT EXISTS lockers (
  id BIGSERIAL PRIMARY KEY,
  storage_group_id BIGINT NOT NULL REFERENCES storage_groups(id),
  commodity_id BIGINT NULL REFERENCES commodities(id) ON DELETE SET NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_lockers_storage_group_id ON lockers(storage_group_id, id)`,
		// A commodity sits in at most one locker.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_lockers_commodity_id ON lockers(commodity_id) WHERE commodity_id IS NOT NULL`,
		`
CREATE TABLE IF NOT EXISTS records (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  commodity_id BIGINT NOT NULL,
  reward BIGINT NOT NULL,
  reason TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_records_user_id ON records(user_id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
