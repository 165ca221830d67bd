// Package memshare is an in-memory implementation of the ShareBox entity store. It follows the
// same contract as pgshare and is used for local runs without PostgreSQL and in service tests.
package memshare

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

// Storage keeps every entity behind one lock. Each exported method is one atomic step, which is
// what the transactional store offers its callers too.
type Storage struct {
	mu sync.RWMutex

	groups      map[uint64]*models.StorageGroup
	lockers     map[uint64]*models.Locker
	commodities map[uint64]*models.Commodity
	records     []*models.Record

	nextGroupID     uint64
	nextLockerID    uint64
	nextCommodityID uint64
	nextRecordID    uint64

	now func() time.Time
}

func New() *Storage {
	return &Storage{
		groups:      map[uint64]*models.StorageGroup{},
		lockers:     map[uint64]*models.Locker{},
		commodities: map[uint64]*models.Commodity{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for bookkeeping timestamps.
func (s *Storage) WithClock(now func() time.Time) *Storage {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Storage) Close() {}

func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func cloneLocker(l *models.Locker) *models.Locker {
	out := *l
	if l.CommodityID != nil {
		v := *l.CommodityID
		out.CommodityID = &v
	}
	return &out
}

// sortedLockers returns copies of the matching lockers ordered by id. Caller holds the lock.
func (s *Storage) sortedLockers(match func(*models.Locker) bool) []*models.Locker {
	out := []*models.Locker{}
	for _, l := range s.lockers {
		if match(l) {
			out = append(out, cloneLocker(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Storage) groupView(g *models.StorageGroup) *models.StorageGroup {
	out := *g
	out.Lockers = s.sortedLockers(func(l *models.Locker) bool { return l.StorageGroupID == g.ID })
	return &out
}

func notFound(kind string, id uint64) error {
	return errors.Wrapf(models.ErrNotFound, "%s %d", kind, id)
}
