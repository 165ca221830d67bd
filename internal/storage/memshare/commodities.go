package memshare

import (
	"context"
	"sort"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
)

func (s *Storage) CreateCommodity(_ context.Context, c *models.Commodity) (*models.Commodity, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Сначала проверяем ёмкость, чтобы при отказе не оставить commodity без ячейки.
	if _, ok := s.groups[c.StorageGroupID]; !ok {
		return nil, 0, notFound("storage group", c.StorageGroupID)
	}

	stored := c.Clone()
	if stored.Images == nil {
		stored.Images = []string{}
	}
	stored.ID = s.nextCommodityID + 1

	lockerID, err := s.allocate(stored.StorageGroupID, stored.ID)
	if err != nil {
		return nil, 0, err
	}

	s.nextCommodityID = stored.ID
	s.commodities[stored.ID] = stored
	return stored.Clone(), lockerID, nil
}

func (s *Storage) GetCommodity(_ context.Context, id uint64) (*models.Commodity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commodities[id]
	if !ok {
		return nil, notFound("commodity", id)
	}
	return c.Clone(), nil
}

func (s *Storage) ListCommodities(_ context.Context, f models.CommodityFilter) ([]*models.Commodity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Commodity{}
	for _, c := range s.commodities {
		if f.Matches(c) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MutateCommodity edits a copy so that a failing fn leaves the stored commodity untouched.
func (s *Storage) MutateCommodity(_ context.Context, id uint64, fn models.MutateFunc) (*models.Commodity, []uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.commodities[id]
	if !ok {
		return nil, nil, notFound("commodity", id)
	}

	next := cur.Clone()
	releaseLockers, err := fn(next)
	if err != nil {
		return nil, nil, err
	}
	next.ID = cur.ID
	s.commodities[id] = next

	var released []uint64
	if releaseLockers {
		released = s.release(id)
	}
	return next.Clone(), released, nil
}

func (s *Storage) DeleteCommodity(_ context.Context, id uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.commodities[id]; !ok {
		return nil, notFound("commodity", id)
	}
	released := s.release(id)
	delete(s.commodities, id)
	return released, nil
}

func (s *Storage) SweepCommodities(ctx context.Context, afterID uint64, limit int, at time.Time, evaluate models.EvaluateFunc) (models.SweepBatch, error) {
	batch := models.SweepBatch{LastID: afterID}
	if limit <= 0 {
		limit = 500
	}
	if err := ctx.Err(); err != nil {
		return batch, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uint64, 0, len(s.commodities))
	for id := range s.commodities {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	batch.Scanned = len(ids)
	for _, id := range ids {
		batch.LastID = id
		c := s.commodities[id]
		to, changed := evaluate(c.Clone())
		if !changed {
			continue
		}
		batch.Changes = append(batch.Changes, models.StatusChange{CommodityID: id, From: c.Status, To: to, At: at})
		c.Status = to
		c.UpdatedAt = at
	}
	return batch, nil
}
