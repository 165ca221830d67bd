package memshare

import (
	"context"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

// insertLocker adds an empty locker to a group. Caller holds the write lock.
func (s *Storage) insertLocker(groupID uint64) *models.Locker {
	now := s.now()
	s.nextLockerID++
	l := &models.Locker{ID: s.nextLockerID, StorageGroupID: groupID, CreatedAt: now, UpdatedAt: now}
	s.lockers[l.ID] = l
	return l
}

func (s *Storage) CreateLocker(_ context.Context, storageGroupID uint64) (*models.Locker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[storageGroupID]; !ok {
		return nil, notFound("storage group", storageGroupID)
	}
	return cloneLocker(s.insertLocker(storageGroupID)), nil
}

func (s *Storage) GetLocker(_ context.Context, id uint64) (*models.Locker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lockers[id]
	if !ok {
		return nil, notFound("locker", id)
	}
	return cloneLocker(l), nil
}

func (s *Storage) ListLockers(_ context.Context, storageGroupID *uint64) ([]*models.Locker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLockers(func(l *models.Locker) bool {
		return storageGroupID == nil || l.StorageGroupID == *storageGroupID
	}), nil
}

func (s *Storage) PatchLocker(_ context.Context, id uint64, p models.LockerPatch) (*models.Locker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lockers[id]
	if !ok {
		return nil, notFound("locker", id)
	}
	if p.StorageGroupID != nil && *p.StorageGroupID != l.StorageGroupID {
		return nil, errors.Wrapf(models.ErrValidation, "locker %d cannot move to storage group %d", id, *p.StorageGroupID)
	}

	switch {
	case p.ClearCommodity:
		l.CommodityID = nil
	case p.CommodityID != nil:
		cid := *p.CommodityID
		if _, ok := s.commodities[cid]; !ok {
			return nil, notFound("commodity", cid)
		}
		if holder := s.holderOf(cid); holder != nil && holder.ID != id {
			return nil, errors.Wrapf(models.ErrConflict, "commodity %d already in locker %d", cid, holder.ID)
		}
		l.CommodityID = &cid
	}
	l.UpdatedAt = s.now()
	return cloneLocker(l), nil
}

func (s *Storage) DeleteLocker(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lockers[id]
	if !ok {
		return notFound("locker", id)
	}
	if !l.Empty() {
		return errors.Wrapf(models.ErrConflict, "locker %d holds commodity %d", id, *l.CommodityID)
	}
	delete(s.lockers, id)
	return nil
}

func (s *Storage) AllocateLocker(_ context.Context, storageGroupID, commodityID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.commodities[commodityID]; !ok {
		return 0, notFound("commodity", commodityID)
	}
	if holder := s.holderOf(commodityID); holder != nil {
		return 0, errors.Wrapf(models.ErrConflict, "commodity %d already in locker %d", commodityID, holder.ID)
	}
	return s.allocate(storageGroupID, commodityID)
}

// allocate picks the lowest-id empty locker of the group. Caller holds the write lock.
func (s *Storage) allocate(storageGroupID, commodityID uint64) (uint64, error) {
	if _, ok := s.groups[storageGroupID]; !ok {
		return 0, notFound("storage group", storageGroupID)
	}

	var picked *models.Locker
	for _, l := range s.lockers {
		if l.StorageGroupID != storageGroupID || !l.Empty() {
			continue
		}
		if picked == nil || l.ID < picked.ID {
			picked = l
		}
	}
	if picked == nil {
		return 0, errors.Wrapf(models.ErrCapacityExceeded, "storage group %d", storageGroupID)
	}

	cid := commodityID
	picked.CommodityID = &cid
	picked.UpdatedAt = s.now()
	return picked.ID, nil
}

func (s *Storage) holderOf(commodityID uint64) *models.Locker {
	for _, l := range s.lockers {
		if l.CommodityID != nil && *l.CommodityID == commodityID {
			return l
		}
	}
	return nil
}

func (s *Storage) ReleaseLockers(_ context.Context, commodityID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release(commodityID), nil
}

// release clears every locker pointing at the commodity. Caller holds the write lock.
func (s *Storage) release(commodityID uint64) []uint64 {
	ids := []uint64{}
	for _, l := range s.sortedLockers(func(l *models.Locker) bool {
		return l.CommodityID != nil && *l.CommodityID == commodityID
	}) {
		orig := s.lockers[l.ID]
		orig.CommodityID = nil
		orig.UpdatedAt = s.now()
		ids = append(ids, l.ID)
	}
	return ids
}

// ForceOccupy points a locker at a commodity without any checks. It exists to reproduce
// corrupted occupancy in tests of the integrity path.
func (s *Storage) ForceOccupy(lockerID, commodityID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lockers[lockerID]; ok {
		cid := commodityID
		l.CommodityID = &cid
	}
}
