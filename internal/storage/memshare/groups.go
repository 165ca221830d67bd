package memshare

import (
	"context"
	"sort"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) CreateStorageGroup(_ context.Context, in models.StorageGroupCreateInput) (*models.StorageGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextGroupID++
	g := &models.StorageGroup{
		ID:        s.nextGroupID,
		Name:      in.Name,
		Longitude: in.Longitude,
		Latitude:  in.Latitude,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.groups[g.ID] = g

	for i := 0; i < in.LockerCount; i++ {
		s.insertLocker(g.ID)
	}
	return s.groupView(g), nil
}

func (s *Storage) PatchStorageGroup(_ context.Context, id uint64, p models.StorageGroupPatch) (*models.StorageGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, notFound("storage group", id)
	}
	if p.Name != nil {
		g.Name = *p.Name
	}
	if p.Longitude != nil {
		g.Longitude = *p.Longitude
	}
	if p.Latitude != nil {
		g.Latitude = *p.Latitude
	}
	g.UpdatedAt = s.now()
	return s.groupView(g), nil
}

func (s *Storage) GetStorageGroup(_ context.Context, id uint64) (*models.StorageGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, notFound("storage group", id)
	}
	return s.groupView(g), nil
}

func (s *Storage) ListStorageGroups(_ context.Context) ([]*models.StorageGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.StorageGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, s.groupView(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Storage) DeleteStorageGroup(_ context.Context, id uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return 0, notFound("storage group", id)
	}
	for _, c := range s.commodities {
		if c.StorageGroupID == id {
			return 0, errors.Wrapf(models.ErrConflict, "storage group %d still has commodities", id)
		}
	}

	removed := 0
	for lid, l := range s.lockers {
		if l.StorageGroupID == id {
			delete(s.lockers, lid)
			removed++
		}
	}
	delete(s.groups, id)
	return removed, nil
}
