package models

import "time"

type StorageGroup struct {
	ID        uint64
	Name      string
	Longitude float64
	Latitude  float64
	Lockers   []*Locker
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Locker struct {
	ID             uint64
	StorageGroupID uint64
	CommodityID    *uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Empty reports whether the locker has no occupant.
func (l *Locker) Empty() bool {
	return l.CommodityID == nil
}

type StorageGroupCreateInput struct {
	Name        string
	Longitude   float64
	Latitude    float64
	LockerCount int
}

type StorageGroupPatch struct {
	Name      *string
	Longitude *float64
	Latitude  *float64
}

// LockerPatch changes a locker's occupant. ClearCommodity wins over CommodityID.
// StorageGroupID exists only so that attempts to move a locker can be rejected.
type LockerPatch struct {
	StorageGroupID *uint64
	CommodityID    *uint64
	ClearCommodity bool
}

type GroupSnapshot struct {
	StorageGroupID uint64
	Total          int
	Available      int
	Lockers        []*Locker
}

// SnapshotOf derives total/available for a group from its lockers.
func SnapshotOf(g *StorageGroup) GroupSnapshot {
	s := GroupSnapshot{StorageGroupID: g.ID, Total: len(g.Lockers), Lockers: g.Lockers}
	for _, l := range g.Lockers {
		if l.Empty() {
			s.Available++
		}
	}
	return s
}
