package models

import "time"

const (
	CommodityStatusGiving      = "giving"
	CommodityStatusPending     = "pending"
	CommodityStatusReceiving   = "receiving"
	CommodityStatusGiveExpired = "giveExpired"
	CommodityStatusExpired     = "expired"
	CommodityStatusFinished    = "finished"
)

var commodityStatuses = map[string]struct{}{
	CommodityStatusGiving:      {},
	CommodityStatusPending:     {},
	CommodityStatusReceiving:   {},
	CommodityStatusGiveExpired: {},
	CommodityStatusExpired:     {},
	CommodityStatusFinished:    {},
}

// IsCommodityStatus reports whether s is one of the known lifecycle statuses.
func IsCommodityStatus(s string) bool {
	_, ok := commodityStatuses[s]
	return ok
}

type Commodity struct {
	ID             uint64
	GiverID        string
	ReceiverID     *string
	StorageGroupID uint64
	Name           string
	Description    string
	Category       string
	Condition      string
	Images         []string
	Status         string

	ExpireTime        time.Time
	GiveExpireTime    time.Time
	ReceiveExpireTime *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy, so callers can mutate it without touching shared state.
func (c *Commodity) Clone() *Commodity {
	if c == nil {
		return nil
	}
	out := *c
	if c.ReceiverID != nil {
		v := *c.ReceiverID
		out.ReceiverID = &v
	}
	if c.ReceiveExpireTime != nil {
		v := *c.ReceiveExpireTime
		out.ReceiveExpireTime = &v
	}
	if c.Images != nil {
		out.Images = append([]string(nil), c.Images...)
	}
	return &out
}

type CommodityCreateInput struct {
	GiverID        string
	StorageGroupID uint64
	Name           string
	Description    string
	Category       string
	Condition      string
	Images         []string
}

// CommodityPatch carries the fields a client may change. Nil means "leave as is".
type CommodityPatch struct {
	Name        *string
	Description *string
	Category    *string
	Condition   *string
	Images      *[]string
	Status      *string
	ReceiverID  *string
}

type CommodityFilter struct {
	Status         *string
	GiverID        *string
	ReceiverID     *string
	StorageGroupID *uint64
}

// Matches applies the filter with AND semantics.
func (f CommodityFilter) Matches(c *Commodity) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.GiverID != nil && c.GiverID != *f.GiverID {
		return false
	}
	if f.ReceiverID != nil && (c.ReceiverID == nil || *c.ReceiverID != *f.ReceiverID) {
		return false
	}
	if f.StorageGroupID != nil && c.StorageGroupID != *f.StorageGroupID {
		return false
	}
	return true
}

// StatusChange is one status transition committed by the store.
type StatusChange struct {
	CommodityID uint64
	From        string
	To          string
	At          time.Time
}

// EvaluateFunc decides the time-driven status of a commodity. changed=false means no write.
type EvaluateFunc func(c *Commodity) (status string, changed bool)

// MutateFunc edits a locked commodity in place and reports whether its lockers must be released.
type MutateFunc func(c *Commodity) (releaseLockers bool, err error)

// SweepBatch is the outcome of one chunk of an expiration sweep.
type SweepBatch struct {
	Scanned int
	LastID  uint64
	Changes []StatusChange
	Failed  int
}

// ExpireSeconds returns the seconds left until deadline (negative once passed), nil for no deadline.
func ExpireSeconds(deadline *time.Time, now time.Time) *float64 {
	if deadline == nil {
		return nil
	}
	v := deadline.Sub(now).Seconds()
	return &v
}
