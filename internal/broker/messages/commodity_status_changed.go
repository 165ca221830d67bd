package messages

import (
	"strconv"
	"time"
)

type CommodityStatusChanged struct {
	EventID     string    `json:"event_id"`
	CommodityID uint64    `json:"commodity_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Source      string    `json:"source"` // "sweeper" | "api"
	ChangedAt   time.Time `json:"changed_at"`
}

// Key partitions events by commodity so that changes of one commodity stay ordered.
func (m CommodityStatusChanged) Key() []byte {
	return []byte(strconv.FormatUint(m.CommodityID, 10))
}
