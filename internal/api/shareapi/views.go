package shareapi

import (
	"time"

	"github.com/BearBump/ShareBox/internal/models"
)

type commodityFields struct {
	ID                uint64     `json:"id"`
	GiverID           string     `json:"giverId"`
	ReceiverID        *string    `json:"receiverId"`
	StorageGroupID    uint64     `json:"storageGroupId"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Condition         string     `json:"condition"`
	Images            []string   `json:"images"`
	Status            string     `json:"status"`
	ExpireTime        time.Time  `json:"expireTime"`
	GiveExpireTime    time.Time  `json:"giveExpireTime"`
	ReceiveExpireTime *time.Time `json:"receiveExpireTime"`
	CreatedTime       time.Time  `json:"createdTime"`
	UpdatedTime       time.Time  `json:"updatedTime"`
}

type commodityView struct {
	commodityFields
	GiveExpireSeconds    *float64 `json:"giveExpireSeconds"`
	ReceiveExpireSeconds *float64 `json:"receiveExpireSeconds"`
}

func toCommodityFields(c *models.Commodity) commodityFields {
	images := c.Images
	if images == nil {
		images = []string{}
	}
	return commodityFields{
		ID:                c.ID,
		GiverID:           c.GiverID,
		ReceiverID:        c.ReceiverID,
		StorageGroupID:    c.StorageGroupID,
		Name:              c.Name,
		Description:       c.Description,
		Category:          c.Category,
		Condition:         c.Condition,
		Images:            images,
		Status:            c.Status,
		ExpireTime:        c.ExpireTime,
		GiveExpireTime:    c.GiveExpireTime,
		ReceiveExpireTime: c.ReceiveExpireTime,
		CreatedTime:       c.CreatedAt,
		UpdatedTime:       c.UpdatedAt,
	}
}

func toCommodityView(c *models.Commodity, now time.Time) commodityView {
	give := c.GiveExpireTime
	return commodityView{
		commodityFields:      toCommodityFields(c),
		GiveExpireSeconds:    models.ExpireSeconds(&give, now),
		ReceiveExpireSeconds: models.ExpireSeconds(c.ReceiveExpireTime, now),
	}
}

func toCommodityViews(cs []*models.Commodity, now time.Time) []commodityView {
	out := make([]commodityView, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCommodityView(c, now))
	}
	return out
}

// Ranked results carry only the public fields.
func toRankedViews(cs []*models.Commodity) []commodityFields {
	out := make([]commodityFields, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCommodityFields(c))
	}
	return out
}

type lockerView struct {
	ID             uint64    `json:"id"`
	StorageGroupID uint64    `json:"storageGroupId"`
	CommodityID    *uint64   `json:"commodityId"`
	CreatedTime    time.Time `json:"createdTime"`
	UpdatedTime    time.Time `json:"updatedTime"`
}

func toLockerView(l *models.Locker) lockerView {
	return lockerView{
		ID:             l.ID,
		StorageGroupID: l.StorageGroupID,
		CommodityID:    l.CommodityID,
		CreatedTime:    l.CreatedAt,
		UpdatedTime:    l.UpdatedAt,
	}
}

func toLockerViews(ls []*models.Locker) []lockerView {
	out := make([]lockerView, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLockerView(l))
	}
	return out
}

type storageGroupView struct {
	ID          uint64       `json:"id"`
	Name        string       `json:"name"`
	Longitude   float64      `json:"longitude"`
	Latitude    float64      `json:"latitude"`
	Storages    []lockerView `json:"storages"`
	Total       int          `json:"total"`
	Available   int          `json:"available"`
	CreatedTime time.Time    `json:"createdTime"`
	UpdatedTime time.Time    `json:"updatedTime"`
}

func toStorageGroupView(g *models.StorageGroup) storageGroupView {
	snap := models.SnapshotOf(g)
	return storageGroupView{
		ID:          g.ID,
		Name:        g.Name,
		Longitude:   g.Longitude,
		Latitude:    g.Latitude,
		Storages:    toLockerViews(snap.Lockers),
		Total:       snap.Total,
		Available:   snap.Available,
		CreatedTime: g.CreatedAt,
		UpdatedTime: g.UpdatedAt,
	}
}

type recordView struct {
	ID          uint64    `json:"id"`
	UserID      string    `json:"userId"`
	Role        string    `json:"role"`
	CommodityID uint64    `json:"commodityId"`
	Reward      int64     `json:"reward"`
	Reason      string    `json:"reason"`
	CreatedTime time.Time `json:"createdTime"`
}

func toRecordView(r *models.Record) recordView {
	return recordView{
		ID:          r.ID,
		UserID:      r.UserID,
		Role:        r.Role,
		CommodityID: r.CommodityID,
		Reward:      r.Reward,
		Reason:      r.Reason,
		CreatedTime: r.CreatedAt,
	}
}

type reputationView struct {
	UserID      string  `json:"userId"`
	RecordCount int64   `json:"recordCount"`
	MeanReward  float64 `json:"meanReward"`
	ReportCount int64   `json:"reportCount"`
	Evaluation  string  `json:"evaluation"`
}
