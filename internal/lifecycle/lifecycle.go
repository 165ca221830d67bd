// Package lifecycle holds the commodity state machine: creation, client-driven patches and
// the time-driven rules applied by the sweeper.
package lifecycle

import (
	"strings"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

type Durations struct {
	Lifetime      time.Duration // default: 7 days
	GiveWindow    time.Duration // default: 3 hours
	ReceiveWindow time.Duration // default: 3 hours
}

func DefaultDurations() Durations {
	return Durations{
		Lifetime:      7 * 24 * time.Hour,
		GiveWindow:    3 * time.Hour,
		ReceiveWindow: 3 * time.Hour,
	}
}

// WithDefaults replaces non-positive durations with the defaults.
func (d Durations) WithDefaults() Durations {
	def := DefaultDurations()
	if d.Lifetime <= 0 {
		d.Lifetime = def.Lifetime
	}
	if d.GiveWindow <= 0 {
		d.GiveWindow = def.GiveWindow
	}
	if d.ReceiveWindow <= 0 {
		d.ReceiveWindow = def.ReceiveWindow
	}
	return d
}

// Validate checks the input of a new commodity.
func Validate(in models.CommodityCreateInput) error {
	switch {
	case strings.TrimSpace(in.GiverID) == "":
		return errors.Wrap(models.ErrValidation, "giverId is required")
	case in.StorageGroupID == 0:
		return errors.Wrap(models.ErrValidation, "storageGroupId is required")
	case strings.TrimSpace(in.Name) == "":
		return errors.Wrap(models.ErrValidation, "name is required")
	case strings.TrimSpace(in.Category) == "":
		return errors.Wrap(models.ErrValidation, "category is required")
	case strings.TrimSpace(in.Condition) == "":
		return errors.Wrap(models.ErrValidation, "condition is required")
	}
	return nil
}

// New builds a commodity in the initial giving state with its deadlines stamped from now.
func New(in models.CommodityCreateInput, now time.Time, d Durations) *models.Commodity {
	d = d.WithDefaults()
	images := in.Images
	if images == nil {
		images = []string{}
	}
	return &models.Commodity{
		GiverID:        in.GiverID,
		StorageGroupID: in.StorageGroupID,
		Name:           in.Name,
		Description:    in.Description,
		Category:       in.Category,
		Condition:      in.Condition,
		Images:         append([]string(nil), images...),
		Status:         models.CommodityStatusGiving,
		ExpireTime:     now.Add(d.Lifetime),
		GiveExpireTime: now.Add(d.GiveWindow),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Effects are the side effects a patch asks the store to perform in the same transaction.
type Effects struct {
	ReleaseLockers bool
	StatusChanged  bool
	From           string
}

// ApplyPatch applies a client-driven change. Any known status is accepted: authorization of
// who may set what lives outside the core.
func ApplyPatch(c *models.Commodity, p models.CommodityPatch, now time.Time, d Durations) (Effects, error) {
	d = d.WithDefaults()
	eff := Effects{From: c.Status}

	if p.Status != nil && !models.IsCommodityStatus(*p.Status) {
		return eff, errors.Wrapf(models.ErrValidation, "unknown status %q", *p.Status)
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return eff, errors.Wrap(models.ErrValidation, "name must not be empty")
	}

	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Condition != nil {
		c.Condition = *p.Condition
	}
	if p.Images != nil {
		c.Images = append([]string{}, (*p.Images)...)
	}

	if p.Status != nil {
		c.Status = *p.Status
		switch c.Status {
		case models.CommodityStatusReceiving:
			t := now.Add(d.ReceiveWindow)
			c.ReceiveExpireTime = &t
		case models.CommodityStatusFinished:
			eff.ReleaseLockers = true
		}
		eff.StatusChanged = c.Status != eff.From
	}

	if p.ReceiverID != nil {
		v := *p.ReceiverID
		c.ReceiverID = &v
	}

	c.UpdatedAt = now
	return eff, nil
}

// Evaluate applies the time-driven rules, first match wins:
//  1. past expireTime -> expired, whatever the current status (finished included)
//  2. giving past giveExpireTime -> giveExpired
//  3. receiving past receiveExpireTime -> pending; receiverId and receiveExpireTime stay as history
func Evaluate(c *models.Commodity, now time.Time) (string, bool) {
	next := c.Status
	switch {
	case now.After(c.ExpireTime):
		next = models.CommodityStatusExpired
	case c.Status == models.CommodityStatusGiving && now.After(c.GiveExpireTime):
		next = models.CommodityStatusGiveExpired
	case c.Status == models.CommodityStatusReceiving && c.ReceiveExpireTime != nil && now.After(*c.ReceiveExpireTime):
		next = models.CommodityStatusPending
	}
	return next, next != c.Status
}

// Evaluator binds Evaluate to a fixed pass time.
func Evaluator(now time.Time) models.EvaluateFunc {
	return func(c *models.Commodity) (string, bool) {
		return Evaluate(c, now)
	}
}

