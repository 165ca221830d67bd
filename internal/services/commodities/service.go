package commodities

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShareBox/internal/broker/messages"
	"github.com/BearBump/ShareBox/internal/cache"
	"github.com/BearBump/ShareBox/internal/lifecycle"
	"github.com/BearBump/ShareBox/internal/metrics"
	"github.com/BearBump/ShareBox/internal/models"
	"github.com/BearBump/ShareBox/internal/search"
	"github.com/BearBump/ShareBox/internal/services/lockers"
	"github.com/pkg/errors"
)

type Repository interface {
	CreateCommodity(ctx context.Context, c *models.Commodity) (*models.Commodity, uint64, error)
	GetCommodity(ctx context.Context, id uint64) (*models.Commodity, error)
	ListCommodities(ctx context.Context, f models.CommodityFilter) ([]*models.Commodity, error)
	MutateCommodity(ctx context.Context, id uint64, fn models.MutateFunc) (*models.Commodity, []uint64, error)
	DeleteCommodity(ctx context.Context, id uint64) ([]uint64, error)

	GetStorageGroup(ctx context.Context, id uint64) (*models.StorageGroup, error)
	ListStorageGroups(ctx context.Context) ([]*models.StorageGroup, error)
}

type Service struct {
	repo       Repository
	cache      cache.BytesCache
	currentTTL time.Duration
	engine     *search.Engine
	durations  lifecycle.Durations
	now        func() time.Time
}

func New(repo Repository, c cache.BytesCache, currentTTL time.Duration, engine *search.Engine, d lifecycle.Durations) *Service {
	if engine == nil {
		engine = search.New(search.FieldsTokenizer{})
	}
	return &Service{
		repo:       repo,
		cache:      c,
		currentTTL: currentTTL,
		engine:     engine,
		durations:  d.WithDefaults(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to stamp deadlines.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create stores a new commodity in status giving and occupies a locker of its group. A full group
// yields ErrCapacityExceeded and nothing is stored.
func (s *Service) Create(ctx context.Context, in models.CommodityCreateInput) (*models.Commodity, uint64, error) {
	if err := lifecycle.Validate(in); err != nil {
		return nil, 0, err
	}

	c, lockerID, err := s.repo.CreateCommodity(ctx, lifecycle.New(in, s.now(), s.durations))
	if err != nil {
		if errors.Is(err, models.ErrCapacityExceeded) {
			metrics.CapacityExceededTotal.Inc()
		}
		return nil, 0, err
	}

	metrics.CommoditiesCreatedTotal.Inc()
	slog.Info("commodity created", "commodity_id", c.ID, "storage_group_id", c.StorageGroupID, "locker_id", lockerID)
	s.storeCurrent(ctx, c)
	return c, lockerID, nil
}

// Patch applies a client change under the commodity row lock. Finishing a commodity releases
// its locker in the same transaction.
func (s *Service) Patch(ctx context.Context, id uint64, p models.CommodityPatch) (*models.Commodity, error) {
	var eff lifecycle.Effects
	c, released, err := s.repo.MutateCommodity(ctx, id, func(c *models.Commodity) (bool, error) {
		var err error
		eff, err = lifecycle.ApplyPatch(c, p, s.now(), s.durations)
		return eff.ReleaseLockers, err
	})
	if err != nil {
		return nil, err
	}

	if eff.ReleaseLockers {
		lockers.CheckReleased(id, released)
	}
	if eff.StatusChanged {
		metrics.StatusTransitionsTotal.WithLabelValues("api", c.Status).Inc()
		slog.Info("commodity status changed", "commodity_id", id, "from", eff.From, "to", c.Status)
	}
	s.storeCurrent(ctx, c)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (*models.Commodity, error) {
	// Кэш только ускоряет чтение: любая ошибка кэша -> идём в БД.
	if s.cacheEnabled() {
		b, ok, err := s.cache.Get(ctx, currentKey(id))
		if err == nil && ok {
			var c models.Commodity
			// Запись, которую sweeper уже должен был перевести, считаем устаревшей.
			if json.Unmarshal(b, &c) == nil {
				if _, changed := lifecycle.Evaluate(&c, s.now()); !changed {
					return &c, nil
				}
			}
		}
	}

	c, err := s.repo.GetCommodity(ctx, id)
	if err != nil {
		return nil, err
	}
	s.storeCurrent(ctx, c)
	return c, nil
}

func (s *Service) List(ctx context.Context, f models.CommodityFilter) ([]*models.Commodity, error) {
	return s.repo.ListCommodities(ctx, f)
}

// Search filters commodities and ranks them when both a point and a keyword are given.
func (s *Service) Search(ctx context.Context, q search.Query) ([]*models.Commodity, error) {
	if q.Filter.StorageGroupID != nil {
		if _, err := s.repo.GetStorageGroup(ctx, *q.Filter.StorageGroupID); err != nil {
			return nil, err
		}
	}

	items, err := s.repo.ListCommodities(ctx, q.Filter)
	if err != nil {
		return nil, err
	}

	var groups []*models.StorageGroup
	if q.Ranked() {
		if groups, err = s.repo.ListStorageGroups(ctx); err != nil {
			return nil, err
		}
	}
	return s.engine.Search(items, groups, q), nil
}

// Delete removes the commodity and frees its locker.
func (s *Service) Delete(ctx context.Context, id uint64) error {
	released, err := s.repo.DeleteCommodity(ctx, id)
	if err != nil {
		return err
	}
	lockers.CheckReleased(id, released)
	s.dropCurrent(ctx, id)
	return nil
}

// ApplyStatusChanged refreshes the cached commodity after a status event from the sweeper.
func (s *Service) ApplyStatusChanged(ctx context.Context, ev messages.CommodityStatusChanged) error {
	if ev.CommodityID == 0 {
		return errors.Wrap(models.ErrValidation, "commodity_id is required")
	}
	if !s.cacheEnabled() {
		return nil
	}

	c, err := s.repo.GetCommodity(ctx, ev.CommodityID)
	if errors.Is(err, models.ErrNotFound) {
		s.dropCurrent(ctx, ev.CommodityID)
		return nil
	}
	if err != nil {
		return err
	}
	s.storeCurrent(ctx, c)
	return nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.currentTTL > 0
}

func (s *Service) storeCurrent(ctx context.Context, c *models.Commodity) {
	if !s.cacheEnabled() {
		return
	}
	b, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, currentKey(c.ID), b, s.currentTTL); err != nil {
		slog.Warn("commodity cache set", "commodity_id", c.ID, "error", err.Error())
	}
}

func (s *Service) dropCurrent(ctx context.Context, id uint64) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Delete(ctx, currentKey(id)); err != nil {
		slog.Warn("commodity cache delete", "commodity_id", id, "error", err.Error())
	}
}

func currentKey(id uint64) string {
	return fmt.Sprintf("commodity:%d:current", id)
}
