// Package shareapi exposes the ShareBox services over HTTP using the {message, data} envelope.
package shareapi

import (
	"context"
	"net/http"
	"time"

	"github.com/BearBump/ShareBox/internal/broker/messages"
	"github.com/BearBump/ShareBox/internal/models"
	"github.com/BearBump/ShareBox/internal/search"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CommodityService interface {
	Create(ctx context.Context, in models.CommodityCreateInput) (*models.Commodity, uint64, error)
	Patch(ctx context.Context, id uint64, p models.CommodityPatch) (*models.Commodity, error)
	Get(ctx context.Context, id uint64) (*models.Commodity, error)
	Search(ctx context.Context, q search.Query) ([]*models.Commodity, error)
	Delete(ctx context.Context, id uint64) error
	ApplyStatusChanged(ctx context.Context, ev messages.CommodityStatusChanged) error
}

type LockerService interface {
	CreateStorageGroup(ctx context.Context, in models.StorageGroupCreateInput) (*models.StorageGroup, error)
	PatchStorageGroup(ctx context.Context, id uint64, p models.StorageGroupPatch) (*models.StorageGroup, error)
	GetStorageGroup(ctx context.Context, id uint64) (*models.StorageGroup, error)
	ListStorageGroups(ctx context.Context) ([]*models.StorageGroup, error)
	DeleteStorageGroup(ctx context.Context, id uint64) error

	CreateLocker(ctx context.Context, storageGroupID uint64) (*models.Locker, error)
	PatchLocker(ctx context.Context, id uint64, p models.LockerPatch) (*models.Locker, error)
	GetLocker(ctx context.Context, id uint64) (*models.Locker, error)
	ListLockers(ctx context.Context, storageGroupID *uint64) ([]*models.Locker, error)
	DeleteLocker(ctx context.Context, id uint64) error
}

type RecordService interface {
	Append(ctx context.Context, in models.RecordCreateInput) (*models.Record, error)
	List(ctx context.Context, userID *string) ([]*models.Record, error)
	Reputation(ctx context.Context, userID string) (*models.Reputation, error)
}

type ShareAPI struct {
	commodities CommodityService
	lockers     LockerService
	records     RecordService
	now         func() time.Time
}

func New(commodities CommodityService, lockers LockerService, records RecordService) *ShareAPI {
	return &ShareAPI{
		commodities: commodities,
		lockers:     lockers,
		records:     records,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for the derived *ExpireSeconds fields.
func (a *ShareAPI) WithClock(now func() time.Time) *ShareAPI {
	if now != nil {
		a.now = now
	}
	return a
}

func (a *ShareAPI) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/commodity", func(r chi.Router) {
			r.Post("/", a.createCommodity)
			r.Get("/", a.listCommodities)
			r.Get("/{id}", a.getCommodity)
			r.Patch("/{id}", a.patchCommodity)
			r.Delete("/{id}", a.deleteCommodity)
		})
		r.Route("/storage_group", func(r chi.Router) {
			r.Post("/", a.createStorageGroup)
			r.Get("/", a.listStorageGroups)
			r.Get("/{id}", a.getStorageGroup)
			r.Patch("/{id}", a.patchStorageGroup)
			r.Delete("/{id}", a.deleteStorageGroup)
		})
		r.Route("/storage", func(r chi.Router) {
			r.Post("/", a.createLocker)
			r.Get("/", a.listLockers)
			r.Get("/{id}", a.getLocker)
			r.Patch("/{id}", a.patchLocker)
			r.Delete("/{id}", a.deleteLocker)
		})
		r.Route("/record", func(r chi.Router) {
			r.Post("/", a.createRecord)
			r.Get("/", a.listRecords)
			r.Get("/{userId}", a.getReputation)
		})
	})
	return r
}
