package lockers

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/BearBump/ShareBox/internal/metrics"
	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	CreateStorageGroup(ctx context.Context, in models.StorageGroupCreateInput) (*models.StorageGroup, error)
	PatchStorageGroup(ctx context.Context, id uint64, p models.StorageGroupPatch) (*models.StorageGroup, error)
	GetStorageGroup(ctx context.Context, id uint64) (*models.StorageGroup, error)
	ListStorageGroups(ctx context.Context) ([]*models.StorageGroup, error)
	DeleteStorageGroup(ctx context.Context, id uint64) (int, error)

	CreateLocker(ctx context.Context, storageGroupID uint64) (*models.Locker, error)
	PatchLocker(ctx context.Context, id uint64, p models.LockerPatch) (*models.Locker, error)
	GetLocker(ctx context.Context, id uint64) (*models.Locker, error)
	ListLockers(ctx context.Context, storageGroupID *uint64) ([]*models.Locker, error)
	DeleteLocker(ctx context.Context, id uint64) error

	AllocateLocker(ctx context.Context, storageGroupID, commodityID uint64) (uint64, error)
	ReleaseLockers(ctx context.Context, commodityID uint64) ([]uint64, error)
}

// Service is the locker pool manager: exclusive allocation, release and storage group bookkeeping.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Allocate(ctx context.Context, storageGroupID, commodityID uint64) (uint64, error) {
	lockerID, err := s.repo.AllocateLocker(ctx, storageGroupID, commodityID)
	if errors.Is(err, models.ErrCapacityExceeded) {
		metrics.CapacityExceededTotal.Inc()
	}
	return lockerID, err
}

// Release frees every locker holding the commodity. Finding more than one is an integrity
// violation; it is logged and counted but the release itself still succeeds.
func (s *Service) Release(ctx context.Context, commodityID uint64) ([]uint64, error) {
	released, err := s.repo.ReleaseLockers(ctx, commodityID)
	if err != nil {
		return nil, err
	}
	CheckReleased(commodityID, released)
	return released, nil
}

// CheckReleased accounts for lockers freed on behalf of a commodity.
func CheckReleased(commodityID uint64, released []uint64) {
	metrics.LockersReleasedTotal.Add(float64(len(released)))
	if len(released) > 1 {
		metrics.IntegrityViolationsTotal.Inc()
		err := errors.Wrapf(models.ErrIntegrity, "commodity %d was held by %d lockers", commodityID, len(released))
		slog.Error("locker release", "commodity_id", commodityID, "locker_ids", released, "error", err.Error())
	}
}

func (s *Service) GroupSnapshot(ctx context.Context, storageGroupID uint64) (models.GroupSnapshot, error) {
	g, err := s.repo.GetStorageGroup(ctx, storageGroupID)
	if err != nil {
		return models.GroupSnapshot{}, err
	}
	return models.SnapshotOf(g), nil
}

func (s *Service) CreateStorageGroup(ctx context.Context, in models.StorageGroupCreateInput) (*models.StorageGroup, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, errors.Wrap(models.ErrValidation, "name is required")
	}
	if in.LockerCount < 0 {
		return nil, errors.Wrap(models.ErrValidation, "lockerCount must not be negative")
	}
	if err := validateCoords(in.Longitude, in.Latitude); err != nil {
		return nil, err
	}
	return s.repo.CreateStorageGroup(ctx, in)
}

func (s *Service) PatchStorageGroup(ctx context.Context, id uint64, p models.StorageGroupPatch) (*models.StorageGroup, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, errors.Wrap(models.ErrValidation, "name must not be empty")
	}
	lon, lat := 0.0, 0.0
	if p.Longitude != nil {
		lon = *p.Longitude
	}
	if p.Latitude != nil {
		lat = *p.Latitude
	}
	if err := validateCoords(lon, lat); err != nil {
		return nil, err
	}
	return s.repo.PatchStorageGroup(ctx, id, p)
}

func (s *Service) GetStorageGroup(ctx context.Context, id uint64) (*models.StorageGroup, error) {
	return s.repo.GetStorageGroup(ctx, id)
}

func (s *Service) ListStorageGroups(ctx context.Context) ([]*models.StorageGroup, error) {
	return s.repo.ListStorageGroups(ctx)
}

// DeleteStorageGroup removes the group and, in the same transaction, its lockers.
func (s *Service) DeleteStorageGroup(ctx context.Context, id uint64) error {
	n, err := s.repo.DeleteStorageGroup(ctx, id)
	if err != nil {
		return err
	}
	slog.Info("storage group deleted", "storage_group_id", id, "lockers_removed", n)
	return nil
}

func (s *Service) CreateLocker(ctx context.Context, storageGroupID uint64) (*models.Locker, error) {
	if storageGroupID == 0 {
		return nil, errors.Wrap(models.ErrValidation, "storageGroupId is required")
	}
	return s.repo.CreateLocker(ctx, storageGroupID)
}

func (s *Service) PatchLocker(ctx context.Context, id uint64, p models.LockerPatch) (*models.Locker, error) {
	return s.repo.PatchLocker(ctx, id, p)
}

func (s *Service) GetLocker(ctx context.Context, id uint64) (*models.Locker, error) {
	return s.repo.GetLocker(ctx, id)
}

func (s *Service) ListLockers(ctx context.Context, storageGroupID *uint64) ([]*models.Locker, error) {
	return s.repo.ListLockers(ctx, storageGroupID)
}

func (s *Service) DeleteLocker(ctx context.Context, id uint64) error {
	return s.repo.DeleteLocker(ctx, id)
}

func validateCoords(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return errors.Wrap(models.ErrValidation, "coordinates must be finite")
	}
	return nil
}
