package memshare

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/ShareBox/internal/lifecycle"
	"github.com/BearBump/ShareBox/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newCommodity(groupID uint64, now time.Time) *models.Commodity {
	return lifecycle.New(models.CommodityCreateInput{
		GiverID:        "u1",
		StorageGroupID: groupID,
		Name:           "Kettle",
		Category:       "kitchen",
		Condition:      "used",
	}, now, lifecycle.DefaultDurations())
}

func TestCreateCommodity_AllocatesLowestEmptyLocker(t *testing.T) {
	ctx := context.Background()
	st := New().WithClock(func() time.Time { return t0 })

	g, err := st.CreateStorageGroup(ctx, models.StorageGroupCreateInput{Name: "A", LockerCount: 2})
	require.NoError(t, err)
	require.Equal(t, 2, models.SnapshotOf(g).Available)

	c, lockerID, err := st.CreateCommodity(ctx, newCommodity(g.ID, t0))
	require.NoError(t, err)
	require.Equal(t, g.Lockers[0].ID, lockerID)
	require.NotNil(t, c.Images)

	got, err := st.GetStorageGroup(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, 1, models.SnapshotOf(got).Available)
	require.Equal(t, c.ID, *got.Lockers[0].CommodityID)
}

func TestCreateCommodity_FullGroupLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	st := New()

	g, err := st.CreateStorageGroup(ctx, models.StorageGroupCreateInput{Name: "A", LockerCount: 1})
	require.NoError(t, err)

	_, _, err = st.CreateCommodity(ctx, newCommodity(g.ID, t0))
	require.NoError(t, err)

	_, _, err = st.CreateCommodity(ctx, newCommodity(g.ID, t0))
	require.ErrorIs(t, err, models.ErrCapacityExceeded)

	all, err := st.ListCommodities(ctx, models.CommodityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, _, err = st.CreateCommodity(ctx, newCommodity(99, t0))
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateCommodity_Concurrent(t *testing.T) {
	ctx := context.Background()
	st := New()

	g, err := st.CreateStorageGroup(ctx, models.StorageGroupCreateInput{Name: "A", LockerCount: 5})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := st.CreateCommodity(ctx, newCommodity(g.ID, t0))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, models.ErrCapacityExceeded) {
				full++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5, ok)
	require.Equal(t, 15, full)
}

func TestMutateCommodity(t *testing.T) {
	ctx := context.Background()
	st := New()

	g, _ := st.CreateStorageGroup(ctx, models.StorageGroupCreateInput{Name: "A", LockerCount: 1})
	c, lockerID, err := st.CreateCommodity(ctx, newCommodity(g.ID, t0))
	require.NoError(t, err)

	// ошибка fn не должна менять сохранённое состояние
	_, _, err = st.MutateCommodity(ctx, c.ID, func(c *models.Commodity) (bool, error) {
		c.Name = "changed"
		return false, errors.Wrap(models.ErrValidation, "nope")
	})
	require.ErrorIs(t, err, models.ErrValidation)
	stored, _ := st.GetCommodity(ctx, c.ID)
	require.Equal(t, "Kettle", stored.Name)

	updated, released, err := st.MutateCommodity(ctx, c.ID, func(c *models.Commodity) (bool, error) {
		c.Status = models.CommodityStatusFinished
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, models.CommodityStatusFinished, updated.Status)
	require.Equal(t, []uint64{lockerID}, released)

	_, _, err = st.MutateCommodity(ctx, 404, func(*models.Commodity) (bool, error) { return false, nil })
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestLockersAndGroups(t *testing.T) {
	ctx := context.Background()
	st := New()

	a, _ := st.CreateStorageGroup(ctx, models.StorageGroupCreateInput{Name: "A"})
	b, _ := st.CreateStorageGroup(ctx, models.StorageGroupCreateInput{Name: "B"})

	_, err := st.CreateLocker(ctx, 77)
	require.ErrorIs(t, err, models.ErrNotFound)

	l1, err := st.CreateLocker(ctx, a.ID)
	require.NoError(t, err)
	l2, err := st.CreateLocker(ctx, a.ID)
	require.NoError(t, err)

	_, err = st.PatchLocker(ctx, l1.ID, models.LockerPatch{StorageGroupID: &b.ID})
	require.ErrorIs(t, err, models.ErrValidation)

	c, held, err := st.CreateCommodity(ctx, newCommodity(a.ID, t0))
	require.NoError(t, err)
	require.Equal(t, l1.ID, held)

	_, err = st.PatchLocker(ctx, l2.ID, models.LockerPatch{CommodityID: &c.ID})
	require.ErrorIs(t, err, models.ErrConflict)

	_, err = st.AllocateLocker(ctx, a.ID, c.ID)
	require.ErrorIs(t, err, models.ErrConflict)

	require.ErrorIs(t, st.DeleteLocker(ctx, l1.ID), models.ErrConflict)

	_, err = st.DeleteStorageGroup(ctx, a.ID)
	require.ErrorIs(t, err, models.ErrConflict)

	released, err := st.DeleteCommodity(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, []uint64{l1.ID}, released)

	n, err := st.DeleteStorageGroup(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	lockers, err := st.ListLockers(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, lockers)
}

func TestSweepCommodities_Chunks(t *testing.T) {
	ctx := context.Background()
	st := New()

	g, _ := st.CreateStorageGroup(ctx, models.StorageGroupCreateInput{Name: "A", LockerCount: 3})
	for i := 0; i < 3; i++ {
		_, _, err := st.CreateCommodity(ctx, newCommodity(g.ID, t0))
		require.NoError(t, err)
	}

	at := t0.Add(8 * 24 * time.Hour)
	b, err := st.SweepCommodities(ctx, 0, 2, at, lifecycle.Evaluator(at))
	require.NoError(t, err)
	require.Equal(t, 2, b.Scanned)
	require.Equal(t, uint64(2), b.LastID)
	require.Len(t, b.Changes, 2)
	require.Equal(t, models.CommodityStatusExpired, b.Changes[0].To)

	b, err = st.SweepCommodities(ctx, b.LastID, 2, at, lifecycle.Evaluator(at))
	require.NoError(t, err)
	require.Equal(t, 1, b.Scanned)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = st.SweepCommodities(cancelled, 0, 2, at, lifecycle.Evaluator(at))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	st := New()

	_, _ = st.AppendRecord(ctx, models.RecordCreateInput{UserID: "u1", Reward: 4})
	_, _ = st.AppendRecord(ctx, models.RecordCreateInput{UserID: "u1", Reward: -1, Reason: models.RecordReasonReport})
	_, _ = st.AppendRecord(ctx, models.RecordCreateInput{UserID: "u2", Reward: 1})

	stats, err := st.RecordStats(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, models.RecordStats{RecordCount: 2, RewardSum: 3, ReportCount: 1}, stats)

	u := "u2"
	recs, err := st.ListRecords(ctx, &u)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
