package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestSnapshotOf(t *testing.T) {
	g := &StorageGroup{ID: 3, Lockers: []*Locker{
		{ID: 1, StorageGroupID: 3},
		{ID: 2, StorageGroupID: 3, CommodityID: ptr(uint64(9))},
		{ID: 3, StorageGroupID: 3},
	}}
	s := SnapshotOf(g)
	require.Equal(t, uint64(3), s.StorageGroupID)
	require.Equal(t, 3, s.Total)
	require.Equal(t, 2, s.Available)

	empty := SnapshotOf(&StorageGroup{ID: 4})
	require.Zero(t, empty.Total)
	require.Zero(t, empty.Available)
}

func TestExpireSeconds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.Nil(t, ExpireSeconds(nil, now))

	later := now.Add(90 * time.Second)
	require.InDelta(t, 90, *ExpireSeconds(&later, now), 1e-9)

	earlier := now.Add(-time.Minute)
	require.InDelta(t, -60, *ExpireSeconds(&earlier, now), 1e-9)
}

func TestCommodityFilter_Matches(t *testing.T) {
	c := &Commodity{GiverID: "g", StorageGroupID: 2, Status: CommodityStatusGiving}

	require.True(t, CommodityFilter{}.Matches(c))
	require.True(t, CommodityFilter{Status: ptr(CommodityStatusGiving), GiverID: ptr("g")}.Matches(c))
	require.False(t, CommodityFilter{Status: ptr(CommodityStatusGiving), GiverID: ptr("other")}.Matches(c))
	require.False(t, CommodityFilter{StorageGroupID: ptr(uint64(5))}.Matches(c))
	// без получателя фильтр по receiverId не проходит
	require.False(t, CommodityFilter{ReceiverID: ptr("r")}.Matches(c))

	c.ReceiverID = ptr("r")
	require.True(t, CommodityFilter{ReceiverID: ptr("r")}.Matches(c))
}

func TestCommodityClone(t *testing.T) {
	require.Nil(t, (*Commodity)(nil).Clone())

	rx := time.Now()
	c := &Commodity{ID: 1, ReceiverID: ptr("r"), ReceiveExpireTime: &rx, Images: []string{"a"}}
	cp := c.Clone()
	*cp.ReceiverID = "x"
	cp.Images[0] = "b"
	*cp.ReceiveExpireTime = rx.Add(time.Hour)

	require.Equal(t, "r", *c.ReceiverID)
	require.Equal(t, "a", c.Images[0])
	require.True(t, c.ReceiveExpireTime.Equal(rx))
}

func TestIsCommodityStatus(t *testing.T) {
	for _, s := range []string{"giving", "pending", "receiving", "giveExpired", "expired", "finished"} {
		require.True(t, IsCommodityStatus(s), s)
	}
	require.False(t, IsCommodityStatus("lost"))
	require.False(t, IsCommodityStatus(""))
}
