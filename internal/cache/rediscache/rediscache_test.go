package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLease_SingleHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewLease(mr.Addr(), "sharebox:sweeper:lease", 5*time.Second)
	b := NewLease(mr.Addr(), "sharebox:sweeper:lease", 5*time.Second)

	ctx := context.Background()
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// владелец продлевает, второй реплике отказ
	ok, err = a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// чужой release ничего не снимает
	require.NoError(t, b.Release(ctx))
	require.True(t, mr.Exists("sharebox:sweeper:lease"))

	require.NoError(t, a.Release(ctx))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLease_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	a := NewLease(mr.Addr(), "lease", time.Second)
	b := NewLease(mr.Addr(), "lease", time.Second)

	ctx := context.Background()
	ok, _ := a.Acquire(ctx)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err := b.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}
