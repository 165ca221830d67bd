package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ShareBox/internal/models"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	calls chan struct{}
}

func (r *countingRepo) SweepCommodities(ctx context.Context, afterID uint64, limit int, at time.Time, evaluate models.EvaluateFunc) (models.SweepBatch, error) {
	select {
	case r.calls <- struct{}{}:
	default:
	}
	return models.SweepBatch{LastID: afterID}, nil
}

func TestSweeper_Run_StopsOnContextCancel(t *testing.T) {
	repo := &countingRepo{calls: make(chan struct{}, 100)}
	sw := New(repo, nil, nil).WithSettings(5*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	err := sw.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.GreaterOrEqual(t, len(repo.calls), 1)
}

func TestSweeper_Trigger(t *testing.T) {
	repo := &countingRepo{calls: make(chan struct{}, 100)}
	sw := New(repo, nil, nil).WithSettings(time.Hour, 10)

	sw.Start(context.Background())
	defer sw.Stop()

	sw.Trigger()
	select {
	case <-repo.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered pass did not run")
	}
	require.NotNil(t, sw.Stats().LastTriggerAt)
}

func TestSweeper_StartStop(t *testing.T) {
	repo := &countingRepo{calls: make(chan struct{}, 100)}
	sw := New(repo, nil, nil).WithSettings(5*time.Millisecond, 10)

	sw.Start(context.Background())
	sw.Start(context.Background())
	require.Eventually(t, func() bool { return sw.Stats().TotalPasses > 0 }, 2*time.Second, 5*time.Millisecond)

	sw.Stop()
	sw.Stop()
	passes := sw.Stats().TotalPasses
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, passes, sw.Stats().TotalPasses)
	require.Equal(t, int64(0), sw.Stats().InFlight)
}

func TestWithSettings_IgnoresNonPositive(t *testing.T) {
	sw := New(&countingRepo{calls: make(chan struct{}, 1)}, nil, nil).WithSettings(0, -1)
	require.Equal(t, time.Second, sw.Interval())
	require.Equal(t, 500, sw.BatchSize())
}
