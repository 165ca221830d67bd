package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShareBox/internal/broker/messages"
	"github.com/BearBump/ShareBox/internal/lifecycle"
	"github.com/BearBump/ShareBox/internal/metrics"
	"github.com/BearBump/ShareBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const SourceSweeper = "sweeper"

type Repository interface {
	SweepCommodities(ctx context.Context, afterID uint64, limit int, at time.Time, evaluate models.EvaluateFunc) (models.SweepBatch, error)
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, events ...messages.CommodityStatusChanged) error
}

type Lease interface {
	Acquire(ctx context.Context) (bool, error)
}

// Sweeper periodically applies the time-driven lifecycle rules to every commodity.
type Sweeper struct {
	repo  Repository
	pub   Publisher
	lease Lease

	interval       time.Duration
	batchSize      int
	publishRetries int
	now            func() time.Time

	triggerCh chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	startedAtUnixNano   int64
	lastPassUnixNano    atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalPasses         atomic.Int64
	totalSkipped        atomic.Int64
	totalScanned        atomic.Int64
	totalTransitions    atomic.Int64
	totalItemErrors     atomic.Int64
	totalPublishErrors  atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

// New builds a sweeper. pub and lease may be nil: events are then not published and every
// replica sweeps.
func New(repo Repository, pub Publisher, lease Lease) *Sweeper {
	return &Sweeper{
		repo:              repo,
		pub:               pub,
		lease:             lease,
		interval:          time.Second,
		batchSize:         500,
		publishRetries:    3,
		now:               func() time.Time { return time.Now().UTC() },
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (s *Sweeper) WithSettings(interval time.Duration, batchSize int) *Sweeper {
	if interval > 0 {
		s.interval = interval
	}
	if batchSize > 0 {
		s.batchSize = batchSize
	}
	return s
}

func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Sweeper) Interval() time.Duration { return s.interval }
func (s *Sweeper) BatchSize() int          { return s.batchSize }

// Trigger forces an immediate pass (best-effort, non-blocking).
func (s *Sweeper) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt          time.Time  `json:"startedAt"`
	LastPassAt         *time.Time `json:"lastPassAt,omitempty"`
	LastTriggerAt      *time.Time `json:"lastTriggerAt,omitempty"`
	TotalPasses        int64      `json:"totalPasses"`
	TotalSkipped       int64      `json:"totalSkipped"`
	TotalScanned       int64      `json:"totalScanned"`
	TotalTransitions   int64      `json:"totalTransitions"`
	TotalItemErrors    int64      `json:"totalItemErrors"`
	TotalPublishErrors int64      `json:"totalPublishErrors"`
	InFlight           int64      `json:"inFlight"`
	LastError          string     `json:"lastError,omitempty"`
}

func (s *Sweeper) Stats() Stats {
	st := Stats{
		StartedAt:          time.Unix(0, s.startedAtUnixNano).UTC(),
		TotalPasses:        s.totalPasses.Load(),
		TotalSkipped:       s.totalSkipped.Load(),
		TotalScanned:       s.totalScanned.Load(),
		TotalTransitions:   s.totalTransitions.Load(),
		TotalItemErrors:    s.totalItemErrors.Load(),
		TotalPublishErrors: s.totalPublishErrors.Load(),
		InFlight:           s.inFlight.Load(),
	}
	if n := s.lastPassUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastPassAt = &t
	}
	if n := s.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

// Run sweeps on every tick and trigger until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.runOnce(ctx)
		case <-s.triggerCh:
			s.runOnce(ctx)
		}
	}
}

// Start runs the sweeper in the background. A second Start without Stop is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
}

// Stop cancels the loop and waits for the in-flight chunk to roll back.
func (s *Sweeper) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx)
		if err != nil {
			s.setLastError(err)
			slog.Error("sweep lease", "error", err.Error())
			return
		}
		if !ok {
			s.totalSkipped.Add(1)
			return
		}
	}

	if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("sweep pass", "error", err.Error())
	}
}

// Pass summarizes one sweep over all commodities.
type Pass struct {
	At      time.Time
	Chunks  int
	Scanned int
	Changes []models.StatusChange
	Failed  int
}

// Sweep runs one full pass: now is read once, then commodities are walked in id order one chunk
// per transaction. A chunk error stops the pass; chunks already committed stay committed.
func (s *Sweeper) Sweep(ctx context.Context) (Pass, error) {
	start := time.Now()
	p := Pass{At: s.now()}
	s.lastPassUnixNano.Store(time.Now().UTC().UnixNano())
	s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	evaluate := lifecycle.Evaluator(p.At)
	var afterID uint64
	for {
		if err := ctx.Err(); err != nil {
			return p, err
		}

		batch, err := s.repo.SweepCommodities(ctx, afterID, s.batchSize, p.At, evaluate)
		if err != nil {
			s.setLastError(err)
			return p, errors.Wrapf(err, "sweep chunk after id %d", afterID)
		}

		p.Chunks++
		p.Scanned += batch.Scanned
		p.Failed += batch.Failed
		p.Changes = append(p.Changes, batch.Changes...)
		s.totalScanned.Add(int64(batch.Scanned))
		s.totalTransitions.Add(int64(len(batch.Changes)))
		if batch.Failed > 0 {
			s.totalItemErrors.Add(int64(batch.Failed))
			metrics.SweepItemErrorsTotal.Add(float64(batch.Failed))
		}
		for _, ch := range batch.Changes {
			metrics.StatusTransitionsTotal.WithLabelValues(SourceSweeper, ch.To).Inc()
		}

		s.publish(ctx, batch.Changes)

		if batch.Scanned < s.batchSize {
			break
		}
		afterID = batch.LastID
	}

	s.totalPasses.Add(1)
	metrics.SweepPassesTotal.Inc()
	metrics.SweepDurationSeconds.Observe(time.Since(start).Seconds())
	if len(p.Changes) > 0 || p.Failed > 0 {
		slog.Info("sweep pass", "scanned", p.Scanned, "transitions", len(p.Changes), "failed", p.Failed, "chunks", p.Chunks)
	}
	return p, nil
}

// publish is best effort: a committed transition is never undone because the broker is down.
func (s *Sweeper) publish(ctx context.Context, changes []models.StatusChange) {
	if s.pub == nil || len(changes) == 0 {
		return
	}

	events := make([]messages.CommodityStatusChanged, 0, len(changes))
	for _, ch := range changes {
		events = append(events, messages.CommodityStatusChanged{
			EventID:     uuid.NewString(),
			CommodityID: ch.CommodityID,
			From:        ch.From,
			To:          ch.To,
			Source:      SourceSweeper,
			ChangedAt:   ch.At,
		})
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = s.pub.PublishStatusChanged(ctx, events...); err == nil {
			return
		}
		if attempt >= s.publishRetries || ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(50*attempt) * time.Millisecond):
		}
	}

	s.totalPublishErrors.Add(1)
	metrics.EventPublishErrorsTotal.Add(float64(len(events)))
	s.setLastError(err)
	slog.Error("publish status changes", "count", len(events), "error", err.Error())
}

func (s *Sweeper) setLastError(err error) {
	s.lastErrorMu.Lock()
	s.lastError = err.Error()
	s.lastErrorMu.Unlock()
}
