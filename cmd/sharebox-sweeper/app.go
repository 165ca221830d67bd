package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ShareBox/config"
	"github.com/BearBump/ShareBox/internal/broker/kafka"
	"github.com/BearBump/ShareBox/internal/cache/rediscache"
	"github.com/BearBump/ShareBox/internal/services/sweeper"
	"github.com/BearBump/ShareBox/internal/storage/pgshare"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const sweepLeaseKey = "sharebox:sweeper:lease"

type pinger interface {
	Ping(ctx context.Context) error
}

type sweeperFactories struct {
	newStorage   func(cfg *config.Config) (repo sweeper.Repository, closeFn func(), err error)
	newPublisher func(cfg *config.Config) (pub sweeper.Publisher, closeFn func())
	newLease     func(cfg *config.Config) (lease sweeper.Lease, closeFn func())
}

func defaultSweeperFactories() sweeperFactories {
	return sweeperFactories{
		newStorage: func(cfg *config.Config) (sweeper.Repository, func(), error) {
			if cfg.Database.Host == "" {
				return nil, nil, errors.New("database.host is required for the sweeper")
			}
			st, err := pgshare.New(cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newPublisher: func(cfg *config.Config) (sweeper.Publisher, func()) {
			brokers := cfg.Kafka.Brokers()
			if brokers == nil {
				return nil, nil
			}
			p := kafka.NewProducer(brokers)
			return kafka.NewStatusPublisher(p, statusTopic(cfg)), func() { _ = p.Close() }
		},
		newLease: func(cfg *config.Config) (sweeper.Lease, func()) {
			addr := cfg.Redis.Addr()
			if addr == "" {
				return nil, nil
			}
			ttl := cfg.ShareBox.SweepLease()
			if ttl <= 0 {
				ttl = 30 * time.Second
			}
			l := rediscache.NewLease(addr, sweepLeaseKey, ttl)
			return l, func() {
				_ = l.Release(context.Background())
				_ = l.Close()
			}
		},
	}
}

func statusTopic(cfg *config.Config) string {
	if cfg.Kafka.CommodityStatusTopicName == "" {
		return "commodity.status_changed"
	}
	return cfg.Kafka.CommodityStatusTopicName
}

// RunSweeper wires the sweeper from config and runs it together with its HTTP surface until ctx
// is cancelled.
func RunSweeper(ctx context.Context, cfg *config.Config, f sweeperFactories, opts sweeperHTTPOpts) error {
	repo, closeRepo, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeRepo != nil {
		defer closeRepo()
	}

	pub, closePub := f.newPublisher(cfg)
	if closePub != nil {
		defer closePub()
	}
	if pub == nil {
		slog.Warn("kafka is not configured, status events are not published")
	}

	lease, closeLease := f.newLease(cfg)
	if closeLease != nil {
		defer closeLease()
	}
	if lease == nil {
		slog.Warn("redis is not configured, sweeping without a lease")
	}

	sw := sweeper.New(repo, pub, lease).
		WithSettings(cfg.ShareBox.SweepInterval(), cfg.ShareBox.SweepBatchSize)
	slog.Info("sweeper started", "interval", sw.Interval().String(), "batch_size", sw.BatchSize())

	opts.sweeper = sw
	opts.cfg = cfg
	if p, ok := repo.(pinger); ok {
		opts.ready = p.Ping
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sw.Run(ctx) })
	g.Go(func() error { return runSweeperHTTPServer(ctx, opts) })
	return g.Wait()
}
