package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShareBox/config"
	"github.com/BearBump/ShareBox/internal/broker/kafka"
	"github.com/BearBump/ShareBox/internal/cache"
	"github.com/BearBump/ShareBox/internal/cache/rediscache"
	"github.com/BearBump/ShareBox/internal/lifecycle"
	"github.com/BearBump/ShareBox/internal/search"
	"github.com/BearBump/ShareBox/internal/services/commodities"
	"github.com/BearBump/ShareBox/internal/services/lockers"
	"github.com/BearBump/ShareBox/internal/services/records"
	"github.com/BearBump/ShareBox/internal/services/sweeper"
	"github.com/BearBump/ShareBox/internal/storage/memshare"
	"github.com/BearBump/ShareBox/internal/storage/pgshare"
)

// store is what both entity stores offer to the services.
type store interface {
	commodities.Repository
	lockers.Repository
	records.Repository
	Ping(ctx context.Context) error
	Close()
}

type shareAPIApp struct {
	ctx     context.Context
	cancel  context.CancelFunc
	opts    shareAPIOpts
	deps    shareAPIDeps
	sweeper *sweeper.Sweeper // memory store only
	closers []func()
}

func mustBootstrapShareAPI() *shareAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	app := &shareAPIApp{opts: apiOptsFromConfig(cfg, os.Getenv("swaggerPath"))}

	app.ctx, app.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var st store
	if cfg.Database.Host == "" {
		slog.Warn("database.host is empty, using in-memory store with an in-process sweeper")
		mem := memshare.New()
		st = mem
		app.closers = append(app.closers, st.Close)
		app.sweeper = startMemorySweeper(app.ctx, mem, cfg)
		app.closers = append(app.closers, app.sweeper.Stop)
	} else {
		st = mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)
		app.closers = append(app.closers, st.Close)
	}

	var bc cache.BytesCache
	if addr := cfg.Redis.Addr(); addr != "" {
		rc := rediscache.New(addr)
		bc = rc
		app.closers = append(app.closers, func() { _ = rc.Close() })
	}

	durations := lifecycle.Durations{
		Lifetime:      cfg.ShareBox.CommodityLifetime(),
		GiveWindow:    cfg.ShareBox.GiveWindow(),
		ReceiveWindow: cfg.ShareBox.ReceiveWindow(),
	}.WithDefaults()

	csvc := commodities.New(st, bc, app.opts.cacheTTL, search.New(newTokenizer(cfg.ShareBox.SearchDictionaryPath)), durations)
	app.deps = shareAPIDeps{
		commodities: csvc,
		lockers:     lockers.New(st),
		records:     records.New(st),
		ready:       st.Ping,
	}

	if brokers := cfg.Kafka.Brokers(); brokers != nil {
		consumer := kafka.NewConsumer(brokers, app.opts.topic, app.opts.consumerGroup)
		app.deps.consumer = consumer
		app.closers = append(app.closers, func() { _ = consumer.Close() })
	} else {
		slog.Warn("kafka is not configured, commodity cache is refreshed only by the API")
	}
	return app
}

func apiOptsFromConfig(cfg *config.Config, swaggerPath string) shareAPIOpts {
	opts := shareAPIOpts{
		httpAddr:      cfg.ShareBox.HTTPAddr,
		swaggerPath:   swaggerPath,
		topic:         cfg.Kafka.CommodityStatusTopicName,
		consumerGroup: cfg.ShareBox.KafkaConsumerGroup,
		cacheTTL:      cfg.ShareBox.CommodityCacheTTL(),
	}
	if opts.httpAddr == "" {
		opts.httpAddr = ":8080"
	}
	if opts.topic == "" {
		opts.topic = "commodity.status_changed"
	}
	if opts.consumerGroup == "" {
		opts.consumerGroup = "sharebox-api"
	}
	if opts.cacheTTL <= 0 {
		opts.cacheTTL = 10 * time.Minute
	}
	return opts
}

// startMemorySweeper runs the expiration sweep in this process. The in-memory store is not
// shared with a sweeper binary.
func startMemorySweeper(ctx context.Context, st *memshare.Storage, cfg *config.Config) *sweeper.Sweeper {
	sw := sweeper.New(st, nil, nil).
		WithSettings(cfg.ShareBox.SweepInterval(), cfg.ShareBox.SweepBatchSize)
	sw.Start(ctx)
	slog.Info("in-process sweeper started", "interval", sw.Interval().String(), "batch_size", sw.BatchSize())
	return sw
}

// newTokenizer prefers gse segmentation and falls back to whitespace splitting when the
// dictionary cannot be loaded.
func newTokenizer(dictPath string) search.Tokenizer {
	var files []string
	if dictPath != "" {
		files = append(files, dictPath)
	}
	t, err := search.NewSegmentTokenizer(files...)
	if err != nil {
		slog.Warn("segmenter unavailable, falling back to plain tokenizer", "error", err.Error())
		return search.FieldsTokenizer{}
	}
	return t
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgshare.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgshare.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *shareAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *shareAPIApp) Run() error {
	return runShareAPI(a.ctx, a.opts, a.deps)
}
