package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/ShareBox/config"
	"github.com/BearBump/ShareBox/internal/broker/kafka"
	"github.com/BearBump/ShareBox/internal/cache/rediscache"
	"github.com/BearBump/ShareBox/internal/models"
	"github.com/BearBump/ShareBox/internal/services/sweeper"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct{ pingErr error }

func (r *fakeRepo) Ping(ctx context.Context) error { return r.pingErr }

func (r *fakeRepo) SweepCommodities(ctx context.Context, afterID uint64, limit int, at time.Time, evaluate models.EvaluateFunc) (models.SweepBatch, error) {
	return models.SweepBatch{}, nil
}

func TestDefaultSweeperFactories(t *testing.T) {
	f := defaultSweeperFactories()

	_, _, err := f.newStorage(&config.Config{})
	require.Error(t, err)

	pub, closePub := f.newPublisher(&config.Config{})
	require.Nil(t, pub)
	require.Nil(t, closePub)

	lease, closeLease := f.newLease(&config.Config{})
	require.Nil(t, lease)
	require.Nil(t, closeLease)

	cfg := &config.Config{
		Kafka: config.KafkaConfig{Host: "localhost", Port: 9092},
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
	}
	pub, closePub = f.newPublisher(cfg)
	_, ok := pub.(*kafka.StatusPublisher)
	require.True(t, ok)
	closePub()

	lease, _ = f.newLease(cfg)
	_, ok = lease.(*rediscache.Lease)
	require.True(t, ok)
}

func TestStatusTopic(t *testing.T) {
	require.Equal(t, "commodity.status_changed", statusTopic(&config.Config{}))
	require.Equal(t, "x", statusTopic(&config.Config{Kafka: config.KafkaConfig{CommodityStatusTopicName: "x"}}))
}

func TestRunSweeper_ContextCanceled(t *testing.T) {
	calledClose := false
	f := sweeperFactories{
		newStorage: func(cfg *config.Config) (sweeper.Repository, func(), error) {
			return &fakeRepo{}, func() { calledClose = true }, nil
		},
		newPublisher: func(cfg *config.Config) (sweeper.Publisher, func()) { return nil, nil },
		newLease:     func(cfg *config.Config) (sweeper.Lease, func()) { return nil, nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunSweeper(ctx, &config.Config{}, f, sweeperHTTPOpts{httpAddr: "127.0.0.1:0"})
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, calledClose)
}

func TestSweeperHTTP(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	s := sweeper.New(&fakeRepo{}, nil, nil).WithSettings(time.Hour, 50)
	cfg := &config.Config{ShareBox: config.ShareBoxConfig{SweepBatchSize: 50}}
	srv := httptest.NewServer(sweeperRouter(sweeperHTTPOpts{swaggerPath: sw, sweeper: s, cfg: cfg}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/trigger", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	var st sweeper.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	require.NotNil(t, st.LastTriggerAt)

	resp, err = http.Get(srv.URL + "/config")
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	require.EqualValues(t, 50, out["effectiveBatchSize"])
	require.Equal(t, "commodity.status_changed", out["statusTopic"])

	resp, err = http.Get(srv.URL + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Contains(t, string(body), `"swagger"`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunSweeperHTTPServer_MissingSwagger(t *testing.T) {
	err := runSweeperHTTPServer(context.Background(), sweeperHTTPOpts{
		httpAddr:    "127.0.0.1:0",
		swaggerPath: filepath.Join(t.TempDir(), "nope.json"),
	})
	require.Error(t, err)
}

func TestSweeperHTTP_ReadyzFollowsStore(t *testing.T) {
	repo := &fakeRepo{}
	srv := httptest.NewServer(sweeperRouter(sweeperHTTPOpts{ready: repo.Ping}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	repo.pingErr = errors.New("pg down")
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRunSweeper_WiresStorePing(t *testing.T) {
	repo := &fakeRepo{pingErr: errors.New("pg down")}
	f := sweeperFactories{
		newStorage:   func(cfg *config.Config) (sweeper.Repository, func(), error) { return repo, nil, nil },
		newPublisher: func(cfg *config.Config) (sweeper.Publisher, func()) { return nil, nil },
		newLease:     func(cfg *config.Config) (sweeper.Lease, func()) { return nil, nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunSweeper(ctx, &config.Config{}, f, sweeperHTTPOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
		})
	}()

	resp, err := http.Get("http://" + <-addrCh + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}
