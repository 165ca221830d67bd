package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/ShareBox/internal/api/shareapi"
	"github.com/BearBump/ShareBox/internal/broker/messages"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
)

type shareAPIOpts struct {
	httpAddr    string
	swaggerPath string

	topic         string
	consumerGroup string
	cacheTTL      time.Duration

	onListen func(httpAddr string)
}

type statusConsumer interface {
	ConsumeStatusChanged(ctx context.Context, handler func(ctx context.Context, ev messages.CommodityStatusChanged) error) error
}

type shareAPIDeps struct {
	commodities shareapi.CommodityService
	lockers     shareapi.LockerService
	records     shareapi.RecordService
	consumer    statusConsumer // nil: kafka disabled
	ready       func(ctx context.Context) error
}

func runShareAPI(ctx context.Context, opts shareAPIOpts, deps shareAPIDeps) error {
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(ctx, lis, newRouter(opts, deps))
	})

	if deps.consumer != nil {
		g.Go(func() error {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			return deps.consumer.ConsumeStatusChanged(ctx, func(ctx context.Context, ev messages.CommodityStatusChanged) error {
				// Кэш вторичен: ошибка обновления не должна останавливать чтение топика.
				if err := deps.commodities.ApplyStatusChanged(ctx, ev); err != nil {
					slog.Warn("apply status event", "commodity_id", ev.CommodityID, "error", err.Error())
				}
				return nil
			})
		})
	}

	return g.Wait()
}

func newRouter(opts shareAPIOpts, deps shareAPIDeps) http.Handler {
	api := shareapi.New(deps.commodities, deps.lockers, deps.records)

	r := chi.NewRouter()
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.ready != nil {
			if err := deps.ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"not ready"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if opts.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.swaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/swagger.json")))
	}

	r.Mount("/", api.Routes())
	return r
}

func serveHTTP(ctx context.Context, lis net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("HTTP server listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
