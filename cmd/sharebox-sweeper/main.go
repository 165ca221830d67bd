package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ShareBox/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := sweeperHTTPOpts{
		httpAddr:    cfg.ShareBox.WorkerHTTPAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	}
	if err := RunSweeper(ctx, cfg, defaultSweeperFactories(), opts); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("sharebox-sweeper stopped", "error", err.Error())
		os.Exit(1)
	}
}
