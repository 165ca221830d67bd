package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	app := mustBootstrapShareAPI()
	defer app.Close()

	if err := app.Run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("sharebox-api stopped", "error", err.Error())
		os.Exit(1)
	}
}
