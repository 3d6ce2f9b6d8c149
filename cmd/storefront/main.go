package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"storefront-api/internal/config"
)

func main() {
	cfg := config.LoadClientConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		slog.Error("storefront failed", "error", err)
		os.Exit(1)
	}
}
