package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stockkidz/internal/config"
	"stockkidz/internal/db"
	"stockkidz/internal/market"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := market.NewService(pool, logger)
	if err := svc.EnsureSchema(ctx); err != nil {
		logger.Error("market schema init failed", "err", err)
		os.Exit(1)
	}
	if err := svc.SeedCatalog(ctx); err != nil {
		logger.Error("seed catalog failed", "err", err)
		os.Exit(1)
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("SKZ_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := svc.RunPriceTick(ctx); err != nil {
			logger.Error("price tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.PriceTickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.PriceTickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := svc.RunPriceTick(ctx); err != nil {
				logger.Error("price tick failed", "err", err)
				continue
			}
			logger.Info("price tick complete")
		}
	}
}
