package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockkidz/internal/account"
	"stockkidz/internal/api"
	"stockkidz/internal/config"
	"stockkidz/internal/db"
	"stockkidz/internal/market"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
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

	accounts := account.NewStore(pool, logger)
	marketSvc := market.NewService(pool, logger)

	if err := accounts.EnsureSchema(ctx); err != nil {
		logger.Error("account schema init failed", "err", err)
		os.Exit(1)
	}
	if err := marketSvc.EnsureSchema(ctx); err != nil {
		logger.Error("market schema init failed", "err", err)
		os.Exit(1)
	}
	if cfg.StartupSeedStocks {
		if err := marketSvc.SeedCatalog(ctx); err != nil {
			logger.Error("seed catalog failed", "err", err)
			os.Exit(1)
		}
	}

	server := api.New(cfg, logger, accounts, marketSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("stockkidz api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
