package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hiring-pipeline/internal/archive"
	"hiring-pipeline/internal/cache"
	"hiring-pipeline/internal/config"
	"hiring-pipeline/internal/projector"
	"hiring-pipeline/internal/store"
	"hiring-pipeline/internal/telemetry"
	"hiring-pipeline/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	dash := cache.NewDashboard(redisClient, cfg.SnapshotTTL)
	proj := projector.New(st)

	uploader, err := archive.NewUploader(ctx, cfg)
	if err != nil {
		log.Fatalf("init archive uploader: %v", err)
	}
	archiver := archive.New(st, uploader, cfg.ArchiveAfter, cfg.ArchiveBatchSize, logger)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("refresher started",
		zap.Duration("refresh_interval", cfg.RefreshInterval),
		zap.Duration("archive_interval", cfg.ArchiveInterval),
	)
	refresher := worker.NewRefresher(cfg, proj, dash, archiver, logger)
	if err := refresher.Run(ctx); err != nil && err != context.Canceled {
		logger.Warn("refresher stopped", zap.Error(err))
	}
}
