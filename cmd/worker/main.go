// Package main runs the ticket email worker.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/config"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/logger"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/notification"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/queue"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, lg)
	if err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := queue.NewRedisClient(ctx, cfg.Redis.URL, lg)
	if err != nil {
		lg.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	store := repository.NewPostgresStore(pool, cfg.Ticketing.TxMaxAttempts, lg)
	worker := notification.NewWorker(
		queue.NewQueue(rdb, lg),
		notification.NewSender(cfg.Email, lg),
		notification.NewRenderer(cfg.Ticketing.QRImageBaseURL),
		store,
		lg,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(workerCtx)
		close(done)
	}()
	lg.Info("email worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-done
	lg.Info("email worker stopped")
}
