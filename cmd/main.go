// cmd/main.go is the API entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/config"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/handler"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/logger"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/queue"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/service"
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

	// ── 1. Connect to PostgreSQL and Redis ───────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, lg)
	if err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}

	rdb, err := queue.NewRedisClient(ctx, cfg.Redis.URL, lg)
	if err != nil {
		lg.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	store := repository.NewPostgresStore(pool, cfg.Ticketing.TxMaxAttempts, lg)
	emailQueue := queue.NewQueue(rdb, lg)
	svc := service.NewTicketService(store, emailQueue, service.Options{
		AllowedDomain:       cfg.Ticketing.AllowedDomain,
		PointsPerAttendance: cfg.Ticketing.PointsPerAttendance,
		DefaultTeamSize:     cfg.Ticketing.DefaultTeamSize,
		NotifyTimeout:       cfg.Ticketing.NotifyTimeout,
	}, lg)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	eventHandler := handler.NewEventHandler(svc, lg)

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.NewRouter(eventHandler, jwtService, cfg.Server.AllowedOrigins, lg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		lg.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
	// Let committed registrations finish handing their emails to the queue.
	svc.Wait()
	lg.Info("server stopped")
}
