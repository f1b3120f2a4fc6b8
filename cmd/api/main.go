// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/userportal/internal/config"
	"github.com/yourusername/userportal/internal/logger"
	"github.com/yourusername/userportal/internal/metrics"
	"github.com/yourusername/userportal/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to set log level: %v", err)
	}
	appLog := logger.Named("api")

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager()

	notifier, err := setupNotifier(cfg, appLog, m)
	if err != nil {
		appLog.Error(ctx, "failed to set up notifier", logger.Error(err))
		log.Fatalf("Failed to set up notifier: %v", err)
	}

	router := server.NewRouter(server.Options{
		Config:      cfg,
		Logger:      logger.Named("http"),
		Metrics:     m,
		Notifier:    notifier.notifier,
		ResetStatus: notifier.statusHandler,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info(ctx, "starting API server",
			logger.String("addr", srv.Addr),
			logger.String("mode", cfg.GinMode),
			logger.Any("queueEnabled", cfg.QueueEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error(ctx, "server stopped unexpectedly", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	if err := notifier.close(shutdownCtx); err != nil {
		appLog.Error(shutdownCtx, "notifier shutdown failed", logger.Error(err))
	}
}
