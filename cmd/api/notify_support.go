package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/userportal/internal/config"
	"github.com/yourusername/userportal/internal/dto"
	"github.com/yourusername/userportal/internal/logger"
	"github.com/yourusername/userportal/internal/metrics"
	"github.com/yourusername/userportal/internal/notify"
	"github.com/yourusername/userportal/internal/user"
)

// notifierSetup はリセット通知まわりの配線結果です。
type notifierSetup struct {
	notifier      user.ResetNotifier
	statusHandler gin.HandlerFunc
	close         func(ctx context.Context) error
}

// setupNotifier は QUEUE_REDIS_URL があれば Redis + Asynq のキューを、なければログのみの通知を組み立てます。
func setupNotifier(cfg *config.Config, log logger.Logger, m *metrics.Manager) (*notifierSetup, error) {
	if !cfg.QueueEnabled() {
		return &notifierSetup{
			notifier: notify.NewLogNotifier(log.Named("notify"), m),
			close:    func(context.Context) error { return nil },
		}, nil
	}

	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}
	redisClient := redis.NewClient(opt)

	store := notify.NewStore(redisClient, cfg.ResetTTL())
	manager, err := notify.NewManager(cfg, store, log.Named("notify"), notify.WithRecorder(m))
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}
	manager.StartWorkers()

	return &notifierSetup{
		notifier:      manager,
		statusHandler: resetStatusHandler(manager),
		close: func(ctx context.Context) error {
			return errors.Join(manager.Shutdown(ctx), redisClient.Close())
		},
	}, nil
}

type resetLookup interface {
	GetRecord(ctx context.Context, requestID string) (*notify.Record, error)
}

func resetStatusHandler(lookup resetLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Param("id")
		if strings.TrimSpace(requestID) == "" {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    "INVALID_INPUT",
				Message: "requestId を指定してください。",
			})
			return
		}

		record, err := lookup.GetRecord(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Code:    "INTERNAL_ERROR",
				Message: "リセット要求の取得に失敗しました。",
			})
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Code:    "RESET_NOT_FOUND",
				Message: "指定されたリセット要求は存在しません。",
			})
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
