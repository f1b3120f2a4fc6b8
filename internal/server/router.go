// Package server は Gin ルーターの組み立て（ミドルウェア、CORS、ルーティング）を行います。
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/userportal/internal/config"
	"github.com/yourusername/userportal/internal/logger"
	"github.com/yourusername/userportal/internal/metrics"
	"github.com/yourusername/userportal/internal/notify"
	"github.com/yourusername/userportal/internal/user"
)

const (
	serviceName    = "userportal-api"
	serviceVersion = "0.1.0"
)

// Options はルーターの構築に必要な依存関係です。
type Options struct {
	Config      *config.Config
	Logger      logger.Logger
	Metrics     *metrics.Manager
	// Notifier が nil の場合はログ出力のみの通知を使います。
	Notifier    user.ResetNotifier
	// ResetStatus が設定されている場合のみ GET /user/forgotpassword/:id を登録します。
	ResetStatus gin.HandlerFunc
}

// NewRouter は設定済みの Gin エンジンを返します。
func NewRouter(opts Options) *gin.Engine {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}

	// CORSミドルウェアの設定（許可オリジンからの認証情報付きリクエストのみ）
	router.Use(cors.New(corsConfig(cfg)))

	router.Use(user.SessionMiddleware(user.SessionOptions{
		Secret: cfg.SessionSecret,
		MaxAge: cfg.SessionMaxAge(),
		Secure: cfg.GinMode == gin.ReleaseMode,
	}))

	router.GET("/health", handleHealth)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = defaultNotifier(log, opts.Metrics)
	}
	handler := user.NewHandler(notifier, log.Named("user"))
	userGroup := router.Group("/user")
	handler.Register(userGroup)
	if opts.ResetStatus != nil {
		userGroup.GET("/forgotpassword/:id", opts.ResetStatus)
	}

	return router
}

// defaultNotifier はキューを使わない LogNotifier を返します。
func defaultNotifier(log logger.Logger, m *metrics.Manager) user.ResetNotifier {
	if m == nil {
		return notify.NewLogNotifier(log.Named("notify"), nil)
	}
	return notify.NewLogNotifier(log.Named("notify"), m)
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.AllowedOrigins()
	corsCfg.AllowCredentials = true
	corsCfg.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	return corsCfg
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": serviceVersion,
	})
}
