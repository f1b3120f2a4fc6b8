// Package config は環境変数・設定ファイルから設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DevSessionSecret は開発用のセッション署名鍵です。release モードでは使用できません。
const DevSessionSecret = "dev-only-session-secret-change-me"

// configFileEnv は YAML 設定ファイルのパスを指定する環境変数名です。
const configFileEnv = "APP_CONFIG"

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port     string `koanf:"port"`      // APIサーバーのポート番号
	GinMode  string `koanf:"gin_mode"`  // Ginの実行モード (debug, release, test)
	LogLevel string `koanf:"log_level"` // debug, info, warn, error

	// CORS設定
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"` // CORS許可オリジン（カンマ区切り）

	// セッション設定
	SessionSecret      string `koanf:"session_secret"`        // セッション署名用の秘密鍵
	SessionMaxAgeHours int    `koanf:"session_max_age_hours"` // ログインセッションの有効期間（時間）

	// パスワードリセット通知キュー設定
	QueueRedisURL      string `koanf:"queue_redis_url"`      // Asynq用Redis接続URL（空ならキュー無効）
	ResetExpireMinutes int    `koanf:"reset_expire_minutes"` // リセット要求レコードの保持期間（分）

	// クライアント設定
	APIBaseURL           string `koanf:"api_base_url"`           // APIクライアントのベースURL
	ClientTimeoutSeconds int    `koanf:"client_timeout_seconds"` // 0 はタイムアウトなし
}

// envKeys は受け付ける環境変数名と koanf のキーの対応表です。
var envKeys = map[string]string{
	"PORT":                   "port",
	"GIN_MODE":               "gin_mode",
	"LOG_LEVEL":              "log_level",
	"CORS_ALLOWED_ORIGINS":   "cors_allowed_origins",
	"SESSION_SECRET":         "session_secret",
	"SESSION_MAX_AGE_HOURS":  "session_max_age_hours",
	"QUEUE_REDIS_URL":        "queue_redis_url",
	"RESET_EXPIRE_MINUTES":   "reset_expire_minutes",
	"API_BASE_URL":           "api_base_url",
	"CLIENT_TIMEOUT_SECONDS": "client_timeout_seconds",
}

// Default はデフォルト値で埋めた Config を返します。
func Default() *Config {
	return &Config{
		Port:                 "5050",
		GinMode:              "debug",
		LogLevel:             "info",
		CORSAllowedOrigins:   "http://localhost:5173",
		SessionSecret:        DevSessionSecret,
		SessionMaxAgeHours:   12,
		QueueRedisURL:        "",
		ResetExpireMinutes:   30,
		APIBaseURL:           "http://localhost:5050/",
		ClientTimeoutSeconds: 0,
	}
}

// Load は設定を読み込みます。
// 優先順位（低 → 高）:
//  1. デフォルト値
//  2. APP_CONFIG で指定された YAML ファイル
//  3. 環境変数（.env.local が存在する場合はそこからも読み込む）
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	k := koanf.New(".")

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// 空文字の環境変数は未設定として扱う
	envProvider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		mapped, ok := envKeys[key]
		if !ok || value == "" {
			return "", nil
		}
		return mapped, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// 必須設定のバリデーション
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("%w: PORT must not be empty", ErrInvalidConfig)
	}

	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: unknown GIN_MODE %q", ErrInvalidConfig, c.GinMode)
	}

	origins := c.AllowedOrigins()
	if len(origins) == 0 {
		return fmt.Errorf("%w: CORS_ALLOWED_ORIGINS must list at least one origin", ErrInvalidConfig)
	}
	for _, origin := range origins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("%w: invalid CORS origin %q", ErrInvalidConfig, origin)
		}
	}

	if c.SessionMaxAgeHours <= 0 {
		return fmt.Errorf("%w: SESSION_MAX_AGE_HOURS must be positive", ErrInvalidConfig)
	}
	if c.ResetExpireMinutes <= 0 {
		return fmt.Errorf("%w: RESET_EXPIRE_MINUTES must be positive", ErrInvalidConfig)
	}
	if c.ClientTimeoutSeconds < 0 {
		return fmt.Errorf("%w: CLIENT_TIMEOUT_SECONDS must not be negative", ErrInvalidConfig)
	}

	// ローカル開発では開発用の署名鍵を許可する
	if c.GinMode == "release" {
		if c.SessionSecret == "" || c.SessionSecret == DevSessionSecret {
			return fmt.Errorf("%w: SESSION_SECRET is required in release mode", ErrInvalidConfig)
		}
	}

	return nil
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Addr は HTTP サーバーの待ち受けアドレスを返します。
func (c *Config) Addr() string {
	return ":" + c.Port
}

// SessionMaxAge はログインセッションの有効期間を返します。
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeHours) * time.Hour
}

// ResetTTL はリセット要求レコードの保持期間を返します。
func (c *Config) ResetTTL() time.Duration {
	return time.Duration(c.ResetExpireMinutes) * time.Minute
}

// ClientTimeout は APIクライアントのタイムアウトを返します。
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutSeconds) * time.Second
}

// QueueEnabled はリセット通知キューが設定されているかを返します。
func (c *Config) QueueEnabled() bool {
	return strings.TrimSpace(c.QueueRedisURL) != ""
}
