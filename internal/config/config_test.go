package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv は既知の環境変数を空にして、ホスト環境の影響を受けないようにします。
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(configFileEnv, "")
	for key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5050", cfg.Port)
	assert.Equal(t, ":5050", cfg.Addr())
	assert.Equal(t, "debug", cfg.GinMode)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins())
	assert.Equal(t, 12*time.Hour, cfg.SessionMaxAge())
	assert.Equal(t, 30*time.Minute, cfg.ResetTTL())
	assert.Equal(t, "http://localhost:5050/", cfg.APIBaseURL)
	assert.Zero(t, cfg.ClientTimeout())
	assert.False(t, cfg.QueueEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "6060")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com")
	t.Setenv("SESSION_MAX_AGE_HOURS", "2")
	t.Setenv("QUEUE_REDIS_URL", "redis://127.0.0.1:6379/1")
	t.Setenv("CLIENT_TIMEOUT_SECONDS", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "6060", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.AllowedOrigins())
	assert.Equal(t, 2*time.Hour, cfg.SessionMaxAge())
	assert.True(t, cfg.QueueEnabled())
	assert.Equal(t, 15*time.Second, cfg.ClientTimeout())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
port: "7070"
log_level: debug
reset_expire_minutes: 5
`)
	t.Setenv(configFileEnv, path)
	t.Setenv("PORT", "8081")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port, "env should override the file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.ResetTTL())
	assert.Equal(t, 12*time.Hour, cfg.SessionMaxAge(), "unset keys keep defaults")
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(configFileEnv, "/non/existent/config.yaml")

		cfg, err := Load()
		require.ErrorIs(t, err, ErrLoadConfig)
		assert.Nil(t, cfg)
	})

	t.Run("invalid number", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SESSION_MAX_AGE_HOURS", "not-a-number")

		cfg, err := Load()
		require.ErrorIs(t, err, ErrLoadConfig)
		assert.Nil(t, cfg)
	})

	t.Run("invalid origin", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CORS_ALLOWED_ORIGINS", "localhost:5173")

		_, err := Load()
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("release without secret", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GIN_MODE", "release")

		_, err := Load()
		require.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "SESSION_SECRET")
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = " " }},
		{"unknown mode", func(c *Config) { c.GinMode = "prod" }},
		{"no origins", func(c *Config) { c.CORSAllowedOrigins = " , " }},
		{"zero session age", func(c *Config) { c.SessionMaxAgeHours = 0 }},
		{"zero reset ttl", func(c *Config) { c.ResetExpireMinutes = 0 }},
		{"negative timeout", func(c *Config) { c.ClientTimeoutSeconds = -1 }},
	}

	require.NoError(t, Default().Validate())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	release := Default()
	release.GinMode = "release"
	release.SessionSecret = "a-real-secret-from-the-environment"
	assert.NoError(t, release.Validate())
}
