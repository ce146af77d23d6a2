package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every setting so the host environment cannot leak into a
// test. Viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(strings.ToUpper(key), "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	clearEnv(t)
	t.Setenv("HOST_TOKEN_SECRET", "secret")
	t.Setenv("HOST_API_URL", "https://api.host.test")
	t.Setenv("HOST_API_KEY", "key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DriverBucket, cfg.Storage.Driver)
	assert.Equal(t, "https://storage.api.whop.com/api", cfg.Storage.APIURL)
	assert.Equal(t, "video-experience-data", cfg.Storage.Bucket)
	assert.Equal(t, "eu-central-1", cfg.S3.Region)
	assert.Equal(t, "X-Host-User-Token", cfg.Host.TokenHeader)
	assert.Equal(t, time.Minute, cfg.AccessCacheTTL)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.False(t, cfg.DevMode)
	assert.False(t, cfg.APIDocsEnabled)
	assert.Nil(t, cfg.FrameAncestors)
}

func TestLoad_FromEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_URL", "https://videos.example.com/")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_ACCESS_KEY", "ak")
	t.Setenv("ACCESS_CACHE_TTL", "5m")
	t.Setenv("ALLOWED_FRAME_ANCESTORS", "https://whop.com, https://*.whop.com")
	t.Setenv("API_DOCS_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://videos.example.com", cfg.BaseURL)
	assert.Equal(t, DriverS3, cfg.Storage.Driver)
	assert.Equal(t, "ak", cfg.S3.AccessKey)
	assert.Equal(t, 5*time.Minute, cfg.AccessCacheTTL)
	assert.Equal(t, []string{"https://whop.com", "https://*.whop.com"}, cfg.FrameAncestors)
	assert.True(t, cfg.APIDocsEnabled)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_RequiresTokenKeyOutsideDevMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST_API_URL", "https://api.host.test")
	t.Setenv("HOST_API_KEY", "key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOST_TOKEN_SECRET")
}

func TestLoad_DevModeNeedsNoHostSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.DevMode)
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	cfg := &Config{
		LogFormat:      "xml",
		Storage:        Storage{Driver: "ftp"},
		DevMode:        true,
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `STORAGE_DRIVER "ftp"`)
	assert.Contains(t, err.Error(), `LOG_FORMAT "xml"`)
}

func TestSlogLevel_FallsBackToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "loud"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "warn"}).SlogLevel())
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a,b c, ,"))
}
