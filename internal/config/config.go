// Package config reads service settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverBucket   = "bucket"
	DriverS3       = "s3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Storage struct {
	Driver string
	APIURL string
	APIKey string
	Bucket string
}

type S3 struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

type Host struct {
	APIURL         string
	APIKey         string
	TokenHeader    string
	TokenSecret    string
	TokenPublicKey string
	TokenIssuer    string
	AppID          string
}

type Config struct {
	Port      string
	BaseURL   string
	LogFormat string
	LogLevel  string

	Storage     Storage
	S3          S3
	DatabaseURL string

	Host           Host
	RedisURL       string
	AccessCacheTTL time.Duration
	DevMode        bool

	FrameAncestors []string
	APIDocsEnabled bool
	RateLimitRPS   float64
	RateLimitBurst int
	GeoIPDBPath    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_level", "info")
	v.SetDefault("storage_driver", DriverBucket)
	v.SetDefault("storage_api_url", "https://storage.api.whop.com/api")
	v.SetDefault("storage_bucket", "video-experience-data")
	v.SetDefault("s3_region", "eu-central-1")
	v.SetDefault("s3_bucket", "video-experience-data")
	v.SetDefault("host_token_header", "X-Host-User-Token")
	v.SetDefault("access_cache_ttl", time.Minute)
	v.SetDefault("dev_mode", false)
	v.SetDefault("api_docs_enabled", false)
	v.SetDefault("rate_limit_rps", 5.0)
	v.SetDefault("rate_limit_burst", 20)
}

// keys are bound to their upper-case environment variables.
var keys = []string{
	"port", "base_url", "log_format", "log_level",
	"storage_driver", "storage_api_url", "storage_api_key", "storage_bucket",
	"s3_endpoint", "s3_bucket", "s3_access_key", "s3_secret_key", "s3_region",
	"database_url",
	"host_api_url", "host_api_key", "host_token_header", "host_token_secret",
	"host_token_public_key", "host_token_issuer", "host_app_id",
	"redis_url", "access_cache_ttl", "dev_mode",
	"allowed_frame_ancestors", "api_docs_enabled", "rate_limit_rps", "rate_limit_burst",
	"geoip_db_path",
}

// Load reads .env (when present) and the environment. Environment variables
// win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file found, using environment only")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		Port:      v.GetString("port"),
		BaseURL:   strings.TrimRight(v.GetString("base_url"), "/"),
		LogFormat: strings.ToLower(v.GetString("log_format")),
		LogLevel:  strings.ToLower(v.GetString("log_level")),
		Storage: Storage{
			Driver: strings.ToLower(v.GetString("storage_driver")),
			APIURL: v.GetString("storage_api_url"),
			APIKey: v.GetString("storage_api_key"),
			Bucket: v.GetString("storage_bucket"),
		},
		S3: S3{
			Endpoint:  v.GetString("s3_endpoint"),
			Bucket:    v.GetString("s3_bucket"),
			AccessKey: v.GetString("s3_access_key"),
			SecretKey: v.GetString("s3_secret_key"),
			Region:    v.GetString("s3_region"),
		},
		DatabaseURL: v.GetString("database_url"),
		Host: Host{
			APIURL:         v.GetString("host_api_url"),
			APIKey:         v.GetString("host_api_key"),
			TokenHeader:    v.GetString("host_token_header"),
			TokenSecret:    v.GetString("host_token_secret"),
			TokenPublicKey: v.GetString("host_token_public_key"),
			TokenIssuer:    v.GetString("host_token_issuer"),
			AppID:          v.GetString("host_app_id"),
		},
		RedisURL:       v.GetString("redis_url"),
		AccessCacheTTL: v.GetDuration("access_cache_ttl"),
		DevMode:        v.GetBool("dev_mode"),
		FrameAncestors: splitList(v.GetString("allowed_frame_ancestors")),
		APIDocsEnabled: v.GetBool("api_docs_enabled"),
		RateLimitRPS:   v.GetFloat64("rate_limit_rps"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),
		GeoIPDBPath:    v.GetString("geoip_db_path"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverBucket, DriverS3, DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER %q is not one of bucket, s3, postgres, memory", c.Storage.Driver))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not one of json, text", c.LogFormat))
	}
	if !c.DevMode && c.Host.TokenSecret == "" && c.Host.TokenPublicKey == "" {
		errs = append(errs, errors.New("HOST_TOKEN_SECRET or HOST_TOKEN_PUBLIC_KEY is required unless DEV_MODE is set"))
	}
	if !c.DevMode && (c.Host.APIURL == "" || c.Host.APIKey == "") {
		errs = append(errs, errors.New("HOST_API_URL and HOST_API_KEY are required unless DEV_MODE is set"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if c.AccessCacheTTL < 0 {
		errs = append(errs, errors.New("ACCESS_CACHE_TTL must not be negative"))
	}

	return errors.Join(errs...)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// splitList splits a comma or space separated list.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
