package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/config"
)

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "json", slog.LevelInfo).Info("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "text", slog.LevelInfo).Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text output, got %q", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "text", slog.LevelWarn).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestNewStoreSelection(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"Memory", config.Config{Storage: config.Storage{Driver: config.DriverMemory}}, "*storage.MemoryStore"},
		{"BucketWithoutKey", config.Config{Storage: config.Storage{Driver: config.DriverBucket}}, "storage.Unconfigured"},
		{"BucketWithKey", config.Config{Storage: config.Storage{Driver: config.DriverBucket, APIURL: "https://storage.test", APIKey: "k", Bucket: "b"}}, "*storage.BucketStore"},
		{"S3WithoutKeys", config.Config{Storage: config.Storage{Driver: config.DriverS3}}, "storage.Unconfigured"},
		{"PostgresWithoutURL", config.Config{Storage: config.Storage{Driver: config.DriverPostgres}}, "storage.Unconfigured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, pinger, closeStore, err := newStore(ctx, &tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer closeStore()
			if got := fmt.Sprintf("%T", store); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
			if pinger != nil {
				t.Errorf("expected no pinger for %s", tt.name)
			}
		})
	}
}

func TestNewAccessChecker_DevModeIsStaticAdmin(t *testing.T) {
	checker, closeChecker := newAccessChecker(context.Background(), &config.Config{DevMode: true})
	defer closeChecker()

	access, err := checker.CheckAccess(context.Background(), auth.DevUserID, "exp_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !access.IsAdmin() {
		t.Errorf("expected admin access in dev mode, got %+v", access)
	}
}

func TestNewAccessChecker_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Host:           config.Host{APIURL: "https://api.host.test", APIKey: "k"},
		RedisURL:       "redis://" + mr.Addr(),
		AccessCacheTTL: time.Minute,
	}

	checker, closeChecker := newAccessChecker(context.Background(), cfg)
	defer closeChecker()

	if _, ok := checker.(*auth.CachedChecker); !ok {
		t.Errorf("expected cached checker, got %T", checker)
	}
}

func TestNewAccessChecker_RedisDownUsesHost(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{
		Host:     config.Host{APIURL: "https://api.host.test", APIKey: "k"},
		RedisURL: "redis://" + addr,
	}
	checker, closeChecker := newAccessChecker(context.Background(), cfg)
	defer closeChecker()

	if _, ok := checker.(*auth.HostClient); !ok {
		t.Errorf("expected host client without redis, got %T", checker)
	}
}
