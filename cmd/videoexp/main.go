package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/config"
	"github.com/sendrec/videoexp/internal/database"
	"github.com/sendrec/videoexp/internal/geoip"
	"github.com/sendrec/videoexp/internal/server"
	"github.com/sendrec/videoexp/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.LogFormat, cfg.SlogLevel()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, pinger, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}
	defer closeStore()

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		TokenConfig: auth.TokenConfig{
			Secret:       cfg.Host.TokenSecret,
			PublicKeyPEM: cfg.Host.TokenPublicKey,
			Issuer:       cfg.Host.TokenIssuer,
			Audience:     cfg.Host.AppID,
		},
		Header:  cfg.Host.TokenHeader,
		DevMode: cfg.DevMode,
	})
	if err != nil {
		log.Fatalf("token verifier initialization failed: %v", err)
	}

	checker, closeChecker := newAccessChecker(ctx, cfg)
	defer closeChecker()

	geo := geoip.Open(cfg.GeoIPDBPath)
	defer func() { _ = geo.Close() }()

	srv := server.New(server.Config{
		Store:          store,
		Pinger:         pinger,
		Verifier:       verifier,
		Access:         checker,
		Directory:      newDirectory(cfg),
		BaseURL:        cfg.BaseURL,
		FrameAncestors: cfg.FrameAncestors,
		Geo:            geo,
		EnableDocs:     cfg.APIDocsEnabled,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	defer srv.Close()

	if cfg.DevMode {
		log.Println("dev mode enabled: unauthenticated callers act as", auth.DevUserID)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("videoexp listening on :%s (storage: %s)", cfg.Port, cfg.Storage.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown failed: %v", err)
		return
	}
	log.Println("shutdown complete")
}

func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newStore builds the configured backend. A backend missing its credential
// becomes storage.Unconfigured so requests report it instead of failing
// startup.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, server.Pinger, func(), error) {
	noop := func() {}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		slog.Warn("storage: using in-memory store, data is lost on restart")
		return storage.NewMemoryStore(), nil, noop, nil

	case config.DriverS3:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Region:    cfg.S3.Region,
		})
		if errors.Is(err, storage.ErrNotConfigured) {
			slog.Warn("storage: S3 credentials missing, storage disabled")
			return storage.Unconfigured{}, nil, noop, nil
		}
		if err != nil {
			return nil, nil, noop, err
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			slog.Warn("storage: bucket check failed", "bucket", cfg.S3.Bucket, "error", err)
		}
		return s3Store, nil, noop, nil

	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			slog.Warn("storage: DATABASE_URL missing, storage disabled")
			return storage.Unconfigured{}, nil, noop, nil
		}
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("database migration failed: %w", err)
		}
		log.Println("database migrations applied")
		return storage.NewPostgresStore(db.Pool), db, db.Close, nil

	default:
		if cfg.Storage.APIKey == "" {
			slog.Warn("storage: STORAGE_API_KEY missing, storage disabled")
			return storage.Unconfigured{}, nil, noop, nil
		}
		return storage.NewBucketStore(storage.BucketConfig{
			BaseURL:  cfg.Storage.APIURL,
			BucketID: cfg.Storage.Bucket,
			APIKey:   cfg.Storage.APIKey,
		}), nil, noop, nil
	}
}

// newDirectory resolves display names through the host API, or fixed names in
// dev mode without host credentials.
func newDirectory(cfg *config.Config) auth.Directory {
	if cfg.DevMode && (cfg.Host.APIURL == "" || cfg.Host.APIKey == "") {
		return auth.StaticDirectory{Names: auth.Names{User: "Development User", Experience: "Video Experience Demo"}}
	}
	return auth.NewHostClient(auth.HostConfig{
		BaseURL: cfg.Host.APIURL,
		APIKey:  cfg.Host.APIKey,
	})
}

// newAccessChecker asks the host API for access levels, cached in Redis when
// REDIS_URL is set. In dev mode without host credentials everyone is admin.
func newAccessChecker(ctx context.Context, cfg *config.Config) (auth.AccessChecker, func()) {
	noop := func() {}

	if cfg.DevMode && (cfg.Host.APIURL == "" || cfg.Host.APIKey == "") {
		slog.Warn("auth: host API not configured, every caller is admin")
		return auth.StaticChecker{Access: auth.Access{HasAccess: true, Level: auth.Admin}}, noop
	}

	var checker auth.AccessChecker = auth.NewHostClient(auth.HostConfig{
		BaseURL: cfg.Host.APIURL,
		APIKey:  cfg.Host.APIKey,
	})
	if cfg.RedisURL == "" {
		return checker, noop
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Warn("auth: invalid REDIS_URL, access cache disabled", "error", err)
		return checker, noop
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("auth: redis unreachable, access cache disabled", "error", err)
		_ = rdb.Close()
		return checker, noop
	}
	slog.Info("auth: access cache enabled", "ttl", cfg.AccessCacheTTL)
	return auth.NewCachedChecker(checker, rdb, cfg.AccessCacheTTL), func() { _ = rdb.Close() }
}
