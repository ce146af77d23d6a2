package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultAccessCacheTTL = time.Minute

// CachedChecker remembers access decisions in redis for a short TTL.
// Redis errors are logged and the inner checker is used instead.
type CachedChecker struct {
	inner AccessChecker
	rdb   redis.Cmdable
	ttl   time.Duration
}

func NewCachedChecker(inner AccessChecker, rdb redis.Cmdable, ttl time.Duration) *CachedChecker {
	if ttl <= 0 {
		ttl = defaultAccessCacheTTL
	}
	return &CachedChecker{inner: inner, rdb: rdb, ttl: ttl}
}

func accessCacheKey(experienceID, userID string) string {
	return "access:" + experienceID + ":" + userID
}

func (c *CachedChecker) CheckAccess(ctx context.Context, userID, experienceID string) (Access, error) {
	key := accessCacheKey(experienceID, userID)

	cached, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var access Access
		if jsonErr := json.Unmarshal(cached, &access); jsonErr == nil {
			return access, nil
		}
		slog.Warn("auth: dropping unreadable access cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("auth: access cache read failed", "error", err)
	}

	access, err := c.inner.CheckAccess(ctx, userID, experienceID)
	if err != nil {
		return Access{}, err
	}

	if data, err := json.Marshal(access); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("auth: access cache write failed", "error", err)
		}
	}
	return access, nil
}
