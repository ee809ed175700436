package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/momentumhq/momentum-backend/internal/logger"
	"github.com/momentumhq/momentum-backend/internal/types"
)

const (
	activeSeasonKey = "season:active"
	maxCacheTTL     = 5 * time.Minute
)

// SeasonCache is a read-through cache for the active season. It is
// strictly an optimization: every error or miss falls back to the
// database, so callers treat a nil cache and a failing cache the same
// way.
type SeasonCache interface {
	Get(ctx context.Context) (*types.Season, error)
	Set(ctx context.Context, season *types.Season) error
	Invalidate(ctx context.Context) error
	Close() error
}

type seasonCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewSeasonCache(log *logger.Logger) (SeasonCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &seasonCache{
		log: log.With("service", "RedisSeasonCache"),
		rdb: rdb,
	}, nil
}

// Get returns the cached season, or (nil, nil) on a miss.
func (c *seasonCache) Get(ctx context.Context) (*types.Season, error) {
	raw, err := c.rdb.Get(ctx, activeSeasonKey).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get season: %w", err)
	}

	var season types.Season
	if err := json.Unmarshal(raw, &season); err != nil {
		// A corrupt entry is treated as a miss; the next Set rewrites it.
		c.log.Warn("Cached season is unreadable, dropping it", "error", err)
		_ = c.rdb.Del(ctx, activeSeasonKey).Err()
		return nil, nil
	}
	return &season, nil
}

// Set caches the season until it expires, capped so a rotated season is
// picked up promptly.
func (c *seasonCache) Set(ctx context.Context, season *types.Season) error {
	if season == nil {
		return nil
	}
	ttl := time.Until(season.EndAt)
	if ttl <= 0 {
		return nil
	}
	if ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}

	raw, err := json.Marshal(season)
	if err != nil {
		return fmt.Errorf("marshal season: %w", err)
	}
	if err := c.rdb.Set(ctx, activeSeasonKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set season: %w", err)
	}
	return nil
}

func (c *seasonCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, activeSeasonKey).Err()
}

func (c *seasonCache) Close() error {
	return c.rdb.Close()
}
