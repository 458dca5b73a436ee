package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hzj/miniblog/internal/model"
)

var _ PostCache = (*RedisPostCache)(nil)

// RedisPostCache stores JSON-encoded posts under post:<id> and the full list
// under the post_list sentinel key.
//
// Absent results are never cached: a miss on a nonexistent post stays a miss,
// so repeated lookups of bad ids cannot pollute the cache with tombstones.
type RedisPostCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisPostCache creates the post cache. ttl bounds how long a stale copy
// can survive a missed invalidation; zero means no expiry.
func NewRedisPostCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisPostCache {
	return &RedisPostCache{rdb: rdb, ttl: ttl, logger: logger}
}

// GetPost returns the cached post and whether it was a hit. Any cache error
// is logged and reported as a miss so the caller falls through to SQLite.
func (c *RedisPostCache) GetPost(ctx context.Context, id int64) (*model.Post, bool) {
	data, err := c.rdb.Get(ctx, postKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("post cache read failed, treating as miss",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var post model.Post
	if err := json.Unmarshal(data, &post); err != nil {
		// A corrupt entry is worse than no entry — drop it.
		c.logger.Warn("post cache entry corrupt, evicting",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		c.DeletePost(ctx, id)
		return nil, false
	}

	return &post, true
}

// SetPost writes (or replaces) the single-post entry. Used both to populate
// on a read miss and as the write-through on update.
func (c *RedisPostCache) SetPost(ctx context.Context, post *model.Post) {
	data, err := json.Marshal(post)
	if err != nil {
		c.logger.Warn("post cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.rdb.Set(ctx, postKey(post.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("post cache write failed",
			slog.Int64("id", post.ID),
			slog.String("error", err.Error()),
		)
	}
}

// DeletePost evicts the single-post entry.
func (c *RedisPostCache) DeletePost(ctx context.Context, id int64) {
	if err := c.rdb.Del(ctx, postKey(id)).Err(); err != nil {
		c.logger.Warn("post cache evict failed",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
	}
}

// GetList returns the cached full list and whether it was a hit.
func (c *RedisPostCache) GetList(ctx context.Context) ([]model.Post, bool) {
	data, err := c.rdb.Get(ctx, postListKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("post list cache read failed, treating as miss",
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var posts []model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		c.logger.Warn("post list cache entry corrupt, evicting",
			slog.String("error", err.Error()),
		)
		c.DeleteList(ctx)
		return nil, false
	}

	return posts, true
}

// SetList caches the full post list under the sentinel key.
func (c *RedisPostCache) SetList(ctx context.Context, posts []model.Post) {
	data, err := json.Marshal(posts)
	if err != nil {
		c.logger.Warn("post list cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.rdb.Set(ctx, postListKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("post list cache write failed", slog.String("error", err.Error()))
	}
}

// DeleteList evicts the full-list entry. Every mutation calls this — any
// create, update, or delete makes the cached list stale.
func (c *RedisPostCache) DeleteList(ctx context.Context) {
	if err := c.rdb.Del(ctx, postListKey).Err(); err != nil {
		c.logger.Warn("post list cache evict failed", slog.String("error", err.Error()))
	}
}
