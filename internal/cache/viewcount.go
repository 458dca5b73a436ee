package cache

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var _ ViewCounter = (*RedisViewCounter)(nil)

// RedisViewCounter keeps per-post view counts in one sorted set:
// member = post id as text, score = cumulative views.
//
// The sorted set is AUTHORITATIVE for view counts — there is no view_count
// column to fall back on. Its lifecycle is independent of the posts table:
// deleting a post does not touch its counter entry, and the read paths
// tolerate (and skip) members whose post no longer exists.
type RedisViewCounter struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisViewCounter creates the view counter.
func NewRedisViewCounter(rdb *redis.Client, logger *slog.Logger) *RedisViewCounter {
	return &RedisViewCounter{rdb: rdb, logger: logger}
}

// Increment adds 1 to the post's score and returns the new value.
//
// ZINCRBY is a single atomic operation on the server — concurrent requests
// never lose an increment, with no read-modify-write on our side.
//
// On failure it logs and returns 0: a Redis outage must not turn a page view
// into a 500. (Whether silently zeroing counts is the right degraded mode is
// debatable, but it is the contract callers rely on.)
func (v *RedisViewCounter) Increment(ctx context.Context, postID int64) int64 {
	score, err := v.rdb.ZIncrBy(ctx, viewCountsKey, 1, strconv.FormatInt(postID, 10)).Result()
	if err != nil {
		v.logger.Error("view counter increment failed",
			slog.Int64("postID", postID),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return int64(score)
}

// TopN returns up to n (id, count) pairs, highest count first.
// ZREVRANGE WITHSCORES 0 n-1; ties are broken by Redis's own ordering, which
// callers must treat as arbitrary.
func (v *RedisViewCounter) TopN(ctx context.Context, n int) ([]PostScore, error) {
	if n <= 0 {
		return []PostScore{}, nil
	}

	entries, err := v.rdb.ZRevRangeWithScores(ctx, viewCountsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	scores := make([]PostScore, 0, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			// A foreign member in our set — skip rather than fail the whole
			// leaderboard.
			v.logger.Warn("view counter holds non-numeric member", slog.String("member", member))
			continue
		}
		scores = append(scores, PostScore{PostID: id, Count: int64(entry.Score)})
	}

	return scores, nil
}
