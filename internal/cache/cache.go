// Package cache holds everything Redis-backed: the cache-aside post cache,
// the view-count sorted set, and the one-time-value store for login codes
// and OAuth states.
//
// CACHE-ASIDE IN ONE PARAGRAPH:
// Reads check Redis first and fall back to SQLite on a miss, populating
// Redis on the way out. Writes go to SQLite and then invalidate (or, for
// single-post updates, replace) the affected Redis entries. Redis is never
// the source of truth — every entry is a disposable copy that is allowed to
// vanish at any moment.
//
// DEGRADED MODE:
// A cache error is never allowed to break a request. Failed reads count as
// misses, failed writes/evictions are logged and dropped. If Redis is down
// the API keeps working straight off SQLite, just slower. The one exception
// by design is the login-code store: codes live ONLY in Redis, so those
// errors do propagate.
package cache

import (
	"context"
	"strconv"

	"github.com/hzj/miniblog/internal/model"
)

// Key layout — one place, so keys don't scatter through the code.
const (
	postKeyPrefix  = "post:"            // post:<id> → JSON post
	postListKey    = "post_list"        // sentinel for the full list → JSON []post
	viewCountsKey  = "post:view_counts" // sorted set: member=post id, score=views
	codeKeyPrefix  = "login_code:"      // login_code:<phone> → 6-digit code
	stateKeyPrefix = "oauth_state:"     // oauth_state:<state> → "1"
)

func postKey(id int64) string { return postKeyPrefix + strconv.FormatInt(id, 10) }

func codeKey(phone string) string { return codeKeyPrefix + phone }

func stateKey(state string) string { return stateKeyPrefix + state }

// PostCache is the cache-aside store for post objects and the full list.
// Implementations must be safe to call with Redis unavailable: Get* report a
// miss, Set*/Delete* are silent no-ops (logged internally).
type PostCache interface {
	GetPost(ctx context.Context, id int64) (*model.Post, bool)
	SetPost(ctx context.Context, post *model.Post)
	DeletePost(ctx context.Context, id int64)
	GetList(ctx context.Context) ([]model.Post, bool)
	SetList(ctx context.Context, posts []model.Post)
	DeleteList(ctx context.Context)
}

// PostScore is one leaderboard row: a post id and its cumulative view count.
type PostScore struct {
	PostID int64
	Count  int64
}

// ViewCounter is the sorted-set view-count leaderboard.
type ViewCounter interface {
	// Increment atomically adds 1 to the post's score and returns the new
	// value. On a store failure it logs and returns 0 — reads must not fail
	// because the counter is down.
	Increment(ctx context.Context, postID int64) int64
	// TopN returns up to n (id, count) pairs, highest count first.
	TopN(ctx context.Context, n int) ([]PostScore, error)
}

// CodeStore holds one-time values: SMS login codes and OAuth state tokens.
// Both are single-use and expire on their own.
type CodeStore interface {
	SaveLoginCode(ctx context.Context, phone, code string) error
	// GetLoginCode returns ("", nil) when no code is stored (expired or
	// never sent) — absence is an outcome, not an error.
	GetLoginCode(ctx context.Context, phone string) (string, error)
	DeleteLoginCode(ctx context.Context, phone string) error
	SaveOAuthState(ctx context.Context, state string) error
	// ConsumeOAuthState atomically checks-and-deletes; it returns true at
	// most once per saved state.
	ConsumeOAuthState(ctx context.Context, state string) (bool, error)
}
