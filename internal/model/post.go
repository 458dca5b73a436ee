// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Post represents a blog article.
//
// The `json:"..."` tags tell Go's encoding/json package how to serialize/deserialize
// this struct to/from JSON. The same encoding is used in two places:
// API responses AND the Redis object cache (cache entries are JSON posts).
//
// VIEW COUNT IS DERIVED DATA:
// ViewCount has no column in the posts table. It lives in a Redis sorted set
// and is merged into the struct at read time. Persisting it alongside the row
// would create two sources of truth that drift apart under concurrent reads —
// the sorted set alone is authoritative.
type Post struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CreateTime time.Time `json:"createTime"`
	ViewCount  int64     `json:"viewCount"` // derived from Redis, never stored in SQLite
}
