// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// This application adds a fourth concern that lives HERE, in the service
// layer: the Redis cache. The repository stays a dumb SQL gateway and the
// handler stays a dumb HTTP translator; it is the service that decides when
// to read through the cache, when to populate it, and when to invalidate it.
// That placement is deliberate — cache consistency IS a business rule.
//
// DEPENDENCY INJECTION:
// PostService takes interfaces (repository.PostRepository, cache.PostCache,
// cache.ViewCounter), not concrete types. In tests we swap in in-memory
// fakes; in main we wire SQLite and Redis. The service never imports either.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hzj/miniblog/internal/apperror"
	"github.com/hzj/miniblog/internal/cache"
	"github.com/hzj/miniblog/internal/model"
	"github.com/hzj/miniblog/internal/repository"
)

// Validation constants for post fields.
const (
	MinTitleLength = 3
	MaxTitleLength = 200
)

// PostService handles business logic for blog posts: validation, the
// cache-aside protocol, and the view-count leaderboard.
type PostService struct {
	repo   repository.PostRepository
	cache  cache.PostCache
	views  cache.ViewCounter
	logger *slog.Logger
}

// NewPostService creates a new PostService.
func NewPostService(repo repository.PostRepository, postCache cache.PostCache, views cache.ViewCounter, logger *slog.Logger) *PostService {
	return &PostService{
		repo:   repo,
		cache:  postCache,
		views:  views,
		logger: logger,
	}
}

// validatePost enforces the field rules shared by Create and Update.
// Title is trimmed before length checks; content is not (leading whitespace
// in a post body can be intentional).
//
// Title bounds count CHARACTERS, not bytes: most titles here are Chinese,
// at three bytes per character, so len() would reject a perfectly valid
// 100-character title and wave through a 2-character one. Content has no
// upper bound, only non-emptiness.
func validatePost(title, content string) (string, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return "", apperror.ValidationFailed("title", "post title is required")
	}
	titleLen := utf8.RuneCountInString(title)
	if titleLen < MinTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("post title must be at least %d characters", MinTitleLength))
	}
	if titleLen > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("post title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(content) == "" {
		return "", apperror.ValidationFailed("content", "post content is required")
	}

	return title, nil
}

// Create validates and saves a new post.
//
// CACHE INVALIDATION ON CREATE:
// A new post makes the cached list stale, so we evict post_list. We do NOT
// populate post:<id> — the next read will do that (cache-aside, not
// write-through). Caching on write would waste memory on posts nobody reads.
func (s *PostService) Create(ctx context.Context, title, content string) (*model.Post, error) {
	title, err := validatePost(title, content)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:   title,
		Content: content,
	}

	if err := s.repo.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.cache.DeleteList(ctx)

	s.logger.Info("post created",
		slog.Int64("id", post.ID),
		slog.String("title", post.Title),
	)

	return post, nil
}

// GetByID retrieves a post, reading through the cache.
//
// CACHE-ASIDE READ:
//  1. Try post:<id> in Redis — on a hit the database is never touched.
//  2. On a miss, load from the database and populate the cache for the
//     next reader.
//
// Misses caused by Redis being down look identical to genuine misses: the
// cache layer logs and reports "not cached", and we fall through to SQLite.
// A cache outage slows reads down; it never breaks them.
//
// Concurrent misses for the same key each load from the database and race to
// populate the cache. That is accepted: the entries they write are identical
// copies of the same row, so last-writer-wins is harmless, and serializing
// the misses would cost a lock for no observable difference.
//
// NOT-FOUND IS NEVER CACHED: if the post doesn't exist we return the error
// without writing anything to Redis, so a later Create of that id is visible
// immediately.
func (s *PostService) GetByID(ctx context.Context, id int64) (*model.Post, error) {
	if post, ok := s.cache.GetPost(ctx, id); ok {
		return post, nil
	}

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetPost(ctx, post)
	return post, nil
}

// GetAll retrieves every post, reading through the post_list cache key.
func (s *PostService) GetAll(ctx context.Context) ([]model.Post, error) {
	if posts, ok := s.cache.GetList(ctx); ok {
		return posts, nil
	}

	posts, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	s.cache.SetList(ctx, posts)
	return posts, nil
}

// Update modifies an existing post.
//
// STRATEGY: fetch then update — confirm the post exists, apply the new
// fields, save. CreateTime survives from the fetched copy.
//
// CACHE ON UPDATE: this is the one write-through path. The updated post is
// written straight into post:<id> (a reader between our SQL write and a lazy
// re-population must never see the old title), and post_list is evicted
// because the list snapshot now disagrees with the row.
func (s *PostService) Update(ctx context.Context, id int64, title, content string) (*model.Post, error) {
	title, err := validatePost(title, content)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	post.Title = title
	post.Content = content

	if err := s.repo.Update(ctx, post); err != nil {
		s.logger.Error("failed to update post",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.cache.SetPost(ctx, post)
	s.cache.DeleteList(ctx)

	s.logger.Info("post updated",
		slog.Int64("id", post.ID),
		slog.String("title", post.Title),
	)

	return post, nil
}

// Delete removes a post and evicts both of its cache entries.
//
// The leaderboard entry in post:view_counts is intentionally left alone:
// the sorted set outlives its posts, and every read path that joins it
// against the posts table drops members that no longer resolve.
func (s *PostService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.DeletePost(ctx, id)
	s.cache.DeleteList(ctx)

	s.logger.Info("post deleted", slog.Int64("id", id))
	return nil
}

// IncrementViewCount bumps the post's score in the leaderboard and returns
// the new total. Failures inside the counter degrade to 0 rather than
// erroring; a broken counter must not break reading a post.
func (s *PostService) IncrementViewCount(ctx context.Context, id int64) int64 {
	return s.views.Increment(ctx, id)
}

// TopViewed returns up to n posts ordered by view count, highest first.
//
// THE STALE-MEMBER PROBLEM:
// The sorted set can hold ids of deleted posts (Delete never touches it).
// So we fetch the top n ids from Redis, resolve them against the database in
// one batched query, DROP the ids that no longer resolve, and re-sort the
// survivors by count. The result can therefore be shorter than n: padding it
// with lower-ranked posts would need a second Redis round trip for ids
// nobody asked about.
func (s *PostService) TopViewed(ctx context.Context, n int) ([]model.Post, error) {
	scores, err := s.views.TopN(ctx, n)
	if err != nil {
		s.logger.Error("failed to read view leaderboard", slog.String("error", err.Error()))
		return nil, fmt.Errorf("reading view leaderboard: %w", err)
	}
	if len(scores) == 0 {
		return []model.Post{}, nil
	}

	ids := make([]int64, len(scores))
	counts := make(map[int64]int64, len(scores))
	for i, sc := range scores {
		ids[i] = sc.PostID
		counts[sc.PostID] = sc.Count
	}

	// GetByIDs guarantees nothing about order and silently skips missing
	// ids — both properties are exactly what we want here.
	posts, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("failed to resolve top posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("resolving top posts: %w", err)
	}

	for i := range posts {
		posts[i].ViewCount = counts[posts[i].ID]
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ViewCount > posts[j].ViewCount
	})

	return posts, nil
}
