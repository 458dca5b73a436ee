package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"log/slog"
	"os"

	"github.com/hzj/miniblog/internal/apperror"
	"github.com/hzj/miniblog/internal/cache"
	"github.com/hzj/miniblog/internal/model"
)

// =========================================================================
// MOCKS
// =========================================================================
//
// Hand-written in-memory fakes for the three dependencies of PostService.
// Each one also counts calls, so tests can assert not just WHAT came back
// but WHICH path produced it (cache hit vs database read).

type mockPostRepo struct {
	posts  map[int64]*model.Post
	order  []int64 // insertion order, for List
	nextID int64

	getByIDCalls int
	listCalls    int
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[int64]*model.Post)}
}

func (m *mockPostRepo) Create(_ context.Context, post *model.Post) error {
	m.nextID++
	post.ID = m.nextID
	stored := *post
	m.posts[post.ID] = &stored
	m.order = append(m.order, post.ID)
	return nil
}

func (m *mockPostRepo) GetByID(_ context.Context, id int64) (*model.Post, error) {
	m.getByIDCalls++
	post, ok := m.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	result := *post
	return &result, nil
}

func (m *mockPostRepo) GetByIDs(_ context.Context, ids []int64) ([]model.Post, error) {
	result := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		if post, ok := m.posts[id]; ok {
			result = append(result, *post)
		}
	}
	return result, nil
}

func (m *mockPostRepo) List(_ context.Context) ([]model.Post, error) {
	m.listCalls++
	result := make([]model.Post, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.posts[id])
	}
	return result, nil
}

func (m *mockPostRepo) Update(_ context.Context, post *model.Post) error {
	if _, ok := m.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *mockPostRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(m.posts, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// mockPostCache mimics the Redis cache-aside layer in memory.
type mockPostCache struct {
	posts   map[int64]model.Post
	list    []model.Post
	hasList bool

	setPostCalls    int
	deletePostCalls int
	deleteListCalls int
}

func newMockPostCache() *mockPostCache {
	return &mockPostCache{posts: make(map[int64]model.Post)}
}

func (m *mockPostCache) GetPost(_ context.Context, id int64) (*model.Post, bool) {
	post, ok := m.posts[id]
	if !ok {
		return nil, false
	}
	result := post
	return &result, true
}

func (m *mockPostCache) SetPost(_ context.Context, post *model.Post) {
	m.setPostCalls++
	m.posts[post.ID] = *post
}

func (m *mockPostCache) DeletePost(_ context.Context, id int64) {
	m.deletePostCalls++
	delete(m.posts, id)
}

func (m *mockPostCache) GetList(_ context.Context) ([]model.Post, bool) {
	if !m.hasList {
		return nil, false
	}
	return m.list, true
}

func (m *mockPostCache) SetList(_ context.Context, posts []model.Post) {
	m.list = posts
	m.hasList = true
}

func (m *mockPostCache) DeleteList(_ context.Context) {
	m.deleteListCalls++
	m.list = nil
	m.hasList = false
}

// mockViewCounter mimics the Redis sorted set. Entries survive post
// deletion, same as the real thing.
type mockViewCounter struct {
	scores map[int64]int64
}

func newMockViewCounter() *mockViewCounter {
	return &mockViewCounter{scores: make(map[int64]int64)}
}

func (m *mockViewCounter) Increment(_ context.Context, postID int64) int64 {
	m.scores[postID]++
	return m.scores[postID]
}

func (m *mockViewCounter) TopN(_ context.Context, n int) ([]cache.PostScore, error) {
	result := make([]cache.PostScore, 0, len(m.scores))
	for id, count := range m.scores {
		result = append(result, cache.PostScore{PostID: id, Count: count})
	}
	// Selection sort is fine at test sizes.
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].Count > result[i].Count {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	if n < len(result) {
		result = result[:n]
	}
	return result, nil
}

// =========================================================================
// TEST HELPER
// =========================================================================

func newTestPostService(t *testing.T) (*PostService, *mockPostRepo, *mockPostCache, *mockViewCounter) {
	t.Helper()
	repo := newMockPostRepo()
	postCache := newMockPostCache()
	views := newMockViewCounter()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewPostService(repo, postCache, views, logger)
	return svc, repo, postCache, views
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestPostCreate_Success(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	post, err := svc.Create(context.Background(), "Hello World", "first post body")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if post.ID == 0 {
		t.Error("expected post to have an ID")
	}
	if post.Title != "Hello World" {
		t.Errorf("Title = %q, want %q", post.Title, "Hello World")
	}
	if post.ViewCount != 0 {
		t.Errorf("ViewCount = %d, want 0 for a fresh post", post.ViewCount)
	}
}

func TestPostCreate_TrimsTitle(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	post, err := svc.Create(context.Background(), "  spaced  ", "body")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.Title != "spaced" {
		t.Errorf("Title = %q, want trimmed %q", post.Title, "spaced")
	}
}

func TestPostCreate_TitleValidation(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	cases := []struct {
		name  string
		title string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too short", "ab"},
		{"too short multibyte", "博客"}, // 2 characters, 6 bytes
		{"too long", strings.Repeat("a", MaxTitleLength+1)},
		{"too long multibyte", strings.Repeat("博", MaxTitleLength+1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.title, "body")
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

// Title bounds are in characters, not bytes: a 100-character Chinese title
// is 300 bytes and must still be accepted.
func TestPostCreate_MultibyteTitleCountedInCharacters(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	title := strings.Repeat("博", 100)
	post, err := svc.Create(context.Background(), title, "正文内容")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.Title != title {
		t.Errorf("Title = %q, want %q", post.Title, title)
	}

	// Exactly at the upper bound is still valid.
	if _, err := svc.Create(context.Background(), strings.Repeat("博", MaxTitleLength), "body"); err != nil {
		t.Errorf("Create() with %d-character title: error = %v", MaxTitleLength, err)
	}
	// Exactly at the lower bound too.
	if _, err := svc.Create(context.Background(), "博客园", "body"); err != nil {
		t.Errorf("Create() with 3-character title: error = %v", err)
	}
}

// Content has no upper bound — only non-emptiness is enforced.
func TestPostCreate_UnboundedContent(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	_, err := svc.Create(context.Background(), "long read", strings.Repeat("a", 500000))
	if err != nil {
		t.Errorf("Create() with 500KB content: error = %v", err)
	}
}

func TestPostCreate_EmptyContent(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	_, err := svc.Create(context.Background(), "valid title", "   ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestPostCreate_EvictsListOnly(t *testing.T) {
	svc, _, postCache, _ := newTestPostService(t)

	// Prime the list cache, then create.
	postCache.SetList(context.Background(), []model.Post{})

	post, err := svc.Create(context.Background(), "fresh post", "body")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if postCache.hasList {
		t.Error("Create() should evict the cached list")
	}
	if _, ok := postCache.posts[post.ID]; ok {
		t.Error("Create() should not populate the per-post cache")
	}
}

// =========================================================================
// GET TESTS (cache-aside behaviour)
// =========================================================================

func TestPostGetByID_MissPopulatesCache(t *testing.T) {
	svc, repo, postCache, _ := newTestPostService(t)

	created, _ := svc.Create(context.Background(), "cached soon", "body")

	// First read: miss, hits the database, populates the cache.
	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "cached soon" {
		t.Errorf("Title = %q, want %q", got.Title, "cached soon")
	}
	if repo.getByIDCalls != 1 {
		t.Fatalf("getByIDCalls = %d, want 1", repo.getByIDCalls)
	}
	if postCache.setPostCalls != 1 {
		t.Errorf("setPostCalls = %d, want 1", postCache.setPostCalls)
	}

	// Second read: served from cache, database untouched.
	if _, err := svc.GetByID(context.Background(), created.ID); err != nil {
		t.Fatalf("GetByID() second read error = %v", err)
	}
	if repo.getByIDCalls != 1 {
		t.Errorf("getByIDCalls = %d after cache hit, want still 1", repo.getByIDCalls)
	}
}

func TestPostGetByID_NotFoundNotCached(t *testing.T) {
	svc, _, postCache, _ := newTestPostService(t)

	_, err := svc.GetByID(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if postCache.setPostCalls != 0 {
		t.Error("a missing post must never be written to the cache")
	}
}

func TestPostGetAll_MissPopulatesList(t *testing.T) {
	svc, repo, _, _ := newTestPostService(t)

	svc.Create(context.Background(), "post one", "body")
	svc.Create(context.Background(), "post two", "body")

	posts, err := svc.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("GetAll() returned %d posts, want 2", len(posts))
	}
	if repo.listCalls != 1 {
		t.Fatalf("listCalls = %d, want 1", repo.listCalls)
	}

	// Second call is a cache hit.
	if _, err := svc.GetAll(context.Background()); err != nil {
		t.Fatalf("GetAll() second read error = %v", err)
	}
	if repo.listCalls != 1 {
		t.Errorf("listCalls = %d after cache hit, want still 1", repo.listCalls)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestPostUpdate_WritesThroughAndEvictsList(t *testing.T) {
	svc, _, postCache, _ := newTestPostService(t)

	created, _ := svc.Create(context.Background(), "old title", "old body")
	postCache.SetList(context.Background(), []model.Post{*created})

	updated, err := svc.Update(context.Background(), created.ID, "new title", "new body")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Title != "new title" {
		t.Errorf("Title = %q, want %q", updated.Title, "new title")
	}
	// Write-through: the per-post cache entry holds the new version.
	cached, ok := postCache.GetPost(context.Background(), created.ID)
	if !ok {
		t.Fatal("Update() should write the post into the cache")
	}
	if cached.Title != "new title" {
		t.Errorf("cached Title = %q, want %q", cached.Title, "new title")
	}
	if postCache.hasList {
		t.Error("Update() should evict the cached list")
	}
}

func TestPostUpdate_PreservesCreateTime(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	created, _ := svc.Create(context.Background(), "stable time", "body")
	updated, err := svc.Update(context.Background(), created.ID, "renamed post", "body")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.CreateTime.Equal(created.CreateTime) {
		t.Errorf("CreateTime changed on update: %v -> %v", created.CreateTime, updated.CreateTime)
	}
}

func TestPostUpdate_NotFound(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	_, err := svc.Update(context.Background(), 999, "valid title", "body")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPostUpdate_Validation(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	created, _ := svc.Create(context.Background(), "fine title", "body")
	_, err := svc.Update(context.Background(), created.ID, "ab", "body")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestPostDelete_EvictsBothKeys(t *testing.T) {
	svc, _, postCache, _ := newTestPostService(t)

	created, _ := svc.Create(context.Background(), "doomed post", "body")
	svc.GetByID(context.Background(), created.ID) // populate per-post cache
	postCache.SetList(context.Background(), []model.Post{*created})

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, ok := postCache.posts[created.ID]; ok {
		t.Error("Delete() should evict the per-post cache entry")
	}
	if postCache.hasList {
		t.Error("Delete() should evict the cached list")
	}

	_, err := svc.GetByID(context.Background(), created.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
}

func TestPostDelete_LeavesLeaderboardEntry(t *testing.T) {
	svc, _, _, views := newTestPostService(t)

	created, _ := svc.Create(context.Background(), "viewed then gone", "body")
	svc.IncrementViewCount(context.Background(), created.ID)

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if views.scores[created.ID] != 1 {
		t.Error("Delete() must not touch the view leaderboard")
	}
}

func TestPostDelete_NotFound(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	err := svc.Delete(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// VIEW COUNT TESTS
// =========================================================================

func TestIncrementViewCount_CountsUp(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	created, _ := svc.Create(context.Background(), "popular post", "body")

	var last int64
	for i := 0; i < 5; i++ {
		last = svc.IncrementViewCount(context.Background(), created.ID)
	}
	if last != 5 {
		t.Errorf("after 5 increments, count = %d, want 5", last)
	}
}

func TestTopViewed_OrdersByCount(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	a, _ := svc.Create(context.Background(), "post a", "body")
	b, _ := svc.Create(context.Background(), "post b", "body")

	for i := 0; i < 3; i++ {
		svc.IncrementViewCount(context.Background(), b.ID)
	}
	svc.IncrementViewCount(context.Background(), a.ID)

	top, err := svc.TopViewed(context.Background(), 2)
	if err != nil {
		t.Fatalf("TopViewed() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("TopViewed() returned %d posts, want 2", len(top))
	}
	if top[0].ID != b.ID || top[0].ViewCount != 3 {
		t.Errorf("top[0] = (id=%d, views=%d), want (id=%d, views=3)", top[0].ID, top[0].ViewCount, b.ID)
	}
	if top[1].ID != a.ID || top[1].ViewCount != 1 {
		t.Errorf("top[1] = (id=%d, views=%d), want (id=%d, views=1)", top[1].ID, top[1].ViewCount, a.ID)
	}
}

func TestTopViewed_DropsStaleEntries(t *testing.T) {
	svc, _, _, views := newTestPostService(t)

	kept, _ := svc.Create(context.Background(), "survivor", "body")
	svc.IncrementViewCount(context.Background(), kept.ID)

	// A leaderboard entry whose post no longer exists. It may even outrank
	// the survivor; it must still be dropped, not surfaced or errored on.
	views.scores[999] = 50

	top, err := svc.TopViewed(context.Background(), 5)
	if err != nil {
		t.Fatalf("TopViewed() error = %v", err)
	}
	if len(top) != 1 {
		t.Fatalf("TopViewed() returned %d posts, want 1", len(top))
	}
	if top[0].ID != kept.ID {
		t.Errorf("top[0].ID = %d, want %d", top[0].ID, kept.ID)
	}
}

func TestTopViewed_Empty(t *testing.T) {
	svc, _, _, _ := newTestPostService(t)

	top, err := svc.TopViewed(context.Background(), 5)
	if err != nil {
		t.Fatalf("TopViewed() error = %v", err)
	}
	if len(top) != 0 {
		t.Errorf("TopViewed() returned %d posts, want 0", len(top))
	}
}
