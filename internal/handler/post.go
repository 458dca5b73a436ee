package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hzj/miniblog/internal/apperror"
	"github.com/hzj/miniblog/internal/config"
	"github.com/hzj/miniblog/internal/service"
)

// topPostsLimit is how many entries the leaderboard endpoint returns.
const topPostsLimit = 5

// PostHandler translates HTTP requests into PostService calls and service
// results back into response envelopes. It owns no business logic: parsing,
// the view-count merge on single-post reads, and envelope writing is all it
// does.
type PostHandler struct {
	posts  *service.PostService
	blog   config.Blog
	logger *slog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts *service.PostService, blog config.Blog, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, blog: blog, logger: logger}
}

// postRequest is the request body shared by create and update.
type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// parsePostID extracts and parses the {id} path parameter.
// Chi populates r.PathValue for named route parameters.
func parsePostID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "post id must be a positive integer")
	}
	return id, nil
}

// HandleCreate saves a new post.
//
// HTTP: POST /api/v1/posts
// REQUEST BODY: {"title": "...", "content": "..."}
//
// The created post comes back with its assigned id and viewCount 0 — no one
// has read it yet.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid post JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	post, err := h.posts.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, post)
}

// HandleList returns all posts.
//
// HTTP: GET /api/v1/posts
//
// Listing is a browse, not a read: it does NOT bump any view counters, and
// the posts carry viewCount 0. The per-post read and the leaderboard are
// where counts surface.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, posts)
}

// HandleGetByID returns one post and counts the view.
//
// HTTP: GET /api/v1/posts/{id}
//
// ORDER MATTERS:
//  1. Resolve the post (cache or database) — a 404 must not count a view.
//  2. Bump the counter and fold the new total into the response.
//
// The increment happens AFTER the existence check on purpose: requesting a
// nonexistent id thousands of times must not seed leaderboard entries for
// posts that were never written.
func (h *PostHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	post.ViewCount = h.posts.IncrementViewCount(r.Context(), id)

	writeSuccess(w, post)
}

// HandleUpdate modifies an existing post.
//
// HTTP: PUT /api/v1/posts/{id}
// REQUEST BODY: {"title": "...", "content": "..."}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid post JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	post, err := h.posts.Update(r.Context(), id, req.Title, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /api/v1/posts/{id}
//
// Successful deletion answers 200 with a confirmation string as data, not
// 204 — the frontend shows the message verbatim and the envelope shape
// stays uniform across every endpoint.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parsePostID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, fmt.Sprintf("Post deleted successfully with id: %d", id))
}

// HandleTop returns the five most-viewed posts, highest first.
//
// HTTP: GET /api/v1/posts/top
//
// The list can be shorter than five: deleted posts keep their leaderboard
// entries but are filtered out here.
func (h *PostHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.TopViewed(r.Context(), topPostsLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, posts)
}

// blogInfo is the payload of the info endpoint.
type blogInfo struct {
	Author         string `json:"author"`
	WelcomeMessage string `json:"welcomeMessage"`
}

// HandleInfo returns the blog's author and welcome message, straight from
// configuration.
//
// HTTP: GET /api/v1/info
func (h *PostHandler) HandleInfo(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, blogInfo{
		Author:         h.blog.Author,
		WelcomeMessage: h.blog.WelcomeMessage,
	})
}
