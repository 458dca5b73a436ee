// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: it is the one place where the whole
// dependency chain is assembled —
//
//	config → SQLite + Redis connections
//	       → repositories, caches, token service, OAuth provider
//	       → services
//	       → handlers + auth middleware
//	       → routes
//
// main.go stays minimal (load config, build logger, call New and Start), and
// nothing below this layer knows how its dependencies were constructed.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/hzj/miniblog/internal/auth"
	"github.com/hzj/miniblog/internal/cache"
	"github.com/hzj/miniblog/internal/config"
	"github.com/hzj/miniblog/internal/handler"
	"github.com/hzj/miniblog/internal/middleware"
	sqliteRepo "github.com/hzj/miniblog/internal/repository/sqlite"
	"github.com/hzj/miniblog/internal/service"
	"github.com/hzj/miniblog/internal/sms"
)

// Server owns the router and the two external connections. Both are closed
// during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	rdb    *redis.Client
}

// New opens the database and Redis connections, wires every layer together,
// and registers the routes. On any wiring failure the already-opened
// connections are closed before returning.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	rdb, err := cache.NewClient(cfg.Redis)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		rdb:    rdb,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		rdb.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes assembles the dependency chain and maps it onto URLs.
//
// ROUTE STRUCTURE:
//
//	POST   /api/v1/auth/send-code       → request an SMS login code
//	POST   /api/v1/auth/login-by-sms    → redeem a code for a JWT
//	GET    /api/v1/auth/oauth/url       → GitHub authorization URL
//	GET    /api/v1/auth/oauth/callback  → GitHub redirect target
//	GET    /api/v1/info                 → blog author + welcome message
//	GET    /api/v1/posts                → list posts
//	GET    /api/v1/posts/top            → view-count leaderboard
//	GET    /api/v1/posts/{id}           → read one post (counts the view)
//	POST   /api/v1/posts                → create post        [auth required]
//	PUT    /api/v1/posts/{id}           → update post        [auth required]
//	DELETE /api/v1/posts/{id}           → delete post        [auth required]
//
// MIDDLEWARE ORDER MATTERS — they run in registration order:
//  1. RequestID, RealIP — request metadata for logs
//  2. Recoverer — panics become 500s instead of crashes
//  3. Logger — timing and status for every request
//  4. Gate — resolves a Bearer token into an identity when one is present,
//     but never rejects. Rejection is opt-in: only the write routes add
//     Require on top.
//
// ROUTE ORDER MATTERS TOO: /posts/top is registered before /posts/{id}.
// Chi prefers static segments over parameters, but keeping them in this
// order makes the intent readable — "top" is not a post id.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Shared infrastructure ===
	tokens, err := auth.NewTokenService(s.config.JWT.Secret, s.config.JWT.TTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	github := auth.NewGitHubProvider(
		s.config.GitHub.ClientID,
		s.config.GitHub.ClientSecret,
		s.config.GitHub.CallbackURL,
	)
	if !github.Enabled() {
		s.logger.Warn("github oauth is not configured, oauth endpoints will answer 404")
	}

	postCache := cache.NewRedisPostCache(s.rdb, s.config.Redis.CacheTTL, s.logger)
	views := cache.NewRedisViewCounter(s.rdb, s.logger)
	codes := cache.NewRedisCodeStore(s.rdb)
	sender := sms.NewLogSender(s.logger)

	// === Services ===
	authService := service.NewAuthService(s.db.Users(), codes, sender, tokens, github, s.logger)
	postService := service.NewPostService(s.db.Posts(), postCache, views, s.logger)

	// === Handlers + auth middleware ===
	authHandler := handler.NewAuthHandler(authService, s.config.FrontendURL, s.logger)
	postHandler := handler.NewPostHandler(postService, s.config.Blog, s.logger)
	authenticator := auth.NewAuthenticator(tokens, s.db.Users(), s.logger)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Gate runs on every API route: it annotates the request context
		// with the caller's identity when a valid token is present and
		// passes everything through otherwise.
		r.Use(authenticator.Gate)

		r.Post("/auth/send-code", authHandler.HandleSendCode)
		r.Post("/auth/login-by-sms", authHandler.HandleLoginBySMS)
		r.Get("/auth/oauth/url", authHandler.HandleOAuthURL)
		r.Get("/auth/oauth/callback", authHandler.HandleOAuthCallback)

		r.Get("/info", postHandler.HandleInfo)
		r.Get("/posts", postHandler.HandleList)
		r.Get("/posts/top", postHandler.HandleTop)
		r.Get("/posts/{id}", postHandler.HandleGetByID)

		// Writes require a logged-in caller.
		r.Group(func(r chi.Router) {
			r.Use(authenticator.Require)
			r.Post("/posts", postHandler.HandleCreate)
			r.Put("/posts/{id}", postHandler.HandleUpdate)
			r.Delete("/posts/{id}", postHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, close Redis and the database.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.rdb.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.Database.Path),
			slog.String("redis", s.config.Redis.Addr),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
