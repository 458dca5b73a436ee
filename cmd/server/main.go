// Package main is the entry point for the miniblog server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts in the main() function of the "main" package.
// main is kept deliberately thin — it:
//  1. Builds the logger
//  2. Loads configuration from the environment
//  3. Hands both to internal/server and blocks on Start()
//
// All actual logic lives in the imported packages. The cmd/server/ layout
// is the Go convention for executables; a second binary (say a migration
// tool) would get its own cmd/<name>/main.go.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hzj/miniblog/internal/config"
	"github.com/hzj/miniblog/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// JWT_SECRET has no default on purpose: a baked-in signing key would
	// make every deployment's tokens forgeable. Generate one with:
	//   JWT_SECRET=$(openssl rand -hex 32)
	if cfg.JWT.Secret == "" {
		logger.Error("JWT_SECRET is not set — refusing to start without a signing key")
		os.Exit(1)
	}

	// The GitHub callback must match the OAuth app registration; default to
	// the local development URL when unset.
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/api/v1/auth/oauth/callback", cfg.Port)
	}

	// Make sure the SQLite data directory exists before opening the file.
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
