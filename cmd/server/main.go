// Package main is the entry point for the Fitness Hub server.
//
// main only reads configuration, creates the logger and hands both to
// internal/server. All actual logic lives in the internal packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/fitness-hub/internal/config"
	"github.com/sakif/fitness-hub/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Every setting comes from the environment; see internal/config for the
	// names and defaults.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// LOG_FORMAT=json for production log shipping, text otherwise.
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	// === 3. RESOLVE FILE PATHS ===
	// Relative paths are taken from the working directory, which is the
	// project root under `go run ./cmd/server`.
	cfg.TemplateDir, _ = filepath.Abs(cfg.TemplateDir)
	cfg.StaticDir, _ = filepath.Abs(cfg.StaticDir)

	// === 4. DATABASE DIRECTORY ===
	// Only the local backend keeps a database file.
	if cfg.Backend == config.BackendLocal {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
