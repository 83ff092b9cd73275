package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks"
	"github.com/aniforreal/ani-engine/cardpacks/database"
	"github.com/aniforreal/ani-engine/cardpacks/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting AniForReal pack engine",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := cardpacks.LoadConfig(*path)
	if err != nil {
		logger.LogError("Failed to load configuration", err)
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		logger.LogError("Database connection failed", err,
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		logger.LogError("Failed to initialize database schema", err)
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	app := cardpacks.New(*cfg, version, commit)
	app.DB = db

	if err := app.Setup(); err != nil {
		logger.LogError("Failed to set up application", err)
		db.Close()
		os.Exit(-1)
	}

	logger.LogSystem("Pack engine ready",
		slog.Int("max_godpacks_daily", cfg.Draw.MaxGodPacksDaily))

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	slog.Info("Shutting down...")
	app.Shutdown(10 * time.Second)
}
