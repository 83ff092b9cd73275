package main

import (
	"context"
	"flag"
	"os"
	"time"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks"
	"github.com/aniforreal/ani-engine/cardpacks/database"
	"github.com/aniforreal/ani-engine/cardpacks/logger"
	"github.com/aniforreal/ani-engine/cardpacks/migration"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler()))

	path := flag.String("config", "config.toml", "path to config")
	batchSize := flag.Int("batch-size", 500, "card insert batch size")
	flag.Parse()

	cfg, err := cardpacks.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Mongo.URI == "" {
		slog.Error("No legacy mongo uri configured, nothing to migrate")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.Any("error", err))
		os.Exit(1)
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		slog.Error("Failed to connect to legacy mongo", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	migrator := migration.NewMigrator(db.BunDB(), client, cfg.Mongo.Database)
	migrator.SetBatchSize(*batchSize)

	if err := migrator.MigrateAll(ctx); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Migration completed successfully")
}
