package migration

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks/database/models"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const defaultBatchSize = 500

// MongoCard mirrors the card documents of the legacy platform export.
type MongoCard struct {
	ID         int64   `bson:"card_id"`
	Name       string  `bson:"name"`
	Character  string  `bson:"character"`
	Rarity     string  `bson:"rarity"`
	Rating     int     `bson:"overall_rating"`
	Obtainable bool    `bson:"obtainable"`
	Image      string  `bson:"image"`
}

// MongoUser mirrors the user documents of the legacy export.
type MongoUser struct {
	Username     string  `bson:"username"`
	Tickets      int64   `bson:"tickets"`
	EliteTickets int64   `bson:"elite_tickets"`
	IconTickets  int64   `bson:"icon_tickets"`
	Score        float64 `bson:"score"`
	Wallet       string  `bson:"wallet_address"`
}

// Migrator copies the legacy card catalog and user balances out of the
// old platform's MongoDB export into Postgres.
type Migrator struct {
	pg        *bun.DB
	mongoDB   *mongo.Database
	batchSize int
}

func NewMigrator(pg *bun.DB, client *mongo.Client, dbName string) *Migrator {
	return &Migrator{
		pg:        pg,
		mongoDB:   client.Database(dbName),
		batchSize: defaultBatchSize,
	}
}

func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// MigrateAll imports cards first so user balances can be sanity-checked
// against a populated catalog.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	if err := m.MigrateCards(ctx); err != nil {
		return fmt.Errorf("card migration failed: %w", err)
	}
	if err := m.MigrateUsers(ctx); err != nil {
		return fmt.Errorf("user migration failed: %w", err)
	}
	return nil
}

func (m *Migrator) MigrateCards(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("cards").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query legacy cards: %w", err)
	}
	defer cur.Close(ctx)

	var batch []*models.Card
	total := 0
	for cur.Next(ctx) {
		var mc MongoCard
		if err := cur.Decode(&mc); err != nil {
			slog.Warn("Skipping undecodable card document", slog.Any("error", err))
			continue
		}
		batch = append(batch, convertCard(mc))
		if len(batch) >= m.batchSize {
			if err := m.insertCards(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := m.insertCards(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
	}

	slog.Info("Card migration complete", slog.Int("cards", total))
	return nil
}

func (m *Migrator) MigrateUsers(ctx context.Context) error {
	cur, err := m.mongoDB.Collection("users").Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to query legacy users: %w", err)
	}
	defer cur.Close(ctx)

	total := 0
	for cur.Next(ctx) {
		var mu MongoUser
		if err := cur.Decode(&mu); err != nil {
			slog.Warn("Skipping undecodable user document", slog.Any("error", err))
			continue
		}
		if mu.Username == "" {
			continue
		}
		user := convertUser(mu)
		_, err := m.pg.NewInsert().
			Model(user).
			On("CONFLICT (username) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert user %q: %w", mu.Username, err)
		}
		total++
	}
	if err := cur.Err(); err != nil {
		return err
	}

	slog.Info("User migration complete", slog.Int("users", total))
	return nil
}

func (m *Migrator) insertCards(ctx context.Context, batch []*models.Card) error {
	return m.pg.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&batch).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("card batch insert failed: %w", err)
		}
		return nil
	})
}

func convertCard(mc MongoCard) *models.Card {
	now := time.Now()
	return &models.Card{
		ID:            mc.ID,
		Name:          mc.Name,
		Character:     mc.Character,
		Rarity:        mc.Rarity,
		OverallRating: mc.Rating,
		Obtainable:    mc.Obtainable,
		ImagePath:     mc.Image,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func convertUser(mu MongoUser) *models.User {
	now := time.Now()
	return &models.User{
		Username:      mu.Username,
		Tickets:       mu.Tickets,
		EliteTickets:  mu.EliteTickets,
		IconTickets:   mu.IconTickets,
		Score:         int64(mu.Score),
		WalletAddress: mu.Wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
