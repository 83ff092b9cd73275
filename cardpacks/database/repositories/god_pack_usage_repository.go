package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aniforreal/ani-engine/cardpacks/config"
	"github.com/aniforreal/ani-engine/cardpacks/database/models"
	"github.com/uptrace/bun"
)

type GodPackUsageRepository interface {
	// CountForDay returns how many god packs the user opened on the given
	// day; 0 when no counter row exists yet.
	CountForDay(ctx context.Context, username, day string) (int, error)
	// Increment bumps the day's counter, creating the row on first use.
	Increment(ctx context.Context, username, day string, n int) error
}

type godPackUsageRepository struct {
	db *bun.DB
}

func NewGodPackUsageRepository(db *bun.DB) GodPackUsageRepository {
	return &godPackUsageRepository{db: db}
}

func (r *godPackUsageRepository) CountForDay(ctx context.Context, username, day string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	usage := new(models.GodPackDailyUsage)
	err := r.db.NewSelect().
		Model(usage).
		Where("username = ? AND day = ?", username, day).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get god pack usage: %w", err)
	}
	return usage.PacksOpened, nil
}

func (r *godPackUsageRepository) Increment(ctx context.Context, username, day string, n int) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	now := time.Now()
	usage := &models.GodPackDailyUsage{
		Username:    username,
		Day:         day,
		PacksOpened: n,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := r.db.NewInsert().
		Model(usage).
		On("CONFLICT (username, day) DO UPDATE").
		Set("packs_opened = gpu.packs_opened + EXCLUDED.packs_opened").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment god pack usage: %w", err)
	}
	return nil
}
