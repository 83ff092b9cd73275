package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/aniforreal/ani-engine/cardpacks/config"
	"github.com/aniforreal/ani-engine/cardpacks/database/models"
	"github.com/uptrace/bun"
)

type MissionRepository interface {
	Increment(ctx context.Context, username, event string) error
	GetCount(ctx context.Context, username, event string) (int64, error)
}

type missionRepository struct {
	db *bun.DB
}

func NewMissionRepository(db *bun.DB) MissionRepository {
	return &missionRepository{db: db}
}

func (r *missionRepository) Increment(ctx context.Context, username, event string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	now := time.Now()
	progress := &models.MissionProgress{
		Username:  username,
		Event:     event,
		Count:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.NewInsert().
		Model(progress).
		On("CONFLICT (username, event) DO UPDATE").
		Set("count = mp.count + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to increment mission %q: %w", event, err)
	}
	return nil
}

func (r *missionRepository) GetCount(ctx context.Context, username, event string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	progress := new(models.MissionProgress)
	err := r.db.NewSelect().
		Model(progress).
		Where("username = ? AND event = ?", username, event).
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	return progress.Count, nil
}
