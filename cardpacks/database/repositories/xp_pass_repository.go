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

type XpPassRepository interface {
	// GetActive returns the user's unexpired pass, or nil when none exists.
	GetActive(ctx context.Context, username string, now time.Time) (*models.XpPass, error)
	Create(ctx context.Context, pass *models.XpPass) error
}

type xpPassRepository struct {
	db *bun.DB
}

func NewXpPassRepository(db *bun.DB) XpPassRepository {
	return &xpPassRepository{db: db}
}

func (r *xpPassRepository) GetActive(ctx context.Context, username string, now time.Time) (*models.XpPass, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	pass := new(models.XpPass)
	err := r.db.NewSelect().
		Model(pass).
		Where("username = ? AND active = true AND expires_at > ?", username, now).
		Order("expires_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get xp pass: %w", err)
	}
	return pass, nil
}

func (r *xpPassRepository) Create(ctx context.Context, pass *models.XpPass) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	pass.CreatedAt = time.Now()
	pass.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(pass).Exec(ctx)
	return err
}
