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

type UserCardRepository interface {
	Get(ctx context.Context, username string, cardID int64, level int) (*models.UserCard, error)
	Create(ctx context.Context, userCard *models.UserCard) error
	GetAllByUsername(ctx context.Context, username string) ([]*models.UserCard, error)
	IncrementQuantity(ctx context.Context, id int64, delta int64) error
	// AddCopy upserts an ownership row for (username, cardID, level):
	// existing rows get quantity+1, missing rows are inserted with
	// quantity 1. Returns true when a new row was created.
	AddCopy(ctx context.Context, username string, cardID int64, level int) (bool, error)
	// PurgeZeroQuantity deletes rows left at quantity <= 0 by sale flows
	// and reports how many were removed.
	PurgeZeroQuantity(ctx context.Context, username string) (int64, error)
}

type userCardRepository struct {
	db *bun.DB
}

func NewUserCardRepository(db *bun.DB) UserCardRepository {
	return &userCardRepository{db: db}
}

func (r *userCardRepository) Get(ctx context.Context, username string, cardID int64, level int) (*models.UserCard, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	userCard := new(models.UserCard)
	err := r.db.NewSelect().
		Model(userCard).
		Where("username = ? AND card_id = ? AND level = ?", username, cardID, level).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user card: %w", err)
	}
	return userCard, nil
}

func (r *userCardRepository) Create(ctx context.Context, userCard *models.UserCard) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	userCard.CreatedAt = time.Now()
	userCard.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(userCard).Exec(ctx)
	return err
}

func (r *userCardRepository) GetAllByUsername(ctx context.Context, username string) ([]*models.UserCard, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var userCards []*models.UserCard
	err := r.db.NewSelect().
		Model(&userCards).
		Where("username = ? AND quantity > 0", username).
		Order("obtained DESC").
		Scan(ctx)
	return userCards, err
}

func (r *userCardRepository) IncrementQuantity(ctx context.Context, id int64, delta int64) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.NewUpdate().
		Model((*models.UserCard)(nil)).
		Set("quantity = quantity + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *userCardRepository) AddCopy(ctx context.Context, username string, cardID int64, level int) (bool, error) {
	existing, err := r.Get(ctx, username, cardID, level)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return false, err
		}
		userCard := &models.UserCard{
			Username: username,
			CardID:   cardID,
			Level:    level,
			Quantity: 1,
			Favorite: false,
			Obtained: time.Now(),
		}
		if err := r.Create(ctx, userCard); err != nil {
			return false, fmt.Errorf("failed to create ownership row: %w", err)
		}
		return true, nil
	}

	if err := r.IncrementQuantity(ctx, existing.ID, 1); err != nil {
		return false, fmt.Errorf("failed to increment ownership row: %w", err)
	}
	return false, nil
}

func (r *userCardRepository) PurgeZeroQuantity(ctx context.Context, username string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.UserCard)(nil)).
		Where("username = ? AND quantity <= 0", username).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return purged, nil
}
