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

type ClanRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Clan, error)
	// GetMemberRole returns the member's role or "" when the user is not
	// in the clan's roster.
	GetMemberRole(ctx context.Context, clanID int64, username string) (string, error)
	// AddXP increments clan xp atomically and returns the new total.
	AddXP(ctx context.Context, clanID int64, delta int64) (int64, error)
	UpdateLevel(ctx context.Context, clanID int64, level int) error
}

type clanRepository struct {
	db *bun.DB
}

func NewClanRepository(db *bun.DB) ClanRepository {
	return &clanRepository{db: db}
}

func (r *clanRepository) GetByID(ctx context.Context, id int64) (*models.Clan, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	clan := new(models.Clan)
	err := r.db.NewSelect().
		Model(clan).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get clan: %w", err)
	}
	return clan, nil
}

func (r *clanRepository) GetMemberRole(ctx context.Context, clanID int64, username string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	member := new(models.ClanMember)
	err := r.db.NewSelect().
		Model(member).
		Where("clan_id = ? AND username = ?", clanID, username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get clan member: %w", err)
	}
	return member.Role, nil
}

func (r *clanRepository) AddXP(ctx context.Context, clanID int64, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var xp int64
	err := r.db.NewUpdate().
		Model((*models.Clan)(nil)).
		Set("xp = xp + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", clanID).
		Returning("xp").
		Scan(ctx, &xp)
	if err != nil {
		return 0, fmt.Errorf("failed to add clan xp: %w", err)
	}
	return xp, nil
}

func (r *clanRepository) UpdateLevel(ctx context.Context, clanID int64, level int) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.NewUpdate().
		Model((*models.Clan)(nil)).
		Set("level = ?", level).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", clanID).
		Exec(ctx)
	return err
}
