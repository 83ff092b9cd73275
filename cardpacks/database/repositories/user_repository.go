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

// Ticket columns a draw may spend from or grant to. Anything else is a
// programming error, not user input.
const (
	TicketColumnRegular = "tickets"
	TicketColumnElite   = "elite_tickets"
	TicketColumnIcon    = "icon_tickets"
)

var ErrUnknownTicketColumn = errors.New("unknown ticket column")

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	// DeductTickets decrements the given ticket column only when the
	// balance covers the amount. Returns the new balance and whether the
	// deduction happened; a false result means insufficient funds.
	DeductTickets(ctx context.Context, username, column string, amount int64) (int64, bool, error)
	AddTickets(ctx context.Context, username, column string, amount int64) (int64, error)
	// AddScore increments the score atomically and returns the new total.
	AddScore(ctx context.Context, username string, delta int64) (int64, error)
	AddXP(ctx context.Context, username string, delta int64) (int64, error)
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

func validTicketColumn(column string) bool {
	switch column {
	case TicketColumnRegular, TicketColumnElite, TicketColumnIcon:
		return true
	}
	return false
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	return err
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	user.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)
	return err
}

func (r *userRepository) DeductTickets(ctx context.Context, username, column string, amount int64) (int64, bool, error) {
	if !validTicketColumn(column) {
		return 0, false, ErrUnknownTicketColumn
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	// Conditional decrement: the WHERE clause doubles as the balance
	// check, so concurrent draws cannot overspend.
	var balance int64
	err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("? = ? - ?", bun.Ident(column), bun.Ident(column), amount).
		Set("updated_at = ?", time.Now()).
		Where("username = ?", username).
		Where("? >= ?", bun.Ident(column), amount).
		Returning("?", bun.Ident(column)).
		Scan(ctx, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to deduct %s: %w", column, err)
	}
	return balance, true, nil
}

func (r *userRepository) AddTickets(ctx context.Context, username, column string, amount int64) (int64, error) {
	if !validTicketColumn(column) {
		return 0, ErrUnknownTicketColumn
	}

	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var balance int64
	err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("? = ? + ?", bun.Ident(column), bun.Ident(column), amount).
		Set("updated_at = ?", time.Now()).
		Where("username = ?", username).
		Returning("?", bun.Ident(column)).
		Scan(ctx, &balance)
	if err != nil {
		return 0, fmt.Errorf("failed to add %s: %w", column, err)
	}
	return balance, nil
}

func (r *userRepository) AddScore(ctx context.Context, username string, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var score int64
	err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("score = score + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("username = ?", username).
		Returning("score").
		Scan(ctx, &score)
	if err != nil {
		return 0, fmt.Errorf("failed to add score: %w", err)
	}
	return score, nil
}

func (r *userRepository) AddXP(ctx context.Context, username string, delta int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var xp int64
	err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("xp = xp + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("username = ?", username).
		Returning("xp").
		Scan(ctx, &xp)
	if err != nil {
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}
	return xp, nil
}
