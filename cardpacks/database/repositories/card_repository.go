package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/aniforreal/ani-engine/cardpacks/config"
	"github.com/aniforreal/ani-engine/cardpacks/database/models"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
	"github.com/uptrace/bun"
	"golang.org/x/sync/singleflight"
)

const obtainableCacheKey = "catalog:obtainable"

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	// GetObtainable returns the draw population: every card flagged
	// obtainable, cached briefly since it is read once per draw call.
	GetObtainable(ctx context.Context) ([]*models.Card, error)
	GetByNameFuzzy(ctx context.Context, query string) (*models.Card, error)
	BulkCreate(ctx context.Context, cards []*models.Card) (int, error)
	GetCardCount(ctx context.Context) (int64, error)
	InvalidateCatalog()
}

type cardRepository struct {
	db    *bun.DB
	cache *lru.Cache
	group singleflight.Group
}

type cacheEntry struct {
	cards   []*models.Card
	expires time.Time
}

func NewCardRepository(db *bun.DB) CardRepository {
	cache, _ := lru.New(config.CatalogCacheSize)
	return &cardRepository{
		db:    db,
		cache: cache,
	}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	card.CreatedAt = time.Now()
	card.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(card).
		Exec(ctx)
	if err == nil {
		r.InvalidateCatalog()
	}
	return err
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Where("id = ?", id).
		Scan(ctx)
	return card, err
}

func (r *cardRepository) GetObtainable(ctx context.Context) ([]*models.Card, error) {
	if entry, ok := r.cache.Get(obtainableCacheKey); ok {
		cached := entry.(cacheEntry)
		if time.Now().Before(cached.expires) {
			return cached.cards, nil
		}
		r.cache.Remove(obtainableCacheKey)
	}

	// Concurrent draws share one catalog query
	v, err, _ := r.group.Do(obtainableCacheKey, func() (interface{}, error) {
		qctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
		defer cancel()

		var cards []*models.Card
		err := r.db.NewSelect().
			Model(&cards).
			Where("obtainable = true").
			Order("id ASC").
			Scan(qctx)
		if err != nil {
			return nil, err
		}

		r.cache.Add(obtainableCacheKey, cacheEntry{
			cards:   cards,
			expires: time.Now().Add(config.CacheExpiration),
		})
		return cards, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load card catalog: %w", err)
	}
	return v.([]*models.Card), nil
}

// GetByNameFuzzy resolves a card by approximate name match over the
// obtainable catalog. Used by admin tooling; draws never need it.
func (r *cardRepository) GetByNameFuzzy(ctx context.Context, query string) (*models.Card, error) {
	cards, err := r.GetObtainable(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no card matching %q", query)
	}
	return cards[matches[0].Index], nil
}

func (r *cardRepository) BulkCreate(ctx context.Context, cards []*models.Card) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	now := time.Now()
	for _, card := range cards {
		card.CreatedAt = now
		card.UpdatedAt = now
	}

	inserted := 0
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for start := 0; start < len(cards); start += config.DefaultBatchSize {
			end := start + config.DefaultBatchSize
			if end > len(cards) {
				end = len(cards)
			}
			batch := cards[start:end]
			res, err := tx.NewInsert().
				Model(&batch).
				Column("id", "name", "character", "rarity", "overall_rating", "obtainable", "image_path", "created_at", "updated_at").
				On("CONFLICT (id) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("batch insert failed at offset %d: %w", start, err)
			}
			if rows, err := res.RowsAffected(); err == nil {
				inserted += int(rows)
			}
		}
		return nil
	})
	if err != nil {
		return inserted, err
	}

	r.InvalidateCatalog()
	return inserted, nil
}

func (r *cardRepository) GetCardCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	count, err := r.db.NewSelect().
		Model((*models.Card)(nil)).
		Count(ctx)
	return int64(count), err
}

func (r *cardRepository) InvalidateCatalog() {
	r.cache.Remove(obtainableCacheKey)
}
