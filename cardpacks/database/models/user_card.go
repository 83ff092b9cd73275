package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserCard is one ownership row per (user, card, level) with a copy
// counter. Quantity never goes below zero; rows left at zero by sale
// flows are purged opportunistically before a draw.
type UserCard struct {
	bun.BaseModel `bun:"table:user_cards,alias:uc"`

	ID       int64     `bun:"id,pk,autoincrement"`
	Username string    `bun:"username,notnull"`
	CardID   int64     `bun:"card_id,notnull"`
	Level    int       `bun:"level,notnull,default:1"`
	Quantity int64     `bun:"quantity,notnull,default:1"`
	Favorite bool      `bun:"favorite,notnull,default:false"`
	Obtained time.Time `bun:"obtained,notnull,default:current_timestamp"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
