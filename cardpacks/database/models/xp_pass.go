package models

import (
	"time"

	"github.com/uptrace/bun"
)

// XpPass grants a +20% XP multiplier on draws while active. Read-only
// from the engine's side; the shop flow creates and renews these.
type XpPass struct {
	bun.BaseModel `bun:"table:xp_passes,alias:xp"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Username  string    `bun:"username,notnull"`
	Active    bool      `bun:"active,notnull,default:true"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Valid reports whether the pass is active and unexpired at the given time.
func (p *XpPass) Valid(now time.Time) bool {
	return p != nil && p.Active && p.ExpiresAt.After(now)
}
