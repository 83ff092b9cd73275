package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GodPackDailyUsage counts god packs opened per user per calendar day.
// Rows are keyed by date string (YYYY-MM-DD) so old counters expire by
// simply never being read again; nothing deletes them.
type GodPackDailyUsage struct {
	bun.BaseModel `bun:"table:god_pack_daily_usage,alias:gpu"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Username    string `bun:"username,notnull"`
	Day         string `bun:"day,notnull"`
	PacksOpened int    `bun:"packs_opened,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// UsageDay formats a timestamp the way usage rows are keyed.
func UsageDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
