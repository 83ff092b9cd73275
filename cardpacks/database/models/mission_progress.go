package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MissionProgress backs the fire-and-forget mission side channel. One row
// per (user, event) with a monotonically increasing counter.
type MissionProgress struct {
	bun.BaseModel `bun:"table:mission_progress,alias:mp"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,notnull"`
	Event    string `bun:"event,notnull"`
	Count    int64  `bun:"count,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
