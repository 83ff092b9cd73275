package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Clan member roles consulted by the draw engine for XP and ladder bonuses.
const (
	ClanRoleLeader    = "leader"
	ClanRoleXPHunter  = "xp_hunter"
	ClanRoleLuckyStar = "lucky_star"
	ClanRoleMember    = "member"
)

type Clan struct {
	bun.BaseModel `bun:"table:clans,alias:cn"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"name,notnull,unique"`
	XP       int64  `bun:"xp,notnull,default:0"`
	Level    int    `bun:"level,notnull,default:1"`
	Founder  string `bun:"founder,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type ClanMember struct {
	bun.BaseModel `bun:"table:clan_members,alias:cm"`

	ID       int64  `bun:"id,pk,autoincrement"`
	ClanID   int64  `bun:"clan_id,notnull"`
	Username string `bun:"username,notnull"`
	Role     string `bun:"role,notnull,default:'member'"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
