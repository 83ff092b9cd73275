package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is keyed by username: the mini-app identifies players by their
// wallet-verified handle, not a numeric ID.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	Username string `bun:"username,pk"`

	// Ticket balances, one column per pack currency
	Tickets      int64 `bun:"tickets,notnull,default:0"`
	EliteTickets int64 `bun:"elite_tickets,notnull,default:0"`
	IconTickets  int64 `bun:"icon_tickets,notnull,default:0"`

	Score int64 `bun:"score,notnull,default:0"`
	XP    int64 `bun:"xp,notnull,default:0"`

	// Clan membership, zero when the user has not joined one
	ClanID int64 `bun:"clan_id,nullzero"`

	// Pass flags
	PremiumPass bool `bun:"premium_pass,notnull,default:false"`
	IconPass    bool `bun:"icon_pass,notnull,default:false"`

	WalletAddress string `bun:"wallet_address,type:text,default:''"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
