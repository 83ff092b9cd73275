package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Rarity tiers. The score table and the legacy ladders group these in
// pairs: basic/common, elite/epic, legendary/ultimate, goat/godlike.
const (
	RarityBasic     = "basic"
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityElite     = "elite"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
	RarityUltimate  = "ultimate"
	RarityGoat      = "goat"
	RarityGodlike   = "godlike"
)

type Card struct {
	bun.BaseModel `bun:"table:cards,alias:c"`

	ID            int64  `bun:"id,pk"` // catalog IDs come from the import, not a sequence
	Name          string `bun:"name,notnull"`
	Character     string `bun:"character,notnull"`
	Rarity        string `bun:"rarity,notnull"`
	OverallRating int    `bun:"overall_rating,notnull"`
	Obtainable    bool   `bun:"obtainable,notnull,default:true"`
	ImagePath     string `bun:"image_path,type:text,default:''"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// EliteOrAbove reports whether the card sits in the elite tier or higher.
// The god-pack pool is restricted to these.
func (c *Card) EliteOrAbove() bool {
	switch c.Rarity {
	case RarityElite, RarityEpic, RarityLegendary, RarityUltimate, RarityGoat, RarityGodlike:
		return true
	}
	return false
}
