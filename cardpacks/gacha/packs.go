package gacha

import (
	"fmt"
	"strings"

	"github.com/aniforreal/ani-engine/cardpacks/database/models"
	"github.com/aniforreal/ani-engine/cardpacks/database/repositories"
)

// PackType selects the draw table, ticket currency and reward bases for
// a draw. The set is closed; anything the caller sends is parsed into one
// of these four tags up front.
type PackType int

const (
	PackRegular PackType = iota
	PackElite
	PackIcon
	PackGod
)

func (p PackType) String() string {
	switch p {
	case PackRegular:
		return "regular"
	case PackElite:
		return "elite"
	case PackIcon:
		return "icon"
	case PackGod:
		return "god"
	}
	return "unknown"
}

// ParsePackType maps the caller-facing pack tags onto the enum. The shop
// historically sends "legendary" for the elite pack, so that alias stays.
func ParsePackType(s string) (PackType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regular", "classic":
		return PackRegular, nil
	case "legendary", "elite":
		return PackElite, nil
	case "icon":
		return PackIcon, nil
	case "god":
		return PackGod, nil
	}
	return PackRegular, fmt.Errorf("unknown pack type %q", s)
}

// packDef is one row of the table that replaces per-pack-type branch
// duplication: currency, ladder and reward bases in one place.
type packDef struct {
	ticketColumn string
	currencyName string
	ladder       Ladder
	xpBase       int64
	clanXPGain   int64
}

var packDefs = map[PackType]packDef{
	PackRegular: {
		ticketColumn: repositories.TicketColumnRegular,
		currencyName: "tickets",
		ladder:       classicLadder,
		xpBase:       50,
		clanXPGain:   10,
	},
	PackElite: {
		ticketColumn: repositories.TicketColumnElite,
		currencyName: "elite tickets",
		ladder:       eliteLadder,
		xpBase:       100,
		clanXPGain:   20,
	},
	PackIcon: {
		ticketColumn: repositories.TicketColumnIcon,
		currencyName: "icon tickets",
		ladder:       iconLadder,
		xpBase:       100,
		clanXPGain:   20,
	},
	// God packs are bought with an external payment, not tickets.
	PackGod: {
		ladder:     godLadder,
		xpBase:     200,
		clanXPGain: 5,
	},
}

// The rating ladders below define the economic balance of the product and
// are reproduced digit for digit. Each ladder sums to 100 including its
// final catch-all rung.
var (
	classicLadder = NewLadder(
		ratingRung(43.90, 75, 79),
		ratingRung(25.08, 80, 84),
		ratingRung(16.72, 85, 85),
		ratingRung(7.00, 86, 86),
		ratingRung(4.00, 87, 87),
		ratingRung(1.50, 88, 88),
		ratingRung(0.80, 89, 89),
		ratingRung(0.50, 90, 90),
		ratingRung(0.00, 91, 91),
		ratingRung(0.50, 92, 92),
	)

	eliteLadder = NewLadder(
		ratingRung(10.00, 75, 79),
		ratingRung(22.00, 80, 84),
		ratingRung(21.00, 85, 85),
		ratingRung(17.50, 86, 86),
		ratingRung(16.00, 87, 87),
		ratingRung(10.75, 88, 88),
		ratingRung(2.00, 89, 89),
		ratingRung(0.50, 90, 90),
		ratingRung(0.25, 91, 91),
		ratingRung(0.00, 92, 92),
	)

	iconLadder = NewLadder(
		ratingRung(5.00, 75, 78),
		ratingRung(19.75, 79, 84),
		ratingRung(22.00, 85, 85),
		ratingRung(19.00, 86, 86),
		ratingRung(16.50, 87, 87),
		ratingRung(10.50, 88, 88),
		ratingRung(4.00, 89, 89),
		ratingRung(1.50, 90, 90),
		ratingRung(0.75, 91, 91),
		ratingRung(1.00, 92, 92),
	)

	// The god ladder is weighted against its own sum, not a 100-point
	// scale: rolls are drawn uniformly in [0, Total()).
	godLadder = NewLadder(
		ratingRung(9, 84, 84),
		ratingRung(11, 85, 85),
		ratingRung(13, 86, 86),
		ratingRung(15, 87, 87),
		ratingRung(17, 88, 88),
		ratingRung(14, 89, 89),
		ratingRung(11, 90, 90),
		ratingRung(8, 91, 91),
		ratingRung(0.75, 92, 92),
		ratingRung(0.475, 93, 93),
		ratingRung(0.0475, 94, 94),
		ratingRung(0.12, 95, 95),
		ratingRung(0.09, 96, 96),
		ratingRung(0.07, 97, 97),
		ratingRung(0.05, 98, 98),
		ratingRung(0.02, 99, 99),
	)
)

// GodPackMinRating bounds the god-pack pool together with the
// elite-and-above rarity filter.
const GodPackMinRating = 84

// Legacy rarity ladders for the older premium/free classic packs. The
// lucky_star and leader clan roles each widen the legendary bucket by a
// flat two percentage points, taken out of the common bucket.
const legacyRoleBonus = 2.0

func LegacyLadder(premium, luckyStar, leader bool) Ladder {
	common, rare, epic, legendary := 60.0, 25.0, 10.0, 5.0
	if premium {
		common, rare, epic, legendary = 45.0, 30.0, 15.0, 10.0
	}
	if luckyStar {
		common -= legacyRoleBonus
		legendary += legacyRoleBonus
	}
	if leader {
		common -= legacyRoleBonus
		legendary += legacyRoleBonus
	}
	return NewLadder(
		rarityRung(common, models.RarityCommon),
		rarityRung(rare, models.RarityRare),
		rarityRung(epic, models.RarityEpic),
		rarityRung(legendary, models.RarityLegendary),
	)
}

// rarityScores is the fixed rarity to score table. Tiers outside it
// contribute nothing.
var rarityScores = map[string]float64{
	models.RarityLegendary: 100,
	models.RarityUltimate:  100,
	models.RarityEpic:      40,
	models.RarityElite:     40,
	models.RarityRare:      25,
	models.RarityCommon:    5,
	models.RarityBasic:     5,
}

func ScoreForRarity(rarity string) float64 {
	return rarityScores[rarity]
}

// clanLevels maps required XP to clan level, highest first; a clan's
// level is the highest row whose threshold the xp total meets.
var clanLevels = []struct {
	Level int
	XP    int64
}{
	{10, 100000},
	{9, 60000},
	{8, 40000},
	{7, 25000},
	{6, 15000},
	{5, 10000},
	{4, 6000},
	{3, 3000},
	{2, 1000},
	{1, 0},
}

func ClanLevelFor(xp int64) int {
	for _, row := range clanLevels {
		if xp >= row.XP {
			return row.Level
		}
	}
	return 1
}
