package gacha

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks/config"
	"github.com/aniforreal/ani-engine/cardpacks/database/models"
	"github.com/aniforreal/ani-engine/cardpacks/database/repositories"
	"github.com/aniforreal/ani-engine/cardpacks/logger"
)

// Mission events emitted by the engine.
const (
	MissionDrawUltimate = "draw_ultimate"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientTickets = errors.New("insufficient tickets")
	ErrDailyLimitReached   = errors.New("daily god pack limit reached")
)

// MissionTracker receives best-effort progress events. Implementations
// must not block the draw path.
type MissionTracker interface {
	Track(username, event string)
}

// ImageResolver decorates drawn cards with a display URL. Optional;
// failures leave the URL empty.
type ImageResolver interface {
	CardImageURL(ctx context.Context, card *models.Card) string
}

// DrawnCard is one awarded card as reported back to the caller.
type DrawnCard struct {
	CardID        int64  `json:"card_id"`
	Name          string `json:"name"`
	Character     string `json:"character"`
	Rarity        string `json:"rarity"`
	OverallRating int    `json:"overall_rating"`
	Level         int    `json:"level"`
	ImageURL      string `json:"image_url,omitempty"`
}

// DrawResult is the caller-facing contract: Success plus a readable
// Error on failure, the full payout breakdown on success.
type DrawResult struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Cards   []DrawnCard `json:"cards,omitempty"`

	Tickets      int64 `json:"tickets"`
	EliteTickets int64 `json:"elite_tickets"`
	IconTickets  int64 `json:"icon_tickets"`

	ScoreGained int64 `json:"score_gained"`
	NewScore    int64 `json:"new_score"`
	XPGained    int64 `json:"xp_gained"`
	Purged      int64 `json:"purged"`

	XPHunterBonus bool `json:"xp_hunter_bonus"`
	FounderBonus  bool `json:"founder_bonus"`
}

// EngineConfig carries the knobs that used to be module-level constants.
type EngineConfig struct {
	MaxGodPacksDaily int
	DrawCooldown     time.Duration
	LockDuration     time.Duration
}

// Repositories bundles the stores the engine draws against.
type Repositories struct {
	Users        repositories.UserRepository
	Cards        repositories.CardRepository
	UserCards    repositories.UserCardRepository
	Clans        repositories.ClanRepository
	GodPackUsage repositories.GodPackUsageRepository
	XpPasses     repositories.XpPassRepository
}

type Engine struct {
	repos    Repositories
	cfg      EngineConfig
	sessions *SessionManager
	missions MissionTracker
	images   ImageResolver
	rng      RandomSource
	now      func() time.Time
}

func NewEngine(repos Repositories, cfg EngineConfig) *Engine {
	if cfg.MaxGodPacksDaily <= 0 {
		cfg.MaxGodPacksDaily = config.DefaultMaxGodPacksDaily
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = config.DefaultDrawLockDuration
	}
	return &Engine{
		repos:    repos,
		cfg:      cfg,
		sessions: NewSessionManager(cfg.DrawCooldown, cfg.LockDuration),
		rng:      DefaultRNG(),
		now:      time.Now,
	}
}

// SetMissionTracker wires the best-effort mission side channel.
func (e *Engine) SetMissionTracker(t MissionTracker) { e.missions = t }

// SetImageResolver wires card image URL decoration.
func (e *Engine) SetImageResolver(r ImageResolver) { e.images = r }

// SetRNG replaces the random source; tests use a scripted one.
func (e *Engine) SetRNG(rng RandomSource) { e.rng = rng }

// SetClock replaces the time source used for daily usage keys.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Sessions exposes the per-user draw guard so the host can run its
// cleanup routine.
func (e *Engine) Sessions() *SessionManager { return e.sessions }

func failure(msg string) *DrawResult {
	return &DrawResult{Success: false, Error: msg}
}

// DrawCards spends `count` tickets of the pack's currency and awards
// `count` cards. Tickets are deducted before any card is selected:
// currency is consumed even if fulfillment hits a recoverable issue.
func (e *Engine) DrawCards(ctx context.Context, username string, count int, packType PackType) (*DrawResult, error) {
	if packType == PackGod {
		return e.DrawGodPacks(ctx, username, count)
	}
	if count <= 0 {
		count = 1
	}

	start := e.now()
	def := packDefs[packType]

	if ok, wait := e.sessions.CanDraw(username); !ok {
		return failure(fmt.Sprintf("Please wait %s before drawing again", wait.Round(time.Second))), nil
	}
	if !e.sessions.LockDraw(username) {
		return failure("Another draw is already in progress"), nil
	}
	defer e.sessions.ReleaseDraw(username)

	user, err := e.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failure("User not found"), ErrUserNotFound
		}
		return failure("Failed to load user"), err
	}

	purged := e.purgeZeroQuantity(ctx, username)

	balance, ok, err := e.repos.Users.DeductTickets(ctx, username, def.ticketColumn, int64(count))
	if err != nil {
		return failure("Failed to deduct tickets"), err
	}
	if !ok {
		return failure(fmt.Sprintf("Not enough %s", def.currencyName)), nil
	}

	result, err := e.fulfillDraws(ctx, user, count, def, purged)
	if result != nil {
		e.applyBalance(result, user, def.ticketColumn, balance)
	}
	if err != nil {
		return result, err
	}

	e.sessions.SetCooldown(username)
	logger.LogDraw(packType.String(), username, count, e.now().Sub(start), nil)
	return result, nil
}

// DrawLegacyCards serves the older classic packs that still roll on
// rarity buckets instead of ratings. The ladder is built per call: the
// premium pass widens every tier above common, and the lucky_star and
// leader clan roles each widen the legendary bucket further.
func (e *Engine) DrawLegacyCards(ctx context.Context, username string, count int) (*DrawResult, error) {
	if count <= 0 {
		count = 1
	}

	if ok, wait := e.sessions.CanDraw(username); !ok {
		return failure(fmt.Sprintf("Please wait %s before drawing again", wait.Round(time.Second))), nil
	}
	if !e.sessions.LockDraw(username) {
		return failure("Another draw is already in progress"), nil
	}
	defer e.sessions.ReleaseDraw(username)

	user, err := e.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failure("User not found"), ErrUserNotFound
		}
		return failure("Failed to load user"), err
	}

	purged := e.purgeZeroQuantity(ctx, username)

	clanRole, _ := e.clanStanding(ctx, user)
	def := packDefs[PackRegular]
	def.ladder = LegacyLadder(user.PremiumPass,
		clanRole == models.ClanRoleLuckyStar,
		clanRole == models.ClanRoleLeader)

	balance, ok, err := e.repos.Users.DeductTickets(ctx, username, def.ticketColumn, int64(count))
	if err != nil {
		return failure("Failed to deduct tickets"), err
	}
	if !ok {
		return failure(fmt.Sprintf("Not enough %s", def.currencyName)), nil
	}

	result, err := e.fulfillDraws(ctx, user, count, def, purged)
	if result != nil {
		e.applyBalance(result, user, def.ticketColumn, balance)
	}
	if err != nil {
		return result, err
	}

	e.sessions.SetCooldown(username)
	return result, nil
}

// DrawGodPacks is the premium variant: no ticket spend (the purchase is
// settled externally), a per-day cap, a restricted high-rating pool, and
// a 3 icon-ticket grant for initiating the purchase at all.
func (e *Engine) DrawGodPacks(ctx context.Context, username string, count int) (*DrawResult, error) {
	if count <= 0 {
		count = 1
	}

	start := e.now()
	def := packDefs[PackGod]

	if !e.sessions.LockDraw(username) {
		return failure("Another draw is already in progress"), nil
	}
	defer e.sessions.ReleaseDraw(username)

	user, err := e.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failure("User not found"), ErrUserNotFound
		}
		return failure("Failed to load user"), err
	}

	purged := e.purgeZeroQuantity(ctx, username)

	// Purchase grant happens before the limit check: initiating the
	// purchase is rewarded even when no pack can be opened today.
	iconBalance := user.IconTickets
	if bal, err := e.repos.Users.AddTickets(ctx, username, repositories.TicketColumnIcon, config.GodPackIconTicketGrant); err != nil {
		slog.Warn("Failed to grant god pack icon tickets",
			slog.String("username", username),
			slog.Any("error", err))
	} else {
		iconBalance = bal
	}

	day := models.UsageDay(e.now())
	used, err := e.repos.GodPackUsage.CountForDay(ctx, username, day)
	if err != nil {
		res := failure("Failed to check daily limit")
		res.IconTickets = iconBalance
		return res, err
	}
	if used+count > e.cfg.MaxGodPacksDaily {
		res := failure("Daily God Pack limit reached")
		res.Tickets = user.Tickets
		res.EliteTickets = user.EliteTickets
		res.IconTickets = iconBalance
		res.Purged = purged
		return res, nil
	}

	result, err := e.fulfillDraws(ctx, user, count, def, purged)
	if result != nil {
		e.applyBalance(result, user, "", 0)
		result.IconTickets = iconBalance
	}
	if err != nil {
		return result, err
	}

	if err := e.repos.GodPackUsage.Increment(ctx, username, day, count); err != nil {
		return result, fmt.Errorf("failed to record god pack usage: %w", err)
	}

	logger.LogDraw("god", username, count, e.now().Sub(start), nil)
	return result, nil
}

// fulfillDraws runs the sampling loop plus the score/XP/clan side
// effects shared by every pack type. Tickets are already spent when this
// runs; a failure here leaves prior iterations committed.
func (e *Engine) fulfillDraws(ctx context.Context, user *models.User, count int, def packDef, purged int64) (*DrawResult, error) {
	catalog, err := e.repos.Cards.GetObtainable(ctx)
	if err != nil {
		return failure("Failed to load card catalog"), err
	}

	pool := catalog
	if def.ticketColumn == "" { // god pack
		pool = godPool(catalog)
	}
	if len(pool) == 0 {
		return failure("No cards available"), fmt.Errorf("empty draw pool")
	}

	byRating := make(map[int][]*models.Card)
	for _, c := range pool {
		byRating[c.OverallRating] = append(byRating[c.OverallRating], c)
	}

	result := &DrawResult{Success: true, Purged: purged}
	var scoreTotal float64

	for i := 0; i < count; i++ {
		roll := e.rng.Float64() * def.ladder.Total()
		outcome := def.ladder.Resolve(roll)

		candidates := e.resolvePool(outcome, pool, byRating)
		card := candidates[e.rng.Intn(len(candidates))]

		scoreTotal += ScoreForRarity(card.Rarity)

		if _, err := e.repos.UserCards.AddCopy(ctx, user.Username, card.ID, 1); err != nil {
			return result, fmt.Errorf("failed to record card %d: %w", card.ID, err)
		}

		if card.Rarity == models.RarityUltimate && e.missions != nil {
			e.missions.Track(user.Username, MissionDrawUltimate)
		}

		drawn := DrawnCard{
			CardID:        card.ID,
			Name:          card.Name,
			Character:     card.Character,
			Rarity:        card.Rarity,
			OverallRating: card.OverallRating,
			Level:         1,
		}
		if e.images != nil {
			drawn.ImageURL = e.images.CardImageURL(ctx, card)
		}
		result.Cards = append(result.Cards, drawn)
	}

	// One rounding at the end, not per card
	result.ScoreGained = int64(math.Round(scoreTotal))
	newScore, err := e.repos.Users.AddScore(ctx, user.Username, result.ScoreGained)
	if err != nil {
		return result, fmt.Errorf("failed to persist score: %w", err)
	}
	result.NewScore = newScore

	clanRole, isFounder := e.clanStanding(ctx, user)
	hasPass := e.hasActiveXPPass(ctx, user.Username)

	xp, hunterBonus, founderBonus := computeXP(def.xpBase, count, user.Username, clanRole, isFounder, hasPass)
	result.XPGained = xp
	result.XPHunterBonus = hunterBonus
	result.FounderBonus = founderBonus

	if _, err := e.repos.Users.AddXP(ctx, user.Username, xp); err != nil {
		slog.Warn("Failed to persist draw xp",
			slog.String("username", user.Username),
			slog.Any("error", err))
	}

	e.awardClanXP(ctx, user, def.clanXPGain*int64(count))

	return result, nil
}

// resolvePool narrows the draw pool to the outcome's target, falling
// back to progressively broader pools. The fallback can never be empty:
// the catalog precondition guarantees at least one obtainable card.
func (e *Engine) resolvePool(outcome Outcome, pool []*models.Card, byRating map[int][]*models.Card) []*models.Card {
	if outcome.IsRating() {
		rating := outcome.MinRating
		if outcome.MaxRating > outcome.MinRating {
			rating += e.rng.Intn(outcome.MaxRating - outcome.MinRating + 1)
		}
		if cards := byRating[rating]; len(cards) > 0 {
			return cards
		}
		// High-end targets fall back to the epic-and-above slice first
		if rating >= 85 {
			if cards := epicPool(pool); len(cards) > 0 {
				return cards
			}
		}
		return pool
	}

	if cards := rarityPool(pool, outcome.Rarity); len(cards) > 0 {
		return cards
	}
	return pool
}

// rarityPool groups the paired tier labels the way the legacy ladders
// expect: basic/common, elite/epic, legendary/ultimate, goat/godlike.
func rarityPool(catalog []*models.Card, rarity string) []*models.Card {
	match := func(r string) bool { return r == rarity }
	switch rarity {
	case models.RarityBasic, models.RarityCommon:
		match = func(r string) bool { return r == models.RarityBasic || r == models.RarityCommon }
	case models.RarityElite, models.RarityEpic:
		match = func(r string) bool { return r == models.RarityElite || r == models.RarityEpic }
	case models.RarityLegendary, models.RarityUltimate:
		match = func(r string) bool { return r == models.RarityLegendary || r == models.RarityUltimate }
	case models.RarityGoat, models.RarityGodlike:
		match = func(r string) bool { return r == models.RarityGoat || r == models.RarityGodlike }
	}

	var out []*models.Card
	for _, c := range catalog {
		if match(c.Rarity) {
			out = append(out, c)
		}
	}
	return out
}

func epicPool(catalog []*models.Card) []*models.Card {
	var out []*models.Card
	for _, c := range catalog {
		if c.EliteOrAbove() {
			out = append(out, c)
		}
	}
	return out
}

func godPool(catalog []*models.Card) []*models.Card {
	var out []*models.Card
	for _, c := range catalog {
		if c.EliteOrAbove() && c.OverallRating >= GodPackMinRating {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) purgeZeroQuantity(ctx context.Context, username string) int64 {
	purged, err := e.repos.UserCards.PurgeZeroQuantity(ctx, username)
	if err != nil {
		slog.Warn("Failed to purge zero-quantity cards",
			slog.String("username", username),
			slog.Any("error", err))
		return 0
	}
	return purged
}

// clanStanding looks up the user's role and founder status; lookup
// failures count as no clan standing.
func (e *Engine) clanStanding(ctx context.Context, user *models.User) (role string, isFounder bool) {
	if user.ClanID == 0 {
		return "", false
	}

	role, err := e.repos.Clans.GetMemberRole(ctx, user.ClanID, user.Username)
	if err != nil {
		slog.Debug("Failed to load clan role",
			slog.String("username", user.Username),
			slog.Any("error", err))
		role = ""
	}

	clan, err := e.repos.Clans.GetByID(ctx, user.ClanID)
	if err != nil {
		slog.Debug("Failed to load clan",
			slog.Int64("clan_id", user.ClanID),
			slog.Any("error", err))
		return role, false
	}
	return role, clan.Founder == user.Username
}

func (e *Engine) hasActiveXPPass(ctx context.Context, username string) bool {
	pass, err := e.repos.XpPasses.GetActive(ctx, username, e.now())
	if err != nil {
		slog.Debug("Failed to load xp pass",
			slog.String("username", username),
			slog.Any("error", err))
		return false
	}
	return pass.Valid(e.now())
}

// awardClanXP adds the pack's clan xp gain and recomputes the clan
// level. Best-effort: a failed clan update never fails the draw.
func (e *Engine) awardClanXP(ctx context.Context, user *models.User, gain int64) {
	if user.ClanID == 0 || gain <= 0 {
		return
	}

	newXP, err := e.repos.Clans.AddXP(ctx, user.ClanID, gain)
	if err != nil {
		slog.Warn("Failed to add clan xp",
			slog.Int64("clan_id", user.ClanID),
			slog.Any("error", err))
		return
	}

	if err := e.repos.Clans.UpdateLevel(ctx, user.ClanID, ClanLevelFor(newXP)); err != nil {
		slog.Warn("Failed to update clan level",
			slog.Int64("clan_id", user.ClanID),
			slog.Any("error", err))
	}
}

// applyBalance fills the three ticket balances from the pre-draw user
// row, replacing the spent column with its post-deduction value.
func (e *Engine) applyBalance(result *DrawResult, user *models.User, spentColumn string, balance int64) {
	result.Tickets = user.Tickets
	result.EliteTickets = user.EliteTickets
	result.IconTickets = user.IconTickets
	switch spentColumn {
	case repositories.TicketColumnRegular:
		result.Tickets = balance
	case repositories.TicketColumnElite:
		result.EliteTickets = balance
	case repositories.TicketColumnIcon:
		result.IconTickets = balance
	}
}
