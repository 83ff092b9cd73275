package gacha

import "github.com/aniforreal/ani-engine/cardpacks/database/models"

// reducedXPUsername is halved on every draw; the account was used to
// farm early-access rewards and the cut was cheaper than a ban.
const reducedXPUsername = "anitest"

// computeXP applies the pack base and the bonus chain in order: the
// hardcoded-account reduction, clan xp_hunter +5%, clan leader/founder
// +5%, then the XP pass +20%. Each step floors to an integer before the
// next applies, so the order is load-bearing.
func computeXP(base int64, count int, username, clanRole string, isFounder, hasXPPass bool) (xp int64, hunterBonus, founderBonus bool) {
	xp = base * int64(count)

	if username == reducedXPUsername {
		xp = xp / 2
	}

	if clanRole == models.ClanRoleXPHunter {
		xp = int64(float64(xp) * 1.05)
		hunterBonus = true
	}

	if clanRole == models.ClanRoleLeader || isFounder {
		xp = int64(float64(xp) * 1.05)
		founderBonus = true
	}

	if hasXPPass {
		xp = int64(float64(xp) * 1.20)
	}

	return xp, hunterBonus, founderBonus
}
