package gacha

// Outcome is what one ladder rung resolves to: either an exact target
// rating (possibly picked uniformly from a small range), or a rarity
// bucket for the legacy ladders.
type Outcome struct {
	MinRating int
	MaxRating int
	Rarity    string
}

// IsRating reports whether the outcome targets a rating rather than a
// rarity bucket.
func (o Outcome) IsRating() bool {
	return o.Rarity == ""
}

type Rung struct {
	Weight  float64
	Outcome Outcome
}

// Ladder is an ordered list of weighted rungs consumed by comparing one
// roll against running cumulative thresholds. The pack ladders total 100;
// the god-pack ladder totals the sum of its own weights and rolls are
// drawn against that sum instead.
type Ladder struct {
	rungs []Rung
	total float64
}

func NewLadder(rungs ...Rung) Ladder {
	var total float64
	for _, r := range rungs {
		total += r.Weight
	}
	return Ladder{rungs: rungs, total: total}
}

func (l Ladder) Total() float64 {
	return l.total
}

func (l Ladder) Rungs() []Rung {
	return l.rungs
}

// Resolve maps a roll in [0, Total()) to a rung outcome. A roll of
// exactly 0 lands on the first rung; anything at or past the cumulative
// total (floating-point residue included) lands on the last.
func (l Ladder) Resolve(roll float64) Outcome {
	var cumulative float64
	for _, r := range l.rungs {
		cumulative += r.Weight
		if roll < cumulative {
			return r.Outcome
		}
	}
	return l.rungs[len(l.rungs)-1].Outcome
}

func ratingRung(weight float64, minRating, maxRating int) Rung {
	return Rung{Weight: weight, Outcome: Outcome{MinRating: minRating, MaxRating: maxRating}}
}

func rarityRung(weight float64, rarity string) Rung {
	return Rung{Weight: weight, Outcome: Outcome{Rarity: rarity}}
}
