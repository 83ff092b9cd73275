package gacha

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestPackLaddersSumToHundred(t *testing.T) {
	tests := []struct {
		name   string
		ladder Ladder
	}{
		{"classic", classicLadder},
		{"elite", eliteLadder},
		{"icon", iconLadder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := math.Abs(tt.ladder.Total() - 100); diff > epsilon {
				t.Errorf("ladder total = %v, want 100", tt.ladder.Total())
			}
		})
	}
}

func TestGodLadderTotalMatchesDeclaredWeights(t *testing.T) {
	// The god ladder normalizes against its own weight sum, not 100
	want := 9 + 11 + 13 + 15 + 17 + 14 + 11 + 8 + 0.75 + 0.475 + 0.0475 + 0.12 + 0.09 + 0.07 + 0.05 + 0.02
	if diff := math.Abs(godLadder.Total() - want); diff > epsilon {
		t.Errorf("god ladder total = %v, want %v", godLadder.Total(), want)
	}
}

func TestLadderResolveBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		ladder Ladder
		roll   float64
		want   Outcome
	}{
		{"classic zero lands on first rung", classicLadder, 0, Outcome{MinRating: 75, MaxRating: 79}},
		{"classic just under total lands on last rung", classicLadder, classicLadder.Total() - 1e-12, Outcome{MinRating: 92, MaxRating: 92}},
		{"classic past total lands on last rung", classicLadder, classicLadder.Total() + 1, Outcome{MinRating: 92, MaxRating: 92}},
		{"elite zero lands on first rung", eliteLadder, 0, Outcome{MinRating: 75, MaxRating: 79}},
		{"icon zero lands on first rung", iconLadder, 0, Outcome{MinRating: 75, MaxRating: 78}},
		{"god zero lands on 84", godLadder, 0, Outcome{MinRating: 84, MaxRating: 84}},
		{"god top of range lands on 99", godLadder, godLadder.Total() - 1e-12, Outcome{MinRating: 99, MaxRating: 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ladder.Resolve(tt.roll)
			if got != tt.want {
				t.Errorf("Resolve(%v) = %+v, want %+v", tt.roll, got, tt.want)
			}
		})
	}
}

func TestLadderResolveCumulativeWalk(t *testing.T) {
	// The classic 80-84 bucket starts at the first rung's upper bound
	got := classicLadder.Resolve(43.90)
	want := Outcome{MinRating: 80, MaxRating: 84}
	if got != want {
		t.Errorf("Resolve(43.90) = %+v, want %+v", got, want)
	}

	// Just inside the first rung
	got = classicLadder.Resolve(43.89)
	want = Outcome{MinRating: 75, MaxRating: 79}
	if got != want {
		t.Errorf("Resolve(43.89) = %+v, want %+v", got, want)
	}
}

func TestGodLadderRungsCoverEveryRating(t *testing.T) {
	rungs := godLadder.Rungs()
	if len(rungs) != 16 {
		t.Fatalf("god ladder has %d rungs, want 16", len(rungs))
	}
	for i, r := range rungs {
		want := 84 + i
		if r.Outcome.MinRating != want || r.Outcome.MaxRating != want {
			t.Errorf("rung %d targets %d-%d, want %d", i, r.Outcome.MinRating, r.Outcome.MaxRating, want)
		}
	}
}
