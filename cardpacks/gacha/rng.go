package gacha

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource is the randomness the engine consumes. Draws pull one
// Float64 per card for the ladder roll and one Intn per pool pick, so a
// scripted source makes every outcome reproducible in tests.
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

// DefaultRNG returns a time-seeded source safe for concurrent draws.
func DefaultRNG() RandomSource {
	return &lockedRand{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}
