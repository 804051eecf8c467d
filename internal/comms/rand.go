package comms

import (
	"math/rand"
	"sync"
)

// Rand is the seedable random source behind every outage and drop
// draw. It is mutex-guarded so a fixed seed reproduces a run even when
// multiple agents send concurrently within a tick.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand creates a source from a master seed.
func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a draw in [0,1).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// Uniform returns a draw in [lo,hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.r.Float64()*(hi-lo)
}
