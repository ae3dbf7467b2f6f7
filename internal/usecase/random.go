package usecase

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Random is the source of every non-deterministic choice the responder makes.
// *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
	Float64() float64
}

// NewRandom returns a goroutine-safe PCG source. A zero seed is replaced by
// the current time.
func NewRandom(seed uint64) Random {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedRandom{r: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

type lockedRandom struct {
	mu sync.Mutex
	r  Random
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func synchronized(r Random) Random {
	if _, ok := r.(*lockedRandom); ok {
		return r
	}
	return &lockedRandom{r: r}
}
