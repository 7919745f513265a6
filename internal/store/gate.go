package store

import "sync"

// RecomputeGate is a reference-counted suspend gate for the store's
// background dependent-file recomputation. Each Suspend call nests: the
// store recomputes only while no holder remains. A shared boolean would
// break under nested or concurrent batches; the count composes.
type RecomputeGate struct {
	mu    sync.Mutex
	depth int
}

// Suspend pauses background recomputation and returns the matching resume
// function. Resume is idempotent, so callers can defer it unconditionally
// and still call it early on the happy path.
func (g *RecomputeGate) Suspend() (resume func()) {
	g.mu.Lock()
	g.depth++
	g.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.depth--
			g.mu.Unlock()
		})
	}
}

// Suspended reports whether at least one holder currently suspends recomputation.
func (g *RecomputeGate) Suspended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.depth > 0
}
