/*
guard.go - Consistency guard: fetch generations and mutating-id registry

PURPOSE:
  Two small cooperative mechanisms that keep overlapping operations from
  corrupting the engine's view of the data:

  1. FETCH GENERATION COUNTER: every full reload takes a generation number.
     A reload that finishes after a newer one has started is superseded and
     must discard its results instead of applying them. This prevents a slow
     out-of-order response from clobbering fresher state.

  2. MUTATING-ID REGISTRY: each mutation marks the entity ids it touches
     while in flight. Consumers read the set to disable controls or show
     per-row spinners. This is cooperative, not a lock - the engine never
     blocks on it.

There is no cancellation token: superseded reads are filtered by generation
number rather than aborted at the transport level.
*/
package ledger

import (
	"sort"
	"sync"
)

type Guard struct {
	mu       sync.Mutex
	gen      uint64
	mutating map[string]int
}

func NewGuard() *Guard {
	return &Guard{mutating: make(map[string]int)}
}

// Begin starts a new fetch generation and returns its number. Any reload
// holding an older number is now superseded.
func (g *Guard) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	return g.gen
}

// Current returns the latest generation without starting a new one.
func (g *Guard) Current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// StillCurrent reports whether gen has not been superseded. A reload calls
// this before committing its results; on false it discards them.
func (g *Guard) StillCurrent(gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return gen == g.gen
}

// MarkMutating registers ids as having a mutation in flight and returns a
// release function. Reference counted: the same id may be marked by nested
// operations.
func (g *Guard) MarkMutating(ids ...string) func() {
	g.mu.Lock()
	for _, id := range ids {
		if id != "" {
			g.mutating[id]++
		}
	}
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			for _, id := range ids {
				if id == "" {
					continue
				}
				if g.mutating[id] <= 1 {
					delete(g.mutating, id)
				} else {
					g.mutating[id]--
				}
			}
		})
	}
}

// MutatingIDs returns the ids with mutations currently in flight, sorted
// for stable output.
func (g *Guard) MutatingIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.mutating))
	for id := range g.mutating {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
