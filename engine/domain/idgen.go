package domain

import (
	"fmt"
	"sync"
)

// IDGenerator produces message ids of the form "<type>_<counter>" with one
// monotonic counter per message type. The counter is restored from a
// snapshot at construction so restarts continue the sequence (§3).
type IDGenerator struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewIDGenerator creates a generator seeded from a prior snapshot (nil or
// empty for a fresh start).
func NewIDGenerator(seed map[string]uint64) *IDGenerator {
	counters := make(map[string]uint64, len(seed))
	for k, v := range seed {
		counters[k] = v
	}
	return &IDGenerator{counters: counters}
}

// Next returns the next id for messageType and advances its counter.
func (g *IDGenerator) Next(messageType string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[messageType]++
	return fmt.Sprintf("%s_%d", messageType, g.counters[messageType])
}

// Snapshot returns a copy of the current per-type counters for persistence.
func (g *IDGenerator) Snapshot() map[string]uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]uint64, len(g.counters))
	for k, v := range g.counters {
		out[k] = v
	}
	return out
}
