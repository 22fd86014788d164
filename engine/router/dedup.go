package router

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultDedupCapacity bounds the duplicate-message tracker. The original
// implementation's tracker grows unboundedly over a long run (§9, Open
// Questions); this rendition caps it with an LRU large enough that normal
// runs never evict a signature still relevant to dedup, which is the
// documented change permitted by that note.
const defaultDedupCapacity = 200_000

// dupTracker is the duplicate-message tracker from §3: membership implies
// "do not re-enqueue". Backed by an LRU so long-running processes have
// bounded memory instead of the original's unbounded set.
type dupTracker struct {
	cache *lru.Cache[string, struct{}]
}

func newDupTracker(capacity int) *dupTracker {
	if capacity <= 0 {
		capacity = defaultDedupCapacity
	}
	c, err := lru.New[string, struct{}](capacity)
	if err != nil {
		// Only returns an error for a non-positive size, which cannot
		// happen given the guard above.
		panic(err)
	}
	return &dupTracker{cache: c}
}

// SeenOrMark reports whether signature was already present and, if not,
// records it. The check-and-insert is atomic under the LRU's own locking.
func (d *dupTracker) SeenOrMark(signature string) bool {
	ok, _ := d.cache.ContainsOrAdd(signature, struct{}{})
	return ok
}
