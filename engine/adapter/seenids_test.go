package adapter

import (
	"testing"

	"github.com/Gawain27/PubScraper/engine/domain"
)

func TestSeenIDsMarkIfNew(t *testing.T) {
	s := NewSeenIDs()
	if !s.MarkIfNew("alice") {
		t.Fatal("first mark of alice should be new")
	}
	if s.MarkIfNew("alice") {
		t.Fatal("second mark of alice should not be new")
	}
	if !s.MarkIfNew("bob") {
		t.Fatal("first mark of bob should be new")
	}
}

func TestSeenIDsEmptyIDAlwaysNew(t *testing.T) {
	s := NewSeenIDs()
	if !s.MarkIfNew("") {
		t.Fatal("empty id should always be treated as new")
	}
	if !s.MarkIfNew("") {
		t.Fatal("empty id should always be treated as new, even repeatedly")
	}
}

func TestGenerateAdapterWithPrioDedup(t *testing.T) {
	fw := NewFramework(nil, nil, domain.Config{}, nil)

	_, ok := fw.GenerateAdapterWithPrio("author", 0, 100, nil, "alice", "alice", false)
	if !ok {
		t.Fatal("first schedule of alice should succeed")
	}
	_, ok = fw.GenerateAdapterWithPrio("author", 0, 100, nil, "alice", "alice", false)
	if ok {
		t.Fatal("second schedule of alice should be suppressed by the dedup gate")
	}
}
