package domain

import (
	"testing"
	"time"
)

func TestPriorityTupleLessDepthWins(t *testing.T) {
	a := PriorityTuple{Depth: 1, Priority: 100}
	b := PriorityTuple{Depth: 2, Priority: 0}
	if !a.Less(b) {
		t.Fatal("lower depth should sort first regardless of priority")
	}
}

func TestPriorityTupleLessPrioritySecondary(t *testing.T) {
	a := PriorityTuple{Depth: 1, Priority: 10}
	b := PriorityTuple{Depth: 1, Priority: 20}
	if !a.Less(b) {
		t.Fatal("lower priority should sort first at equal depth")
	}
}

func TestPriorityTupleLessTimestampTiebreak(t *testing.T) {
	older := PriorityTuple{Depth: 1, Priority: 1, NegTimestamp: -50}
	newer := PriorityTuple{Depth: 1, Priority: 1, NegTimestamp: -100}
	if !older.Less(newer) {
		t.Fatal("older message (less negative NegTimestamp) should sort first")
	}
}

func TestMessageTuple(t *testing.T) {
	now := time.Unix(1000, 0)
	m := Message{Depth: 2, Priority: 5, Timestamp: now}
	tuple := m.Tuple()
	if tuple.Depth != 2 || tuple.Priority != 5 || tuple.NegTimestamp != -1000 {
		t.Fatalf("unexpected tuple %+v", tuple)
	}
}

func TestMessageSignature(t *testing.T) {
	a := Message{Type: "fetch_author", Content: "123", DestinationQueue: QueueScraper}
	b := Message{Type: "fetch_author", Content: "123", DestinationQueue: QueueScraper}
	c := Message{Type: "fetch_author", Content: "456", DestinationQueue: QueueScraper}
	if a.Signature() != b.Signature() {
		t.Fatal("identical messages should have identical signatures")
	}
	if a.Signature() == c.Signature() {
		t.Fatal("messages differing by content should have distinct signatures")
	}
}
