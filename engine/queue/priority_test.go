package queue

import (
	"testing"
	"time"

	"github.com/Gawain27/PubScraper/engine/domain"
)

func TestDequeueEmptyQueue(t *testing.T) {
	q := New(10, nil)
	if _, ok := q.Dequeue(); ok {
		t.Fatal("expected ok=false on an empty queue")
	}
}

func TestSystemEntriesDequeueBeforeProcess(t *testing.T) {
	q := New(10, nil)
	q.Enqueue(Entry{Message: domain.Message{Type: "process_one", System: false, Priority: 0}})
	q.Enqueue(Entry{Message: domain.Message{Type: "system_one", System: true, Priority: 1000}})

	e, ok := q.Dequeue()
	if !ok || e.Message.Type != "system_one" {
		t.Fatalf("expected system entry first, got %+v ok=%v", e, ok)
	}
	e, ok = q.Dequeue()
	if !ok || e.Message.Type != "process_one" {
		t.Fatalf("expected process entry second, got %+v ok=%v", e, ok)
	}
}

func TestDepthIsPrimaryOrdering(t *testing.T) {
	q := New(10, nil)
	q.Enqueue(Entry{Message: domain.Message{Type: "deep", Depth: 5, Priority: 0}})
	q.Enqueue(Entry{Message: domain.Message{Type: "shallow", Depth: 1, Priority: 1000}})

	e, ok := q.Dequeue()
	if !ok || e.Message.Type != "shallow" {
		t.Fatalf("expected shallower message to dequeue first regardless of priority, got %+v", e)
	}
}

func TestPriorityBreaksDepthTie(t *testing.T) {
	q := New(10, nil)
	q.Enqueue(Entry{Message: domain.Message{Type: "low_prio", Depth: 2, Priority: 50}})
	q.Enqueue(Entry{Message: domain.Message{Type: "high_prio", Depth: 2, Priority: 10}})

	e, ok := q.Dequeue()
	if !ok || e.Message.Type != "high_prio" {
		t.Fatalf("expected lower priority value to dequeue first at equal depth, got %+v", e)
	}
}

func TestTimestampBreaksFullTie(t *testing.T) {
	q := New(10, nil)
	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	q.Enqueue(Entry{Message: domain.Message{Type: "newer", Depth: 1, Priority: 1, Timestamp: newer}})
	q.Enqueue(Entry{Message: domain.Message{Type: "older", Depth: 1, Priority: 1, Timestamp: older}})

	e, ok := q.Dequeue()
	if !ok || e.Message.Type != "older" {
		t.Fatalf("expected older message to dequeue first at equal depth/priority, got %+v", e)
	}
}

func TestEnqueueDropsPastDepthMax(t *testing.T) {
	q := New(3, nil)
	q.Enqueue(Entry{Message: domain.Message{Type: "too_deep", Depth: 4}})
	system, process := q.Len()
	if system != 0 || process != 0 {
		t.Fatalf("expected message past depth_max to be dropped, got system=%d process=%d", system, process)
	}
}

func TestEnqueueAcceptsAtDepthMax(t *testing.T) {
	q := New(3, nil)
	q.Enqueue(Entry{Message: domain.Message{Type: "at_limit", Depth: 3}})
	_, process := q.Len()
	if process != 1 {
		t.Fatalf("expected message exactly at depth_max to be accepted, got process=%d", process)
	}
}

func TestLenReportsBothHeaps(t *testing.T) {
	q := New(10, nil)
	q.Enqueue(Entry{Message: domain.Message{System: true}})
	q.Enqueue(Entry{Message: domain.Message{System: false}})
	q.Enqueue(Entry{Message: domain.Message{System: false}})

	system, process := q.Len()
	if system != 1 || process != 2 {
		t.Fatalf("expected system=1 process=2, got system=%d process=%d", system, process)
	}
}

func TestAgingImprovesStarvedEntry(t *testing.T) {
	q := New(100, nil)
	// Enqueue one low-priority (high-value) process entry that would
	// otherwise never win against a stream of higher-priority arrivals.
	q.Enqueue(Entry{Message: domain.Message{Type: "starved", Depth: 0, Priority: 1000}})

	// Flood enough higher-priority process entries to cross one aging
	// interval's worth of dequeues without ever popping "starved".
	for i := 0; i < agingInterval; i++ {
		q.Enqueue(Entry{Message: domain.Message{Type: "filler", Depth: 0, Priority: 1}})
		if _, ok := q.Dequeue(); !ok {
			t.Fatal("expected a filler entry to dequeue")
		}
	}

	// The agingInterval-th dequeue ran exactly one aging pass, lowering
	// "starved" from 1000 to 999. It was never dequeued, so it must still
	// be queued, and the next dequeue (which triggers no aging) returns it.
	system, process := q.Len()
	if system != 0 || process != 1 {
		t.Fatalf("expected the starved entry to remain queued, got system=%d process=%d", system, process)
	}
	e, ok := q.Dequeue()
	if !ok || e.Message.Type != "starved" || e.Message.Priority != 999 {
		t.Fatalf("expected starved at priority 999, got %+v (ok=%v)", e.Message, ok)
	}
}
