package domain

import "time"

// Message is the base envelope carried through the Priority Queue and the
// Router. Concrete work (fetch requests, pipeline stage transitions) is
// expressed as typed payloads living in the adapter and pipeline packages;
// every such payload embeds a Message for scheduling metadata.
type Message struct {
	// Type is the human-readable message-kind label used for stats and
	// logs (the glossary's "Tag / content").
	Type string
	// ID is "<type>_<monotonic counter>"; see IDGenerator.
	ID string
	// Content identifies the fetched/produced entity, e.g. an author name,
	// a publication URL or a document id; used by the stat store's
	// per-content index.
	Content string
	// Depth is the number of generations from the seed root. Primary sort
	// key; bounded by depth_max.
	Depth int
	// Priority is the secondary sort key (lower dispatches earlier).
	Priority int
	// Timestamp breaks ties: older messages outrank newer ones at equal
	// (depth, priority).
	Timestamp time.Time
	// Delayed marks that Send/SendLater should sleep a random interval
	// between the delay bounds passed to them before enqueuing. DelayMin and
	// DelayMax are the bounds an AsyncQueue passes when it re-sends a
	// timed-out message.
	Delayed  bool
	DelayMin time.Duration
	DelayMax time.Duration
	// System marks a pipeline-internal message (SerializeTag, Compress,
	// Send) that bypasses the worker pool and is dispatched synchronously.
	System bool
	// DestinationQueue names the AsyncQueue that should process this
	// message (QueueScraper or QueuePipeline).
	DestinationQueue string
}

// PriorityTuple is the ordering key described in §3: (depth, priority,
// -timestamp). Lower depth, then lower priority, dequeue first; at equal
// depth and priority the larger NegTimestamp (the older message) wins.
type PriorityTuple struct {
	Depth        int
	Priority     int
	NegTimestamp int64
}

// Tuple returns m's priority tuple.
func (m Message) Tuple() PriorityTuple {
	return PriorityTuple{
		Depth:        m.Depth,
		Priority:     m.Priority,
		NegTimestamp: -m.Timestamp.Unix(),
	}
}

// Less implements the strict total order used by both heaps: depth is
// primary, priority secondary, negated timestamp tertiary (older first).
func (t PriorityTuple) Less(o PriorityTuple) bool {
	if t.Depth != o.Depth {
		return t.Depth < o.Depth
	}
	if t.Priority != o.Priority {
		return t.Priority < o.Priority
	}
	return t.NegTimestamp > o.NegTimestamp
}

// Signature returns the string identity used by the duplicate-message
// tracker. Two non-system messages with the same signature are considered
// the same piece of work.
func (m Message) Signature() string {
	return m.Type + "|" + m.Content + "|" + m.DestinationQueue
}

// Retriable is implemented by payloads that need to reset state between
// retry attempts (the original's message.prepare_for_retry() hook). Most
// payloads have no such state and need not implement it.
type Retriable interface {
	PrepareForRetry()
}
