// Package queue implements the global two-tier priority queue (§4.A): one
// heap for system messages, one for process messages, ordered by the
// (depth, priority, -timestamp) tuple, with periodic aging and a hard
// depth cap.
package queue

import (
	"container/heap"
	"log/slog"
	"sync"

	"github.com/Gawain27/PubScraper/engine/domain"
)

// Entry pairs a scheduling Message with its opaque payload (a fetch
// message, a SerializeTag/Compress/Send instruction, ...). The queue never
// inspects Payload; dispatch on it happens downstream in the Router and
// the per-destination AsyncQueues.
type Entry struct {
	Message domain.Message
	Payload any
}

// agingInterval is the fixed number of successful dequeues between aging
// passes (§4.A). Preserved as a fixed amount regardless of depth per the
// resolved Open Question in §9.
const agingInterval = 100

type heapItem struct {
	entry Entry
	index int
}

// msgHeap is a container/heap.Interface ordered by the priority tuple.
type msgHeap []*heapItem

func (h msgHeap) Len() int { return len(h) }
func (h msgHeap) Less(i, j int) bool {
	return h[i].entry.Message.Tuple().Less(h[j].entry.Message.Tuple())
}
func (h msgHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *msgHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *msgHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// PriorityQueue is the dual-heap queue described in §4.A. Each heap has its
// own mutex so system enqueues never block on process-heap traffic; aging
// acquires both locks in a fixed order (system, then process) to avoid
// deadlock against any future code path that might acquire them together.
type PriorityQueue struct {
	log *slog.Logger

	sysMu   sync.Mutex
	sysHeap msgHeap

	procMu   sync.Mutex
	procHeap msgHeap

	depthMax int

	dequeueMu    sync.Mutex
	dequeueCount uint64
}

// New creates an empty PriorityQueue with the given hard depth cap.
func New(depthMax int, log *slog.Logger) *PriorityQueue {
	if log == nil {
		log = slog.Default()
	}
	return &PriorityQueue{depthMax: depthMax, log: log}
}

// Enqueue inserts e into the system or process heap according to
// e.Message.System. Messages whose depth exceeds depth_max are silently
// dropped with a warning log and never enqueued.
func (q *PriorityQueue) Enqueue(e Entry) {
	if e.Message.Depth > q.depthMax {
		q.log.Warn("priority queue: dropping message past depth_max",
			"type", e.Message.Type, "depth", e.Message.Depth, "depth_max", q.depthMax)
		return
	}
	item := &heapItem{entry: e}
	if e.Message.System {
		q.sysMu.Lock()
		heap.Push(&q.sysHeap, item)
		q.sysMu.Unlock()
		return
	}
	q.procMu.Lock()
	heap.Push(&q.procHeap, item)
	q.procMu.Unlock()
}

// Dequeue pops the highest-priority system entry if one exists, else the
// highest-priority process entry, else returns ok=false. The caller is
// expected to sleep and retry on a false result (§4.A).
func (q *PriorityQueue) Dequeue() (Entry, bool) {
	q.sysMu.Lock()
	if q.sysHeap.Len() > 0 {
		item := heap.Pop(&q.sysHeap).(*heapItem)
		q.sysMu.Unlock()
		q.onDequeue()
		return item.entry, true
	}
	q.sysMu.Unlock()

	q.procMu.Lock()
	if q.procHeap.Len() > 0 {
		item := heap.Pop(&q.procHeap).(*heapItem)
		q.procMu.Unlock()
		q.onDequeue()
		return item.entry, true
	}
	q.procMu.Unlock()

	return Entry{}, false
}

// onDequeue counts a successful dequeue and triggers aging every
// agingInterval dequeues.
func (q *PriorityQueue) onDequeue() {
	q.dequeueMu.Lock()
	q.dequeueCount++
	due := q.dequeueCount%agingInterval == 0
	q.dequeueMu.Unlock()
	if due {
		q.age()
	}
}

// age decrements every entry's priority by 1 (improving it) and
// re-establishes heap order, preventing starvation of low-priority,
// high-depth work behind ever-arriving higher-priority roots (§4.A).
func (q *PriorityQueue) age() {
	q.sysMu.Lock()
	for _, item := range q.sysHeap {
		item.entry.Message.Priority--
	}
	heap.Init(&q.sysHeap)
	q.sysMu.Unlock()

	q.procMu.Lock()
	for _, item := range q.procHeap {
		item.entry.Message.Priority--
	}
	heap.Init(&q.procHeap)
	q.procMu.Unlock()
}

// Len returns the number of queued system entries and of queued process
// entries, as two separate counts.
// Intended for metrics/status reporting, not for scheduling decisions.
func (q *PriorityQueue) Len() (system int, process int) {
	q.sysMu.Lock()
	system = q.sysHeap.Len()
	q.sysMu.Unlock()
	q.procMu.Lock()
	process = q.procHeap.Len()
	q.procMu.Unlock()
	return system, process
}
