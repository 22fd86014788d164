// Package router implements the Message Router (§4.D) and the Async Work
// Queue abstraction (§4.E): a singleton-style dispatcher that reads from
// the Priority Queue, routes system messages synchronously and process
// messages through a bounded worker pool, applies duplicate suppression,
// the worktime cap, and delayed delivery.
package router

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/queue"
	"github.com/Gawain27/PubScraper/pkg/resilience"
)

// Processor is implemented by each destination's AsyncQueue. OnMessage is
// the subclass-supplied on_message hook from §4.E; the retry loop around
// it lives in AsyncQueue, not here.
type Processor interface {
	Process(ctx context.Context, e queue.Entry)
}

// Router is the explicit, singly-owned lifecycle object described in
// Design Note §9: constructed once at startup and shared via the handle
// returned by New, never a package-level singleton.
type Router struct {
	log *slog.Logger

	pq         *queue.PriorityQueue
	processors map[string]Processor
	dedup      *dupTracker
	idGen      *domain.IDGenerator

	maxActiveThreads int
	sem              chan struct{}

	worktimeCap time.Duration // <0 means uncapped
	debugDelay  bool
	startedAt   time.Time

	// dispatchLimiter throttles how fast process-queue entries leave the
	// dispatch loop for the worker pool; nil means unthrottled. System
	// messages are never subject to it since they bypass the pool.
	dispatchLimiter *resilience.Limiter

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Opts configures a Router.
type Opts struct {
	MaxActiveThreads int
	MaxMsWorktime    int64 // milliseconds; <0 = uncapped, matching max_ms_worktime
	DebugDelay       bool
	DedupCapacity    int
	// DispatchRatePerSec caps process-queue throughput; 0 disables the cap.
	DispatchRatePerSec float64
}

// New constructs a Router over pq, using idGen to stamp message ids.
// Destination processors are registered via Register before Start.
func New(pq *queue.PriorityQueue, idGen *domain.IDGenerator, opts Opts, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	worktimeCap := time.Duration(-1)
	if opts.MaxMsWorktime >= 0 {
		worktimeCap = time.Duration(opts.MaxMsWorktime) * time.Millisecond
	}
	maxActive := opts.MaxActiveThreads
	if maxActive <= 0 {
		maxActive = 1
	}
	var limiter *resilience.Limiter
	if opts.DispatchRatePerSec > 0 {
		limiter = resilience.NewLimiter(resilience.LimiterOpts{
			Rate:  opts.DispatchRatePerSec,
			Burst: maxActive,
		})
	}
	return &Router{
		log:              log,
		pq:               pq,
		processors:       make(map[string]Processor),
		dedup:            newDupTracker(opts.DedupCapacity),
		idGen:            idGen,
		maxActiveThreads: maxActive,
		sem:              make(chan struct{}, maxActive),
		worktimeCap:      worktimeCap,
		debugDelay:       opts.DebugDelay,
		dispatchLimiter:  limiter,
		stopCh:           make(chan struct{}),
	}
}

// Register binds a destination queue name to its Processor. Must be called
// before Start; registering a name twice is a programming error.
func (r *Router) Register(destinationQueue string, p Processor) {
	if _, exists := r.processors[destinationQueue]; exists {
		panic("router: processor already registered for " + destinationQueue)
	}
	r.processors[destinationQueue] = p
}

// Start launches the dispatcher goroutine. Start must be called exactly
// once; a second call is a programming error per Design Note §9.
func (r *Router) Start(ctx context.Context) {
	r.startedAt = time.Now()
	r.wg.Add(1)
	go r.dispatchLoop(ctx)
}

// Stop signals the dispatcher to exit and waits for in-flight work
// submitted to the worker pool to finish.
func (r *Router) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Router) dispatchLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		default:
		}

		entry, ok := r.pq.Dequeue()
		if !ok {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			}
			continue
		}

		proc, known := r.processors[entry.Message.DestinationQueue]
		if !known {
			r.log.Error("router: no processor registered", "destination", entry.Message.DestinationQueue)
			continue
		}

		if entry.Message.System {
			// System messages bypass the worker pool entirely.
			proc.Process(ctx, entry)
			continue
		}

		if r.dispatchLimiter != nil {
			if err := r.dispatchLimiter.Wait(ctx); err != nil {
				return
			}
		}

		r.sem <- struct{}{}
		r.wg.Add(1)
		// correlationID has no protocol meaning; it only threads one
		// worker-pool invocation through the logs it emits end to end.
		correlationID := uuid.NewString()
		go func(e queue.Entry) {
			defer func() { <-r.sem; r.wg.Done() }()
			r.log.Debug("router: dispatching", "correlation_id", correlationID,
				"type", e.Message.Type, "destination", e.Message.DestinationQueue)
			proc.Process(ctx, e)
		}(entry)
	}
}

// ErrDropped names the case of a message dropped by the worktime cap or the
// duplicate tracker. Send has no return value and only logs such drops, so
// nothing in this package returns ErrDropped; tests observe drops through
// queue length instead.
var ErrDropped = errors.New("router: message dropped")

// Send implements §4.D's send contract: worktime-cap drop, debug delay,
// delayed-send jitter, depth increment, dedup, and enqueue. priority
// overrides payload-specific tuning (e.g. ENTITY_SEND_REQ); delayMin/Max
// only apply when msg.Delayed is set.
func (r *Router) Send(msg domain.Message, payload any, priority int, delayMin, delayMax time.Duration) {
	if r.worktimeCap >= 0 && msg.DestinationQueue == domain.QueueScraper {
		if time.Since(r.startedAt) >= r.worktimeCap {
			r.log.Debug("router: dropping scraper message, worktime cap exceeded", "type", msg.Type)
			return
		}
	}

	if r.debugDelay {
		time.Sleep(10 * time.Second)
	}

	if msg.Delayed && delayMax > delayMin {
		jitter := delayMin + time.Duration(rand.Int63n(int64(delayMax-delayMin)))
		time.Sleep(jitter)
	}

	msg.Depth++

	if !msg.System {
		if r.dedup.SeenOrMark(msg.Signature()) {
			r.log.Debug("router: dropping duplicate message", "signature", msg.Signature())
			return
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.ID == "" {
		msg.ID = r.idGen.Next(msg.Type)
	}
	msg.Priority = priority

	r.pq.Enqueue(queue.Entry{Message: msg, Payload: payload})
}

// SendLater schedules Send on a fresh goroutine so the caller does not
// block on debug/jitter delays (§4.D).
func (r *Router) SendLater(msg domain.Message, payload any, priority int, delayMin, delayMax time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Send(msg, payload, priority, delayMin, delayMax)
	}()
}

// QueueDepth exposes the underlying priority queue's length split by
// class, for the status surface (§2.1.N).
func (r *Router) QueueDepth() (system int, process int) {
	return r.pq.Len()
}

// IDCounters exposes a snapshot of the id generator's counters for
// persistence by the caller (cmd/harvester wires this to statstore).
func (r *Router) IDCounters() map[string]uint64 {
	return r.idGen.Snapshot()
}
