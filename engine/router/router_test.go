package router

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/queue"
)

type countingProcessor struct {
	mu    sync.Mutex
	count int
}

func (p *countingProcessor) Process(ctx context.Context, e queue.Entry) {
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
}

func (p *countingProcessor) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func newTestRouter(opts Opts) *Router {
	pq := queue.New(10, nil)
	return New(pq, domain.NewIDGenerator(nil), opts, nil)
}

func TestSendStampsIDAndTimestamp(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	rt.Send(domain.Message{Type: "fetch_author", DestinationQueue: domain.QueuePipeline, System: true}, nil, 5, 0, 0)

	entry, ok := rt.pq.Dequeue()
	if !ok {
		t.Fatal("expected the sent message to be enqueued")
	}
	if entry.Message.ID == "" {
		t.Fatal("expected Send to stamp an id")
	}
	if entry.Message.Timestamp.IsZero() {
		t.Fatal("expected Send to stamp a timestamp")
	}
	if entry.Message.Priority != 5 {
		t.Fatalf("expected priority override to apply, got %d", entry.Message.Priority)
	}
}

func TestSendIncrementsDepth(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	rt.Send(domain.Message{Type: "t", Depth: 2, DestinationQueue: domain.QueuePipeline, System: true}, nil, 0, 0, 0)

	entry, ok := rt.pq.Dequeue()
	if !ok || entry.Message.Depth != 3 {
		t.Fatalf("expected depth to increment from 2 to 3, got %+v ok=%v", entry, ok)
	}
}

func TestSendDropsDuplicateNonSystemMessage(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	msg := domain.Message{Type: "fetch_author", Content: "123", DestinationQueue: domain.QueueScraper}
	rt.Send(msg, nil, 0, 0, 0)
	rt.Send(msg, nil, 0, 0, 0)

	_, process := rt.pq.Len()
	if process != 1 {
		t.Fatalf("expected the duplicate send to be dropped, got process=%d", process)
	}
}

func TestSendSystemMessagesBypassDedup(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	msg := domain.Message{Type: "serialize_tag", Content: "123", DestinationQueue: domain.QueuePipeline, System: true}
	rt.Send(msg, nil, 0, 0, 0)
	rt.Send(msg, nil, 0, 0, 0)

	system, _ := rt.pq.Len()
	if system != 2 {
		t.Fatalf("expected both system sends to enqueue, got system=%d", system)
	}
}

func TestSendWorktimeCapDropsScraperMessages(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: 0})
	rt.startedAt = time.Now().Add(-time.Hour)
	rt.Send(domain.Message{Type: "t", DestinationQueue: domain.QueueScraper}, nil, 0, 0, 0)

	_, process := rt.pq.Len()
	if process != 0 {
		t.Fatal("expected scraper message past the worktime cap to be dropped")
	}
}

func TestSendWorktimeCapDoesNotApplyToPipeline(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: 0})
	rt.startedAt = time.Now().Add(-time.Hour)
	rt.Send(domain.Message{Type: "t", DestinationQueue: domain.QueuePipeline, System: true}, nil, 0, 0, 0)

	system, _ := rt.pq.Len()
	if system != 1 {
		t.Fatal("worktime cap should only gate the scraper destination queue")
	}
}

func TestSendLaterEnqueuesAsynchronously(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	rt.SendLater(domain.Message{Type: "t", DestinationQueue: domain.QueuePipeline, System: true}, nil, 0, 0, 0)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if system, _ := rt.pq.Len(); system > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected SendLater to eventually enqueue the message")
}

func TestDispatchLoopRoutesSystemMessagesSynchronously(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	proc := &countingProcessor{}
	rt.Register(domain.QueuePipeline, proc)

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)
	rt.Send(domain.Message{Type: "t", DestinationQueue: domain.QueuePipeline, System: true}, nil, 0, 0, 0)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && proc.Count() == 0 {
		time.Sleep(time.Millisecond)
	}
	if proc.Count() != 1 {
		t.Fatalf("expected the processor to run once, got %d", proc.Count())
	}
	cancel()
	rt.Stop()
}

func TestDispatchLoopRoutesProcessMessagesThroughWorkerPool(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 2, MaxMsWorktime: -1})
	proc := &countingProcessor{}
	rt.Register(domain.QueueScraper, proc)

	ctx, cancel := context.WithCancel(context.Background())
	rt.Start(ctx)
	for i := 0; i < 5; i++ {
		rt.Send(domain.Message{Type: "t", Content: string(rune('a' + i)), DestinationQueue: domain.QueueScraper}, nil, 0, 0, 0)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && proc.Count() < 5 {
		time.Sleep(time.Millisecond)
	}
	if proc.Count() != 5 {
		t.Fatalf("expected all 5 process messages to be handled, got %d", proc.Count())
	}
	cancel()
	rt.Stop()
}

func TestQueueDepthReflectsPendingEntries(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	rt.Send(domain.Message{Type: "t", DestinationQueue: domain.QueuePipeline, System: true}, nil, 0, 0, 0)
	system, process := rt.QueueDepth()
	if system != 1 || process != 0 {
		t.Fatalf("expected QueueDepth to report system=1 process=0, got system=%d process=%d", system, process)
	}
}

func TestIDCountersSnapshot(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 1, MaxMsWorktime: -1})
	rt.Send(domain.Message{Type: "fetch_author", DestinationQueue: domain.QueuePipeline, System: true}, nil, 0, 0, 0)
	counters := rt.IDCounters()
	if counters["fetch_author"] != 1 {
		t.Fatalf("expected one id issued for fetch_author, got %d", counters["fetch_author"])
	}
}

func TestDispatchRateLimiterThrottlesThroughput(t *testing.T) {
	rt := newTestRouter(Opts{MaxActiveThreads: 4, MaxMsWorktime: -1, DispatchRatePerSec: 1000})
	var handled int64
	proc := processorFunc(func(ctx context.Context, e queue.Entry) {
		atomic.AddInt64(&handled, 1)
	})
	rt.Register(domain.QueueScraper, proc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.Start(ctx)
	for i := 0; i < 3; i++ {
		rt.Send(domain.Message{Type: "t", Content: string(rune('a' + i)), DestinationQueue: domain.QueueScraper}, nil, 0, 0, 0)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && atomic.LoadInt64(&handled) < 3 {
		time.Sleep(time.Millisecond)
	}
	if atomic.LoadInt64(&handled) != 3 {
		t.Fatalf("expected the dispatch limiter to still allow all messages through eventually, got %d", handled)
	}
	rt.Stop()
}

type processorFunc func(ctx context.Context, e queue.Entry)

func (f processorFunc) Process(ctx context.Context, e queue.Entry) { f(ctx, e) }
