package router

import (
	"context"
	"testing"
	"time"

	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/queue"
)

func TestAsyncQueueProcessSuccess(t *testing.T) {
	calls := 0
	onMessage := func(ctx context.Context, e queue.Entry) error {
		calls++
		return nil
	}
	q := NewAsyncQueue("test", onMessage, 3, time.Millisecond, nil, nil)
	q.Process(context.Background(), queue.Entry{Message: domain.Message{Type: "t"}})
	if calls != 1 {
		t.Fatalf("expected exactly one on_message call on success, got %d", calls)
	}
}

func TestAsyncQueueProcessRetriesThenSucceeds(t *testing.T) {
	calls := 0
	onMessage := func(ctx context.Context, e queue.Entry) error {
		calls++
		if calls < 3 {
			return domain.ErrEntityNotFound
		}
		return nil
	}
	q := NewAsyncQueue("test", onMessage, 5, time.Millisecond, nil, nil)
	q.Process(context.Background(), queue.Entry{Message: domain.Message{Type: "t"}})
	if calls != 3 {
		t.Fatalf("expected three attempts before success, got %d", calls)
	}
}

func TestAsyncQueueProcessExhaustsRetries(t *testing.T) {
	calls := 0
	onMessage := func(ctx context.Context, e queue.Entry) error {
		calls++
		return domain.ErrEntityNotFound
	}
	q := NewAsyncQueue("test", onMessage, 2, time.Millisecond, nil, nil)
	q.Process(context.Background(), queue.Entry{Message: domain.Message{Type: "t"}})
	if calls != 2 {
		t.Fatalf("expected exactly max_buffer_retries attempts, got %d", calls)
	}
}

func TestAsyncQueueProcessCallsPrepareForRetry(t *testing.T) {
	attempts := 0
	payload := &retriablePayload{}
	onMessage := func(ctx context.Context, e queue.Entry) error {
		attempts++
		if attempts < 2 {
			return domain.ErrEntityNotFound
		}
		return nil
	}
	q := NewAsyncQueue("test", onMessage, 5, time.Millisecond, nil, nil)
	q.Process(context.Background(), queue.Entry{Message: domain.Message{Type: "t"}, Payload: payload})
	if payload.prepared != 1 {
		t.Fatalf("expected prepare_for_retry called once before the second attempt, got %d", payload.prepared)
	}
}

func TestAsyncQueueProcessTimeoutDefersViaSendLater(t *testing.T) {
	pq := queue.New(10, nil)
	rt := New(pq, domain.NewIDGenerator(nil), Opts{MaxActiveThreads: 1, MaxMsWorktime: -1}, nil)

	onMessage := func(ctx context.Context, e queue.Entry) error {
		return domain.ErrTimeout
	}
	q := NewAsyncQueue("test", onMessage, 3, time.Millisecond, rt, nil)
	q.Process(context.Background(), queue.Entry{Message: domain.Message{Type: "t", DestinationQueue: domain.QueueScraper}})

	// SendLater dispatches asynchronously; give it a moment to land.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, process := pq.Len(); process > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected a timeout to re-enqueue the message via send_later")
}

type retriablePayload struct {
	prepared int
}

func (p *retriablePayload) PrepareForRetry() { p.prepared++ }
