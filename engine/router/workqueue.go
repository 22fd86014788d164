package router

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/queue"
)

// OnMessageFunc is the subclass-supplied processing step from §4.E.
type OnMessageFunc func(ctx context.Context, e queue.Entry) error

// AsyncQueue implements the abstract per-destination retry loop from §4.E,
// shared by the Scraper Queue and the pipeline queue. It is not itself a
// Processor variant per destination kind — message-kind dispatch happens
// inside the OnMessageFunc each destination supplies (the "sum type of
// message kinds dispatched with exhaustive case analysis" from §9).
type AsyncQueue struct {
	name       string
	onMessage  OnMessageFunc
	maxRetries int
	retryWait  time.Duration
	router     *Router
	log        *slog.Logger
}

// NewAsyncQueue builds an AsyncQueue named name (used only for logging),
// wrapping onMessage with the retry loop. router is used to re-enqueue on
// a transient-timeout classification without consuming a retry.
func NewAsyncQueue(name string, onMessage OnMessageFunc, maxRetries int, retryWait time.Duration, router *Router, log *slog.Logger) *AsyncQueue {
	if log == nil {
		log = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &AsyncQueue{
		name:       name,
		onMessage:  onMessage,
		maxRetries: maxRetries,
		retryWait:  retryWait,
		router:     router,
		log:        log,
	}
}

// Process implements the retry loop from §4.E:
//
//	retries ← max_buffer_retries
//	loop:
//	  if exception_raised_last_pass: message.prepare_for_retry()
//	  try: on_message(message); break
//	  catch Timeout: enqueue via router.send_later (no retry count consumed); break
//	  catch Any: log; sleep retry_time_sec; retries--; if retries == 0: log CRITICAL and stop
func (q *AsyncQueue) Process(ctx context.Context, e queue.Entry) {
	retries := q.maxRetries
	failedLastPass := false

	for {
		if failedLastPass {
			if retriable, ok := e.Payload.(domain.Retriable); ok {
				retriable.PrepareForRetry()
			}
		}

		err := q.onMessage(ctx, e)
		if err == nil {
			return
		}

		if errors.Is(err, domain.ErrTimeout) {
			q.router.SendLater(e.Message, e.Payload, e.Message.Priority, e.Message.DelayMin, e.Message.DelayMax)
			return
		}

		q.log.Error("async queue: on_message failed",
			"queue", q.name, "type", e.Message.Type, "id", e.Message.ID, "error", err)
		failedLastPass = true

		select {
		case <-time.After(q.retryWait):
		case <-ctx.Done():
			return
		}

		retries--
		if retries == 0 {
			q.log.Error("async queue: retries exhausted, dropping message",
				"queue", q.name, "type", e.Message.Type, "id", e.Message.ID)
			return
		}
	}
}
