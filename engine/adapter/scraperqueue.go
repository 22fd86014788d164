package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/queue"
	"github.com/Gawain27/PubScraper/engine/statstore"
)

// ScraperQueue is the Scraper Queue (§4.F): bumps the per-content stat
// counter, then hands the fetch message to the Source Adapter Framework,
// applying the fixed error-classification policy before the Async Work
// Queue's own retry loop ever sees an error.
type ScraperQueue struct {
	fw    *Framework
	stats *statstore.Store
	log   *slog.Logger
}

// NewScraperQueue builds a ScraperQueue over fw, bumping content counters
// in stats.
func NewScraperQueue(fw *Framework, stats *statstore.Store, log *slog.Logger) *ScraperQueue {
	if log == nil {
		log = slog.Default()
	}
	return &ScraperQueue{fw: fw, stats: stats, log: log}
}

// OnMessage implements router.OnMessageFunc for the "scraper" destination
// queue.
func (q *ScraperQueue) OnMessage(ctx context.Context, e queue.Entry) error {
	payload, ok := e.Payload.(FetchPayload)
	if !ok {
		return fmt.Errorf("scraper queue: unexpected payload %T", e.Payload)
	}

	if q.stats != nil {
		if err := q.stats.BumpContent(e.Message.Content, time.Now()); err != nil {
			q.log.Warn("scraper queue: bump content stat failed", "content", e.Message.Content, "error", err)
		}
	}

	err := q.fw.FetchGeneralData(ctx, e.Message, payload.Adapter)
	return q.classify(err)
}

// classify implements §4.F's error policy: captcha-related and
// end-of-iteration/not-found errors are logged and swallowed; everything
// else is returned so the Async Work Queue's retry loop engages.
func (q *ScraperQueue) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrIgnoreCaptcha), errors.Is(err, domain.ErrUnimplementedCaptcha):
		q.log.Warn("scraper queue: captcha policy swallowed message", "error", err)
		return nil
	case errors.Is(err, domain.ErrEndOfIteration):
		q.log.Error("scraper queue: end of iteration", "error", err)
		return nil
	case errors.Is(err, domain.ErrEntityNotFound):
		q.log.Error("scraper queue: entity not processable", "error", err)
		return nil
	default:
		return err
	}
}
