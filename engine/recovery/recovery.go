// Package recovery implements the startup Recovery pass (§4.K): for every
// namespace with at least one unsent document, ship it directly to the
// Socket Sender, bypassing SerializeTag/Compress messaging entirely. This
// intentionally can ship a document with serialized=false — preserved
// as-is per Design Note §9, not "fixed".
package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gawain27/PubScraper/engine/comm"
	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/notify"
	"github.com/Gawain27/PubScraper/engine/store"
)

const interDocumentPause = 1 * time.Second

// Pass runs the recovery sweep.
type Pass struct {
	docs     *store.DocumentStore
	sender   *comm.SocketSender
	notifier *notify.Notifier
	log      *slog.Logger
}

// New builds a recovery Pass. notifier may be nil.
func New(docs *store.DocumentStore, sender *comm.SocketSender, notifier *notify.Notifier, log *slog.Logger) *Pass {
	if log == nil {
		log = slog.Default()
	}
	return &Pass{docs: docs, sender: sender, notifier: notifier, log: log}
}

// Run iterates every namespace, then every unsent document within it,
// shipping each one directly and sleeping interDocumentPause between
// documents to avoid bursting the downstream aggregator. Returns the
// number of documents shipped.
func (p *Pass) Run(ctx context.Context) (int, error) {
	namespaces, err := p.docs.Namespaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("recovery: list namespaces: %w", err)
	}

	shipped := 0
	for _, namespace := range namespaces {
		unsent, err := p.docs.ListUnsent(ctx, namespace)
		if err != nil {
			p.log.Error("recovery: list unsent failed", "namespace", namespace, "error", err)
			continue
		}

		for _, doc := range unsent {
			if err := p.shipOne(ctx, namespace, doc); err != nil {
				p.log.Error("recovery: ship failed", "namespace", namespace, "id", doc.ID, "error", err)
				continue
			}
			shipped++

			select {
			case <-time.After(interDocumentPause):
			case <-ctx.Done():
				return shipped, ctx.Err()
			}
		}
	}

	p.notifier.NotifyRecovered(ctx, shipped)
	return shipped, nil
}

func (p *Pass) shipOne(ctx context.Context, namespace string, doc domain.EntityDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := p.sender.Send(ctx, payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	_, err = p.docs.Mutate(ctx, namespace, doc.ID, doc.Type, func(d *domain.EntityDocument) {
		d.Sent = true
	})
	if err != nil {
		return fmt.Errorf("stamp sent: %w", err)
	}
	return nil
}
