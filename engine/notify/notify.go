// Package notify implements the optional Event Notifier (§2.1.O): a
// fire-and-forget publish of pipeline milestones to an external bus for
// observability. It is never consulted by the scheduler or the pipeline
// for correctness — a publish failure is logged and otherwise ignored.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Gawain27/PubScraper/pkg/natsutil"
)

// SentEvent is published when a document completes the Send stage.
type SentEvent struct {
	Namespace string    `json:"namespace"`
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SentAt    time.Time `json:"sent_at"`
}

// RecoveredEvent is published once the Recovery pass finishes.
type RecoveredEvent struct {
	DocumentsSent int       `json:"documents_sent"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Notifier publishes pipeline milestones. A nil *Notifier is valid and a
// no-op, matching NATS_URL="" meaning "notifier disabled" (§6).
type Notifier struct {
	nc      *nats.Conn
	subject string
	log     *slog.Logger
}

// New wraps an optional NATS connection. nc may be nil to produce a
// permanently-disabled notifier.
func New(nc *nats.Conn, subject string, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{nc: nc, subject: subject, log: log}
}

// NotifySent publishes a SentEvent. Failures are logged, never returned,
// since notification is best-effort and must not affect pipeline
// correctness (§4.I).
func (n *Notifier) NotifySent(ctx context.Context, namespace, id, entityType string) {
	if n == nil || n.nc == nil {
		return
	}
	evt := SentEvent{Namespace: namespace, ID: id, Type: entityType, SentAt: time.Now()}
	if err := natsutil.Publish(ctx, n.nc, n.subject+".sent", evt); err != nil {
		n.log.Warn("notify: publish sent event failed", "error", err)
	}
}

// NotifyRecovered publishes a RecoveredEvent once the Recovery pass
// finishes.
func (n *Notifier) NotifyRecovered(ctx context.Context, count int) {
	if n == nil || n.nc == nil {
		return
	}
	evt := RecoveredEvent{DocumentsSent: count, FinishedAt: time.Now()}
	if err := natsutil.Publish(ctx, n.nc, n.subject+".recovered", evt); err != nil {
		n.log.Warn("notify: publish recovered event failed", "error", err)
	}
}
