// Package pipeline implements the staged entity pipeline (§4.I):
// SerializeTag -> Compress -> Send, each step idempotent against a
// document already past that stage, composed as fn.Stage values and
// driven by a single pipeline AsyncQueue plus a dedicated Send worker.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Gawain27/PubScraper/engine/comm"
	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/notify"
	"github.com/Gawain27/PubScraper/engine/queue"
	"github.com/Gawain27/PubScraper/engine/router"
	"github.com/Gawain27/PubScraper/engine/store"
	"github.com/Gawain27/PubScraper/pkg/fn"
)

// Stages wires the three pipeline steps to a DocumentStore and Router. A
// single instance backs the pipeline AsyncQueue's OnMessageFunc.
type Stages struct {
	docs   *store.DocumentStore
	router *router.Router
	log    *slog.Logger

	tracedSerializeTag fn.Stage[SerializeTagPayload, struct{}]
	tracedCompress     fn.Stage[CompressPayload, struct{}]
}

// NewStages builds the stage set. router is used to emit the next stage's
// message once the current one commits. Each stage is wrapped with
// fn.TracedStage so stage transitions emit OTel spans.
func NewStages(docs *store.DocumentStore, r *router.Router, log *slog.Logger) *Stages {
	if log == nil {
		log = slog.Default()
	}
	s := &Stages{docs: docs, router: r, log: log}
	s.tracedSerializeTag = fn.TracedStage("pipeline.serialize_tag", s.serializeTagStage)
	s.tracedCompress = fn.TracedStage("pipeline.compress", s.compressStage)
	return s
}

// SerializeTag is an fn.Stage: it stamps entity classification onto the
// document and hands off to Compress. A no-op if the document is already
// serialized (§4.I's idempotence requirement).
var _ fn.Stage[SerializeTagPayload, struct{}] = (*Stages)(nil).serializeTagStage

func (s *Stages) serializeTagStage(ctx context.Context, p SerializeTagPayload) fn.Result[struct{}] {
	current, err := s.docs.Get(ctx, p.Namespace, p.ID)
	if err != nil {
		return fn.Err[struct{}](fmt.Errorf("pipeline: serialize_tag get: %w", err))
	}
	if current != nil && current.Serialized {
		return fn.Ok(struct{}{})
	}

	_, err = s.docs.Mutate(ctx, p.Namespace, p.ID, p.EntityType, func(d *domain.EntityDocument) {
		d.ClassID = p.EntityClass
		d.VariantID = p.EntityVariant
		d.Serialized = true
		d.Sent = false
	})
	if err != nil {
		return fn.Err[struct{}](fmt.Errorf("pipeline: serialize_tag mutate: %w", err))
	}

	s.router.Send(domain.Message{
		Type:             domain.KindCompress,
		Content:          p.ID,
		System:           true,
		DestinationQueue: domain.QueuePipeline,
	}, CompressPayload{Namespace: p.Namespace, ID: p.ID, EntityType: p.EntityType}, domain.PriorityEntityPackage, 0, 0)

	return fn.Ok(struct{}{})
}

// SerializeTag is the router-facing entry point; it unwraps the fn.Stage
// result and returns only its error, the shape AsyncQueue expects.
func (s *Stages) SerializeTag(ctx context.Context, p SerializeTagPayload) error {
	_, err := s.tracedSerializeTag(ctx, p).Unwrap()
	return err
}

var _ fn.Stage[CompressPayload, struct{}] = (*Stages)(nil).compressStage

func (s *Stages) compressStage(ctx context.Context, p CompressPayload) fn.Result[struct{}] {
	current, err := s.docs.Get(ctx, p.Namespace, p.ID)
	if err != nil {
		return fn.Err[struct{}](fmt.Errorf("pipeline: compress get: %w", err))
	}
	if current == nil {
		return fn.Err[struct{}](domain.ErrEntityNotFound)
	}
	if current.Sent {
		return fn.Ok(struct{}{})
	}

	payload, err := json.Marshal(current)
	if err != nil {
		return fn.Err[struct{}](fmt.Errorf("pipeline: compress marshal: %w", err))
	}

	s.router.Send(domain.Message{
		Type:             domain.KindSend,
		Content:          p.ID,
		System:           true,
		DestinationQueue: domain.QueuePipeline,
	}, SendPayload{Namespace: p.Namespace, ID: p.ID, EntityType: p.EntityType, Bytes: payload}, domain.PriorityEntitySend, 0, 0)

	return fn.Ok(struct{}{})
}

// Compress JSON-encodes an already-tagged document and hands the bytes to
// the Send stage. A no-op if the document has already been sent.
func (s *Stages) Compress(ctx context.Context, p CompressPayload) error {
	_, err := s.tracedCompress(ctx, p).Unwrap()
	return err
}

// OnMessage is the pipeline AsyncQueue's OnMessageFunc: a type switch over
// the three payload kinds, the "sum type ... dispatched with exhaustive
// case analysis" from Design Note §9. SerializeTag and Compress run inline
// since they are cheap upserts; Send is handed off to the unbounded FIFO so
// a slow downstream aggregator never blocks the pipeline queue's worker.
func (s *Stages) OnMessage(sendQueue *sendFIFO) router.OnMessageFunc {
	return func(ctx context.Context, e queue.Entry) error {
		switch p := e.Payload.(type) {
		case SerializeTagPayload:
			return s.SerializeTag(ctx, p)
		case CompressPayload:
			return s.Compress(ctx, p)
		case SendPayload:
			sendQueue.Push(p)
			return nil
		default:
			return fmt.Errorf("pipeline: unrecognized payload %T", e.Payload)
		}
	}
}

// SendWorker drains the internal Send FIFO, one document at a time, calling
// the Socket Sender and stamping sent=true on success (§4.I, §4.J).
type SendWorker struct {
	queue    *sendFIFO
	docs     *store.DocumentStore
	sender   *comm.SocketSender
	notifier *notify.Notifier
	log      *slog.Logger
}

// NewSendWorker builds a SendWorker. notifier may be nil.
func NewSendWorker(docs *store.DocumentStore, sender *comm.SocketSender, notifier *notify.Notifier, log *slog.Logger) *SendWorker {
	if log == nil {
		log = slog.Default()
	}
	return &SendWorker{
		queue:    newSendFIFO(),
		docs:     docs,
		sender:   sender,
		notifier: notifier,
		log:      log,
	}
}

// Queue exposes the internal FIFO for OnMessage to push onto.
func (w *SendWorker) Queue() *sendFIFO { return w.queue }

// Run drains the FIFO until ctx is cancelled. Each item's document is
// re-read from the store immediately before sending and skipped if it is
// gone or already sent. The bytes queued by Compress are what ships; the
// re-read document is marshalled only when the item carries no bytes.
func (w *SendWorker) Run(ctx context.Context) {
	defer w.queue.Close()
	for {
		item, ok := w.queue.Pop(ctx)
		if !ok {
			return
		}
		w.deliver(ctx, item)
	}
}

func (w *SendWorker) deliver(ctx context.Context, item SendPayload) {
	current, err := w.docs.Get(ctx, item.Namespace, item.ID)
	if err != nil {
		w.log.Error("pipeline: send reload failed", "namespace", item.Namespace, "id", item.ID, "error", err)
		return
	}
	if current == nil || current.Sent {
		return
	}

	payload := item.Bytes
	if len(payload) == 0 {
		payload, err = json.Marshal(current)
		if err != nil {
			w.log.Error("pipeline: send re-marshal failed", "id", item.ID, "error", err)
			return
		}
	}

	if err := w.sender.Send(ctx, payload); err != nil {
		w.log.Error("pipeline: send failed", "namespace", item.Namespace, "id", item.ID, "error", err)
		return
	}

	_, err = w.docs.Mutate(ctx, item.Namespace, item.ID, item.EntityType, func(d *domain.EntityDocument) {
		d.Sent = true
	})
	if err != nil {
		w.log.Error("pipeline: stamp sent failed", "namespace", item.Namespace, "id", item.ID, "error", err)
		return
	}

	w.notifier.NotifySent(ctx, item.Namespace, item.ID, item.EntityType)
}
