// Package adapter implements the Source Adapter Framework (§4.G): the
// shared fetch_general_data algorithm, the seen-IDs dedup gate for work
// expansion, and the four concrete source adapters it drives.
package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/engine/pipeline"
	"github.com/Gawain27/PubScraper/engine/router"
	"github.com/Gawain27/PubScraper/engine/store"
)

// FetchFunc performs the adapter-specific external lookup (the original's
// iface_fx): given the phase's params, return a raw result.
type FetchFunc func(ctx context.Context, params map[string]any) (any, error)

// AdditionalFunc optionally transforms a FetchFunc's raw result before
// normalization into document fields.
type AdditionalFunc func(raw any) (any, error)

// Adapter is a phase descriptor: what to fetch next, at what priority, and
// how the result folds into the following phase.
type Adapter struct {
	IfaceRef      string
	PhaseRef      int
	Priority      int
	Params        map[string]any
	ExpectedID    string
	Content       string
	RollOverDepth bool
}

// Source is implemented by each concrete source adapter.
type Source interface {
	IfaceRef() string
	VariantType() int
	// GenerateFetchAdapter builds the phase's FetchFunc/AdditionalFunc pair
	// and its multi-result flag (generate_fetch_adapter).
	GenerateFetchAdapter(phaseRef int) (FetchFunc, AdditionalFunc, multiResult bool, err error)
	// PrepareNextPhase computes the adapters to schedule once doc lands,
	// and a per-iface_ref priority override map.
	PrepareNextPhase(fw *Framework, phaseRef int, doc *domain.EntityDocument, depth int, prevParams map[string]any) ([]Adapter, map[string]int)
	// StartInterfaceCollectors spawns the seed fetch messages for this
	// source (_start_interface_collectors); it is only invoked when the
	// source's IfaceRef is present in interfaces_enabled.
	StartInterfaceCollectors(ctx context.Context, fw *Framework, seeds []string)
}

// SeenIDs is the global dedup gate for work expansion (§4.G), protected by
// its own mutex per the concurrency model in §5.
type SeenIDs struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSeenIDs creates an empty tracker.
func NewSeenIDs() *SeenIDs { return &SeenIDs{seen: make(map[string]struct{})} }

// MarkIfNew records id and reports whether this is the first time it has
// been seen. An empty id is always considered new (unkeyed work is never
// deduped).
func (s *SeenIDs) MarkIfNew(id string) bool {
	if id == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// Framework implements the shared fetch_general_data algorithm (§4.G) on
// behalf of every registered Source.
type Framework struct {
	docs    *store.DocumentStore
	router  *router.Router
	seen    *SeenIDs
	cfg     domain.Config
	log     *slog.Logger
	sources map[string]Source
}

// NewFramework wires the shared dependencies every source adapter needs.
func NewFramework(docs *store.DocumentStore, r *router.Router, cfg domain.Config, log *slog.Logger) *Framework {
	if log == nil {
		log = slog.Default()
	}
	return &Framework{
		docs:    docs,
		router:  r,
		seen:    NewSeenIDs(),
		cfg:     cfg,
		log:     log,
		sources: make(map[string]Source),
	}
}

// Register binds a Source under its own IfaceRef.
func (fw *Framework) Register(src Source) {
	fw.sources[src.IfaceRef()] = src
}

// Source looks up a previously registered adapter by iface_ref.
func (fw *Framework) Source(ifaceRef string) (Source, bool) {
	src, ok := fw.sources[ifaceRef]
	return src, ok
}

// StartCollectors runs StartInterfaceCollectors for every enabled
// interface, gated by interfaces_enabled (§6).
func (fw *Framework) StartCollectors(ctx context.Context, seeds map[string][]string) {
	for ifaceRef, src := range fw.sources {
		if !fw.cfg.IfaceEnabled(ifaceRef) {
			continue
		}
		src.StartInterfaceCollectors(ctx, fw, seeds[ifaceRef])
	}
}

// GenerateAdapterWithPrio is generate_adapter_with_prio (§4.G): consults
// the seen-IDs set; returns ok=false if expectedID has already been
// scheduled, otherwise returns a ready-to-send Adapter.
func (fw *Framework) GenerateAdapterWithPrio(ifaceRef string, phaseRef, priority int, params map[string]any, content, expectedID string, rollOverDepth bool) (Adapter, bool) {
	if !fw.seen.MarkIfNew(expectedID) {
		return Adapter{}, false
	}
	return Adapter{
		IfaceRef:      ifaceRef,
		PhaseRef:      phaseRef,
		Priority:      priority,
		Params:        params,
		ExpectedID:    expectedID,
		Content:       content,
		RollOverDepth: rollOverDepth,
	}, true
}

// normalize coerces a FetchFunc's raw result into document fields, folding
// a scalar/slice result into a single-key map when it is not already one.
func normalize(raw any) map[string]any {
	if fields, ok := raw.(map[string]any); ok {
		return fields
	}
	return map[string]any{"value": raw}
}

// FetchGeneralData runs the shared fetch_general_data algorithm (§4.G) for
// one scraper-queue message: freshness check, fetch-on-stale, upsert,
// SerializeTag emission, and next-phase expansion.
func (fw *Framework) FetchGeneralData(ctx context.Context, msg domain.Message, a Adapter) error {
	src, ok := fw.sources[a.IfaceRef]
	if !ok {
		return fmt.Errorf("adapter: no source registered for iface_ref %q", a.IfaceRef)
	}

	doc, err := fw.docs.Get(ctx, a.IfaceRef, a.ExpectedID)
	if err != nil {
		return fmt.Errorf("adapter: fetch_general_data get: %w", err)
	}

	refreshed := false
	if domain.IsStale(doc, time.Now(), fw.cfg.MinSecondsBetweenUpdates) {
		fetchFn, additional, multiResult, err := src.GenerateFetchAdapter(a.PhaseRef)
		if err != nil {
			return fmt.Errorf("adapter: generate_fetch_adapter: %w", err)
		}

		raw, err := fetchFn(ctx, a.Params)
		if err != nil {
			return domain.NewFetchError(a.IfaceRef, a.PhaseRef, err)
		}
		if additional != nil {
			raw, err = additional(raw)
			if err != nil {
				return domain.NewFetchError(a.IfaceRef, a.PhaseRef, err)
			}
		}
		fields := normalize(raw)

		updated, err := fw.docs.Mutate(ctx, a.IfaceRef, a.ExpectedID, a.Content, func(d *domain.EntityDocument) {
			d.Fields = fields
			d.Serialized = false
			d.MultiResult = multiResult
		})
		if err != nil {
			return fmt.Errorf("adapter: fetch_general_data upsert: %w", err)
		}
		doc = updated
		refreshed = true
	}

	if refreshed && doc != nil {
		fw.router.Send(domain.Message{
			Type:             domain.KindSerializeTag,
			Content:          a.ExpectedID,
			System:           true,
			DestinationQueue: domain.QueuePipeline,
		}, pipeline.SerializeTagPayload{
			Namespace:     a.IfaceRef,
			ID:            a.ExpectedID,
			EntityType:    a.Content,
			EntityClass:   a.PhaseRef,
			EntityVariant: src.VariantType(),
		}, domain.PriorityEntitySerial, 0, 0)
	}

	nextAdapters, prioMap := src.PrepareNextPhase(fw, a.PhaseRef, doc, msg.Depth, a.Params)
	for _, next := range nextAdapters {
		nextMsg := msg
		nextMsg.Content = next.Content
		nextMsg.System = false
		nextMsg.Delayed = true
		if next.RollOverDepth {
			nextMsg.Depth--
		}
		priority := next.Priority
		if override, ok := prioMap[next.IfaceRef]; ok {
			priority = override
		}
		fw.router.SendLater(nextMsg, FetchPayload{Adapter: next},
			priority,
			time.Duration(fw.cfg.MinWaitSeconds*float64(time.Second)),
			time.Duration(fw.cfg.MaxWaitSeconds*float64(time.Second)))
	}

	return nil
}

// FetchPayload is the scraper queue's message payload: a fetch message
// carrying the Adapter describing the unit of work.
type FetchPayload struct {
	Adapter Adapter
}
