// Package store implements the Document Store Handler (§4.H): get-document,
// conflict-retry upsert, and per-namespace enumeration for the Recovery
// pass. It is backed by Neo4j via an adapted pkg/repo.Neo4jRepo, with the
// original's per-adapter CouchDB database modeled as a "namespace"
// property on a single node label (see SPEC_FULL.md §4.H).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Gawain27/PubScraper/engine/domain"
	"github.com/Gawain27/PubScraper/pkg/repo"
)

const documentLabel = "Document"

// DocumentStore is the Document Store Handler. One instance is shared by
// every source adapter; namespacing happens per-call, not per-instance.
type DocumentStore struct {
	driver     neo4j.DriverWithContext
	repo       *repo.Neo4jRepo[domain.EntityDocument, string]
	log        *slog.Logger
	maxRetries int
	retryWait  time.Duration
}

// New wraps driver. maxRetries/retryWait are always set to the §4.H
// contract (3 attempts, 5s apart).
func New(driver neo4j.DriverWithContext, log *slog.Logger) *DocumentStore {
	if log == nil {
		log = slog.Default()
	}
	r := repo.NewNeo4jRepo[domain.EntityDocument, string](
		driver, documentLabel, toProps, fromRecord,
		repo.WithIDKey[domain.EntityDocument, string]("store_id"),
	)
	return &DocumentStore{
		driver:     driver,
		repo:       r,
		log:        log,
		maxRetries: 3,
		retryWait:  5 * time.Second,
	}
}

func storeID(namespace, id string) string { return namespace + ":" + id }

// EnsureNamespace creates the namespace's document space on first touch.
// Since namespaces are modeled as a property rather than a literal
// database, there is nothing to provision; this call exists to fail fast
// on authentication/connectivity errors exactly as get_or_create_db does
// in the original, by round-tripping a trivial query against the driver.
func (s *DocumentStore) EnsureNamespace(ctx context.Context, namespace string) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)
	_, err := sess.Run(ctx, "RETURN 1", nil)
	if err != nil {
		return fmt.Errorf("store: ensure namespace %s: %w", namespace, err)
	}
	return nil
}

// Get returns the document at (namespace, id), or (nil, nil) if absent.
func (s *DocumentStore) Get(ctx context.Context, namespace, id string) (*domain.EntityDocument, error) {
	doc, err := s.repo.Get(ctx, storeID(namespace, id))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// ListUnsent returns every document in namespace with sent != true, used
// by the Recovery pass (§4.K).
func (s *DocumentStore) ListUnsent(ctx context.Context, namespace string) ([]domain.EntityDocument, error) {
	return s.repo.List(ctx, repo.ListOpts{
		Limit:  1_000_000,
		Filter: map[string]any{"namespace": namespace, "!sent": true},
	})
}

// Namespaces enumerates every distinct namespace with at least one
// document, for Recovery's "every database in the document store" loop.
func (s *DocumentStore) Namespaces(ctx context.Context) ([]string, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, fmt.Sprintf("MATCH (n:%s) RETURN DISTINCT n.namespace AS ns", documentLabel), nil)
	if err != nil {
		return nil, fmt.Errorf("store: list namespaces: %w", err)
	}
	var out []string
	for result.Next(ctx) {
		v, _ := result.Record().Get("ns")
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// Mutate applies fn to the current document at (namespace, id) (a fresh
// zero-value document if absent) and upserts the result, retrying on
// revision conflict up to maxRetries times, 5s apart, per §4.H. entityType
// is stamped as the document's Type on every successful write.
func (s *DocumentStore) Mutate(ctx context.Context, namespace, id, entityType string, fn func(*domain.EntityDocument)) (*domain.EntityDocument, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.Get(ctx, namespace, id)
		if err != nil {
			return nil, err
		}
		var doc domain.EntityDocument
		expectedRev := 0
		existed := false
		if current != nil {
			doc = *current
			expectedRev = doc.Rev
			existed = true
		} else {
			doc = domain.EntityDocument{ID: id, Namespace: namespace}
		}

		fn(&doc)
		doc.Touch(time.Now(), entityType)
		doc.Rev = expectedRev + 1

		ok, err := s.casWrite(ctx, storeID(namespace, id), doc, expectedRev, existed)
		if err != nil {
			return nil, fmt.Errorf("store: upsert %s/%s: %w", namespace, id, err)
		}
		if ok {
			return &doc, nil
		}

		if attempt >= s.maxRetries {
			return nil, domain.ErrDocumentConflict
		}
		s.log.Warn("store: write conflict, retrying", "namespace", namespace, "id", id, "attempt", attempt)
		select {
		case <-time.After(s.retryWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// casWrite performs a compare-and-swap write inside a single Neo4j managed
// transaction: it re-reads the current revision within the transaction and
// only applies the write if it still matches expectedRev (or the node is
// still absent, for a first write).
func (s *DocumentStore) casWrite(ctx context.Context, sid string, doc domain.EntityDocument, expectedRev int, existed bool) (bool, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	result, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf("MATCH (n:%s {store_id: $id}) RETURN n.rev AS rev", documentLabel), map[string]any{"id": sid})
		if err != nil {
			return false, err
		}
		found := res.Next(ctx)
		if found {
			rec := res.Record()
			v, _ := rec.Get("rev")
			currentRev, _ := toInt(v)
			if currentRev != expectedRev {
				return false, nil
			}
		} else if existed {
			// The document was deleted out from under us between Get and
			// the transaction; treat as a conflict.
			return false, nil
		}

		props := toProps(doc)
		_, err = tx.Run(ctx, fmt.Sprintf("MERGE (n:%s {store_id: $id}) SET n += $props", documentLabel),
			map[string]any{"id": sid, "props": props})
		if err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	ok, _ := result.(bool)
	return ok, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// toProps flattens an EntityDocument into Neo4j node properties. Fields is
// JSON-encoded since Neo4j properties cannot hold nested maps.
func toProps(d domain.EntityDocument) map[string]any {
	fieldsJSON, _ := json.Marshal(d.Fields)
	return map[string]any{
		"store_id":     d.Namespace + ":" + d.ID,
		"id":           d.ID,
		"namespace":    d.Namespace,
		"type":         d.Type,
		"fields_json":  string(fieldsJSON),
		"update_date":  d.UpdateDate.Format(time.RFC3339),
		"update_count": d.UpdateCount,
		"serialized":   d.Serialized,
		"sent":         d.Sent,
		"class_id":     d.ClassID,
		"variant_id":   d.VariantID,
		"multi_result": d.MultiResult,
		"rev":          d.Rev,
	}
}

func fromRecord(rec *neo4j.Record) (domain.EntityDocument, error) {
	v, ok := rec.Get("n")
	if !ok {
		return domain.EntityDocument{}, fmt.Errorf("store: record missing node")
	}
	node, ok := v.(neo4j.Node)
	if !ok {
		return domain.EntityDocument{}, fmt.Errorf("store: unexpected record shape")
	}
	props := node.Props

	var fields map[string]any
	if raw, ok := props["fields_json"].(string); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &fields)
	}

	var updateDate time.Time
	if raw, ok := props["update_date"].(string); ok && raw != "" {
		updateDate, _ = time.Parse(time.RFC3339, raw)
	}

	doc := domain.EntityDocument{
		ID:          asString(props["id"]),
		Namespace:   asString(props["namespace"]),
		Type:        asString(props["type"]),
		Fields:      fields,
		UpdateDate:  updateDate,
		UpdateCount: asInt(props["update_count"]),
		Serialized:  asBool(props["serialized"]),
		Sent:        asBool(props["sent"]),
		ClassID:     asInt(props["class_id"]),
		VariantID:   asInt(props["variant_id"]),
		MultiResult: asBool(props["multi_result"]),
		Rev:         asInt(props["rev"]),
	}
	return doc, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	n, _ := toInt(v)
	return n
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
