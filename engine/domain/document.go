package domain

import "time"

// EntityDocument is the persisted shape for authors, publications,
// conferences, and journals (§3). Source-specific payload fields travel in
// Fields; system fields are named directly so the pipeline stages and the
// Document Store Handler can inspect them without reflection.
type EntityDocument struct {
	ID         string         `json:"_id"`
	Namespace  string         `json:"namespace"`
	Type       string         `json:"type"`
	Fields     map[string]any `json:"fields"`
	UpdateDate time.Time      `json:"update_date"`
	UpdateCount int           `json:"update_count"`
	Serialized bool           `json:"serialized"`
	Sent       bool           `json:"sent"`
	ClassID    int            `json:"class_id,omitempty"`
	VariantID  int            `json:"variant_id,omitempty"`
	MultiResult bool          `json:"multi_result,omitempty"`
	// Rev is the optimistic-concurrency revision token, bumped on every
	// successful write and checked-and-swapped on conflicting writes
	// (§4.H). Stands in for the original's CouchDB _rev field.
	Rev int `json:"rev"`
}

// Exists reports whether a document was actually found in the store (a
// nil/zero-value EntityDocument pointer means "not found").
func Exists(doc *EntityDocument) bool { return doc != nil }

// IsStale implements the freshness rule from §4.G.1: a document is stale if
// it is missing, has no update_date, is not serialized, or the freshness
// window has elapsed.
func IsStale(doc *EntityDocument, now time.Time, minSecondsBetweenUpdates int) bool {
	if !Exists(doc) {
		return true
	}
	if doc.UpdateDate.IsZero() {
		return true
	}
	if !doc.Serialized {
		return true
	}
	elapsed := now.Sub(doc.UpdateDate)
	return elapsed >= time.Duration(minSecondsBetweenUpdates)*time.Second
}

// Touch stamps the system fields mutated by every successful upsert.
func (d *EntityDocument) Touch(now time.Time, entityType string) {
	d.Type = entityType
	if d.UpdateCount == 0 {
		d.UpdateCount = 1
	} else {
		d.UpdateCount++
	}
	d.UpdateDate = now
}
