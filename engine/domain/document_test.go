package domain

import (
	"testing"
	"time"
)

func TestIsStaleNilDocument(t *testing.T) {
	if !IsStale(nil, time.Now(), 60) {
		t.Fatal("nil document should be stale")
	}
}

func TestIsStaleZeroUpdateDate(t *testing.T) {
	doc := &EntityDocument{Serialized: true}
	if !IsStale(doc, time.Now(), 60) {
		t.Fatal("document with no update_date should be stale")
	}
}

func TestIsStaleNotSerialized(t *testing.T) {
	doc := &EntityDocument{UpdateDate: time.Now(), Serialized: false}
	if !IsStale(doc, time.Now(), 60) {
		t.Fatal("unserialized document should be stale")
	}
}

func TestIsStaleWindowElapsed(t *testing.T) {
	doc := &EntityDocument{UpdateDate: time.Now().Add(-2 * time.Minute), Serialized: true}
	if !IsStale(doc, time.Now(), 60) {
		t.Fatal("document past the freshness window should be stale")
	}
}

func TestIsStaleFresh(t *testing.T) {
	doc := &EntityDocument{UpdateDate: time.Now(), Serialized: true}
	if IsStale(doc, time.Now(), 3600) {
		t.Fatal("recently updated document should not be stale")
	}
}

func TestTouchFirstCall(t *testing.T) {
	doc := &EntityDocument{}
	now := time.Now()
	doc.Touch(now, IfaceAuthor)
	if doc.UpdateCount != 1 {
		t.Fatalf("expected update_count 1 on first touch, got %d", doc.UpdateCount)
	}
	if doc.Type != IfaceAuthor {
		t.Fatalf("expected type %q, got %q", IfaceAuthor, doc.Type)
	}
	if !doc.UpdateDate.Equal(now) {
		t.Fatal("update_date should be stamped")
	}
}

func TestTouchSubsequentCall(t *testing.T) {
	doc := &EntityDocument{UpdateCount: 3}
	doc.Touch(time.Now(), IfacePublication)
	if doc.UpdateCount != 4 {
		t.Fatalf("expected update_count to increment to 4, got %d", doc.UpdateCount)
	}
}

func TestExists(t *testing.T) {
	if Exists(nil) {
		t.Fatal("nil should not exist")
	}
	if !Exists(&EntityDocument{}) {
		t.Fatal("non-nil pointer should exist")
	}
}
