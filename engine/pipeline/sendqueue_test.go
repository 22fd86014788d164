package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestSendFIFOPushPop(t *testing.T) {
	f := newSendFIFO()
	f.Push(SendPayload{ID: "a"})
	f.Push(SendPayload{ID: "b"})

	ctx := context.Background()
	first, ok := f.Pop(ctx)
	if !ok || first.ID != "a" {
		t.Fatalf("expected a first, got %+v ok=%v", first, ok)
	}
	second, ok := f.Pop(ctx)
	if !ok || second.ID != "b" {
		t.Fatalf("expected b second, got %+v ok=%v", second, ok)
	}
}

func TestSendFIFOBlocksUntilPush(t *testing.T) {
	f := newSendFIFO()
	done := make(chan SendPayload, 1)
	go func() {
		item, ok := f.Pop(context.Background())
		if ok {
			done <- item
		}
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before any Push")
	case <-time.After(50 * time.Millisecond):
	}

	f.Push(SendPayload{ID: "late"})
	select {
	case item := <-done:
		if item.ID != "late" {
			t.Fatalf("expected late, got %+v", item)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up after Push")
	}
}

func TestSendFIFOCancelContext(t *testing.T) {
	f := newSendFIFO()
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan bool, 1)
	go func() {
		_, ok := f.Pop(ctx)
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-result:
		if ok {
			t.Fatal("expected ok=false after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after cancellation")
	}
}

func TestSendFIFOClose(t *testing.T) {
	f := newSendFIFO()
	result := make(chan bool, 1)
	go func() {
		_, ok := f.Pop(context.Background())
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	f.Close()

	select {
	case ok := <-result:
		if ok {
			t.Fatal("expected ok=false after Close with empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Close")
	}
}
