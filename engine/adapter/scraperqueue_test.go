package adapter

import (
	"testing"

	"github.com/Gawain27/PubScraper/engine/domain"
)

func TestScraperQueueClassifySwallowsKnownErrors(t *testing.T) {
	q := NewScraperQueue(NewFramework(nil, nil, domain.Config{}, nil), nil, nil)

	swallowed := []error{
		domain.ErrIgnoreCaptcha,
		domain.ErrUnimplementedCaptcha,
		domain.ErrEndOfIteration,
		domain.ErrEntityNotFound,
		nil,
	}
	for _, err := range swallowed {
		if got := q.classify(err); got != nil {
			t.Fatalf("classify(%v) = %v, want nil", err, got)
		}
	}
}

func TestScraperQueueClassifyPropagatesUnknownErrors(t *testing.T) {
	q := NewScraperQueue(NewFramework(nil, nil, domain.Config{}, nil), nil, nil)

	boom := domain.NewFetchError("author", 0, domain.ErrTimeout)
	if got := q.classify(boom); got != boom {
		t.Fatalf("classify should propagate unrecognized errors unchanged, got %v", got)
	}
}
