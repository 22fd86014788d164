package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used by the Scraper Queue's error-classification policy
// (§4.F) and the Async Work Queue's retry loop (§4.E).
var (
	// ErrTimeout marks a transient network failure. The Async Work Queue
	// re-enqueues via send_later without consuming a retry.
	ErrTimeout = errors.New("timeout")

	// ErrEndOfIteration marks a benign end of a paginated fetch. Logged and
	// swallowed by the Scraper Queue.
	ErrEndOfIteration = errors.New("end of iteration")

	// ErrEntityNotFound marks a key/lookup miss on a fetched document.
	// Logged and swallowed as "entity not processable".
	ErrEntityNotFound = errors.New("entity not processable")

	// ErrIgnoreCaptcha and ErrUnimplementedCaptcha are raised by the
	// captcha policy hook and swallowed with a warning.
	ErrIgnoreCaptcha         = errors.New("captcha ignored")
	ErrUnimplementedCaptcha = errors.New("captcha handling not implemented")

	// ErrDocumentConflict marks write-conflict exhaustion in the document
	// store after the bounded retry policy gives up.
	ErrDocumentConflict = errors.New("document store write conflict")

	// ErrDepthExceeded marks a message silently dropped for exceeding
	// depth_max. Not normally surfaced as an error to a caller; used
	// internally for logging and tests.
	ErrDepthExceeded = errors.New("message depth exceeds depth_max")

	// ErrAlreadyScheduled marks a dedup-gate rejection in
	// generate_adapter_with_prio (§4.G).
	ErrAlreadyScheduled = errors.New("expected_id already scheduled")
)

// FetchError wraps a fetch/adapter failure with phase context, mirroring
// engine/domain.ValidationError's Unwrap-friendly shape in the teacher repo.
type FetchError struct {
	IfaceRef string
	PhaseRef int
	Wrapped  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s phase=%d: %v", e.IfaceRef, e.PhaseRef, e.Wrapped)
}

func (e *FetchError) Unwrap() error { return e.Wrapped }

// NewFetchError wraps err with adapter phase context.
func NewFetchError(ifaceRef string, phaseRef int, err error) *FetchError {
	return &FetchError{IfaceRef: ifaceRef, PhaseRef: phaseRef, Wrapped: err}
}
