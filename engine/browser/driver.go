// Package browser implements the Tab Pool (§4.B), the Politeness
// Controller (§4.C), and the Captcha Policy that gates page reads on a
// detected challenge. The real browser-automation backend is external
// (Selenium/Playwright-class); this package only depends on a small Driver
// interface so a deterministic fake can stand in for tests.
package browser

import "context"

// Driver abstracts the browser-automation backend. A single Driver
// instance is shared by every tab; operations that touch it are serialized
// by TabPool's process-wide lock, since real WebDriver implementations are
// not thread-safe (§4.B).
type Driver interface {
	// Open creates a new browser tab and returns its id.
	Open(ctx context.Context) (tabID string, err error)
	// Navigate switches to tabID's window and loads url.
	Navigate(ctx context.Context, tabID, url string) error
	// ReadyState returns the tab's document.readyState.
	ReadyState(ctx context.Context, tabID string) (string, error)
	// DismissAlert dismisses any open JS alert/confirm/prompt dialog on
	// tabID, if one is present; a no-op otherwise.
	DismissAlert(ctx context.Context, tabID string) error
	// PageSource returns tabID's current page source.
	PageSource(ctx context.Context, tabID string) (string, error)
	// Close tears down tabID.
	Close(ctx context.Context, tabID string) error
}
