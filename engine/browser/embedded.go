package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
)

// EmbeddedDriver is the only in-repo Driver: it fetches pages with a plain
// net/http client and executes no JavaScript. It stands in for the real
// Chrome/Firefox WebDriver backends named by BrowserChrome/BrowserFirefox,
// which require an external automation binary this repository does not
// ship (§4.B Non-goals). It is enough to drive the regexp-based adapters
// against server-rendered markup.
type EmbeddedDriver struct {
	client *http.Client

	nextID int64

	mu   sync.Mutex
	body map[string]string
}

// NewEmbeddedDriver builds a Driver backed by client, or http.DefaultClient
// if client is nil.
func NewEmbeddedDriver(client *http.Client) *EmbeddedDriver {
	if client == nil {
		client = http.DefaultClient
	}
	return &EmbeddedDriver{client: client, body: make(map[string]string)}
}

func (d *EmbeddedDriver) Open(ctx context.Context) (string, error) {
	id := atomic.AddInt64(&d.nextID, 1)
	tabID := "embedded-" + strconv.FormatInt(id, 10)
	d.mu.Lock()
	d.body[tabID] = ""
	d.mu.Unlock()
	return tabID, nil
}

func (d *EmbeddedDriver) Navigate(ctx context.Context, tabID, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("embedded driver: build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedded driver: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("embedded driver: read %s: %w", url, err)
	}

	d.mu.Lock()
	d.body[tabID] = string(data)
	d.mu.Unlock()
	return nil
}

// ReadyState always reports complete: there is no asynchronous rendering to
// wait on without a JavaScript engine.
func (d *EmbeddedDriver) ReadyState(ctx context.Context, tabID string) (string, error) {
	return "complete", nil
}

// DismissAlert is a no-op: a driver with no JS execution never raises one.
func (d *EmbeddedDriver) DismissAlert(ctx context.Context, tabID string) error {
	return nil
}

func (d *EmbeddedDriver) PageSource(ctx context.Context, tabID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	body, ok := d.body[tabID]
	if !ok {
		return "", fmt.Errorf("embedded driver: unknown tab %s", tabID)
	}
	return body, nil
}

func (d *EmbeddedDriver) Close(ctx context.Context, tabID string) error {
	d.mu.Lock()
	delete(d.body, tabID)
	d.mu.Unlock()
	return nil
}
