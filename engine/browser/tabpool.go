package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Gawain27/PubScraper/engine/domain"
)

type tabState struct {
	id   string
	busy bool
	url  string
}

// TabPool is the Tab Pool (§4.B): a fixed-size set of browser tabs acquired
// exclusively, with condition-variable-based waiting for a free tab.
type TabPool struct {
	log *slog.Logger

	driver Driver
	// driverMu serializes every call that touches the driver, since real
	// WebDriver backends are not thread-safe (§4.B).
	driverMu sync.Mutex

	mu    sync.Mutex
	cond  *sync.Cond
	tabs  []*tabState

	politeness   *Controller
	captchaDiv   string
	captchaAction domain.CaptchaAction
	banPhrase    string

	// limiter caps outbound navigations pool-wide, on top of the per-tab
	// politeness wait: one token per minimum wait interval as read from the
	// Politeness Controller when the pool is built, burstable up to the
	// pool's capacity. Later window changes do not alter it.
	limiter *rate.Limiter
}

// Opts configures a TabPool.
type Opts struct {
	Capacity      int
	CaptchaDiv    string
	CaptchaAction domain.CaptchaAction
	BanPhrase     string
}

// New opens Capacity tabs against driver and returns a ready pool.
func New(ctx context.Context, driver Driver, politeness *Controller, opts Opts, log *slog.Logger) (*TabPool, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 1
	}
	p := &TabPool{
		log:           log,
		driver:        driver,
		politeness:    politeness,
		captchaDiv:    opts.CaptchaDiv,
		captchaAction: opts.CaptchaAction,
		banPhrase:     opts.BanPhrase,
	}
	p.cond = sync.NewCond(&p.mu)
	p.limiter = rate.NewLimiter(rate.Inf, opts.Capacity)
	if politeness != nil {
		if minW, _ := politeness.Window(); minW > 0 {
			p.limiter = rate.NewLimiter(rate.Every(minW), opts.Capacity)
		}
	}

	for i := 0; i < opts.Capacity; i++ {
		id, err := p.openTab(ctx)
		if err != nil {
			return nil, fmt.Errorf("browser: open tab %d: %w", i, err)
		}
		p.tabs = append(p.tabs, &tabState{id: id})
	}
	return p, nil
}

func (p *TabPool) openTab(ctx context.Context) (string, error) {
	p.driverMu.Lock()
	defer p.driverMu.Unlock()
	return p.driver.Open(ctx)
}

// Acquire blocks until a free tab is available or ctx is cancelled.
func (p *TabPool) Acquire(ctx context.Context) (string, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-done:
		}
	}()
	defer close(done)

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		for _, t := range p.tabs {
			if !t.busy {
				t.busy = true
				return t.id, nil
			}
		}
		p.cond.Wait()
	}
}

// Release marks tabID available again and records the last URL loaded
// under tag for Restart's snapshot.
func (p *TabPool) Release(tabID, tag string) {
	p.mu.Lock()
	for _, t := range p.tabs {
		if t.id == tabID {
			t.busy = false
			t.url = tag
			break
		}
	}
	p.mu.Unlock()
	p.cond.Signal()
}

// Load switches to tabID's window and navigates to url, waiting for
// document.readyState == "complete". An unexpected alert is dismissed and
// loading continues.
func (p *TabPool) Load(ctx context.Context, tabID, url string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("browser: rate wait: %w", err)
	}

	p.driverMu.Lock()
	defer p.driverMu.Unlock()

	if err := p.driver.Navigate(ctx, tabID, url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if err := p.driver.DismissAlert(ctx, tabID); err != nil {
			p.log.Debug("browser: dismiss alert failed", "tab", tabID, "error", err)
		}
		state, err := p.driver.ReadyState(ctx, tabID)
		if err != nil {
			return fmt.Errorf("browser: ready state: %w", err)
		}
		if state == "complete" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return domain.ErrTimeout
}

// HTML returns tabID's page source after a politeness wait: extraWait if
// positive, else a uniform random wait within the Politeness Controller's
// current window. If the pool is configured with a captcha div, the
// Captcha Policy runs before the source is returned.
func (p *TabPool) HTML(ctx context.Context, tabID string, extraWait time.Duration) (string, error) {
	wait := extraWait
	if wait <= 0 && p.politeness != nil {
		minW, maxW := p.politeness.Window()
		if maxW > minW {
			wait = minW + time.Duration(rand.Int63n(int64(maxW-minW)))
		} else {
			wait = minW
		}
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	p.driverMu.Lock()
	html, err := p.driver.PageSource(ctx, tabID)
	p.driverMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("browser: page source: %w", err)
	}

	if p.captchaDiv != "" {
		present := strings.Contains(html, p.captchaDiv)
		if err := ApplyCaptchaPolicy(p.captchaAction, present); err != nil {
			return "", err
		}
	}
	if p.politeness != nil && p.banPhrase != "" {
		p.politeness.HasBanPhrase(html, p.banPhrase)
	}
	return html, nil
}

// Restart snapshots each tab's last-loaded URL, closes every tab through
// the driver, then reopens each tab and reloads its URL (§4.B).
func (p *TabPool) Restart(ctx context.Context) error {
	p.mu.Lock()
	snapshot := make([]tabState, len(p.tabs))
	for i, t := range p.tabs {
		snapshot[i] = *t
	}
	p.mu.Unlock()

	p.driverMu.Lock()
	for _, t := range snapshot {
		_ = p.driver.Close(ctx, t.id)
	}
	p.driverMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, old := range snapshot {
		id, err := p.openTab(ctx)
		if err != nil {
			return fmt.Errorf("browser: restart reopen tab %d: %w", i, err)
		}
		p.tabs[i] = &tabState{id: id}
		if old.url != "" {
			if err := p.Load(ctx, id, old.url); err != nil {
				p.log.Warn("browser: restart reload failed", "tab", id, "url", old.url, "error", err)
			}
		}
	}
	return nil
}

// FetchHTML is the adapter-facing convenience entry point: acquire a tab,
// load url, read its source, release. Satisfies the adapter package's
// PageFetcher interface by structural typing.
func (p *TabPool) FetchHTML(ctx context.Context, url string) (string, error) {
	tabID, err := p.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer p.Release(tabID, url)

	if err := p.Load(ctx, tabID, url); err != nil {
		return "", err
	}
	return p.HTML(ctx, tabID, 0)
}
