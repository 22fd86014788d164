package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Gawain27/PubScraper/engine/browser"
	"github.com/Gawain27/PubScraper/engine/domain"
)

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// newDriverFor resolves the configured BrowserType to a Driver
// implementation. Only BrowserEmbedded ships in-repo; the remote-browser
// types need an external WebDriver binary this repository does not bundle.
func newDriverFor(browserType domain.BrowserType) (browser.Driver, error) {
	switch browserType {
	case domain.BrowserEmbedded, "":
		return browser.NewEmbeddedDriver(nil), nil
	default:
		return nil, fmt.Errorf("browser type %q requires an external driver binary not bundled with this build", browserType)
	}
}

// loadSeeds reads a {interface: [seed, ...]} JSON map of root values to
// start each enabled interface's collectors from. A blank path yields no
// seeds, which is valid for a pure worker instance that only reacts to
// messages already on the queue.
func loadSeeds(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read seeds %s: %w", path, err)
	}
	var seeds map[string][]string
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seeds %s: %w", path, err)
	}
	return seeds, nil
}
