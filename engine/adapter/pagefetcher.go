package adapter

import "context"

// PageFetcher is the narrow surface each concrete source adapter needs
// from the Tab Pool. Defined here rather than imported from package
// browser so the adapter set stays decoupled from the Tab Pool's
// acquire/load/release lifecycle; browser.TabPool.FetchHTML satisfies it
// structurally.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}
