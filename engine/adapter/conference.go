package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/Gawain27/PubScraper/engine/domain"
)

var (
	confRankPattern = regexp.MustCompile(`<span class="core-rank">([A-C\*]+)</span>`)
	confFieldPattern = regexp.MustCompile(`<span class="core-field">([^<]+)</span>`)
)

const conferenceRankPhase = 0

// ConferenceSource implements the conference-rank adapter (§4.G.1): phase
// 0 looks up a conference's ranking tier by name. Terminal — it never
// schedules further work.
type ConferenceSource struct {
	fetcher PageFetcher
	baseURL string
}

// NewConferenceSource wires the conference-rank adapter to fetcher.
func NewConferenceSource(fetcher PageFetcher) *ConferenceSource {
	return &ConferenceSource{fetcher: fetcher, baseURL: "https://core.example/conf-rank"}
}

func (c *ConferenceSource) IfaceRef() string { return domain.IfaceConference }
func (c *ConferenceSource) VariantType() int { return domain.ClassConference }

func (c *ConferenceSource) GenerateFetchAdapter(phaseRef int) (FetchFunc, AdditionalFunc, bool, error) {
	if phaseRef != conferenceRankPhase {
		return nil, nil, false, fmt.Errorf("adapter: conference - unknown phase %d", phaseRef)
	}
	return c.fetchRank, nil, false, nil
}

func (c *ConferenceSource) fetchRank(ctx context.Context, params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, domain.ErrEntityNotFound
	}

	pageURL := c.baseURL + "?name=" + url.QueryEscape(name)
	html, err := c.fetcher.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	rank, _ := extractField(html, confRankPattern)
	field, _ := extractField(html, confFieldPattern)

	return map[string]any{
		"name":  name,
		"rank":  rank,
		"field": field,
	}, nil
}

// PrepareNextPhase returns no further work; the conference-rank adapter is
// terminal per §4.G.1.
func (c *ConferenceSource) PrepareNextPhase(fw *Framework, phaseRef int, doc *domain.EntityDocument, depth int, prevParams map[string]any) ([]Adapter, map[string]int) {
	return nil, nil
}

// StartInterfaceCollectors is a no-op: conferences are only ever reached
// as a next-phase expansion of a publication's venue, never seeded
// directly.
func (c *ConferenceSource) StartInterfaceCollectors(ctx context.Context, fw *Framework, seeds []string) {
}
