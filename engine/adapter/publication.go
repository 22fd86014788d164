package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/Gawain27/PubScraper/engine/domain"
)

var (
	pubTitlePattern    = regexp.MustCompile(`<div class="gsc_oci_title">([^<]+)</div>`)
	pubCitedByPattern  = regexp.MustCompile(`Cited by (\d+)`)
	pubCoauthorPattern = regexp.MustCompile(`<a class="gsc_oci_coauthor" href="[^"]*user=([^"&]+)"`)
	pubVenuePattern    = regexp.MustCompile(`<div class="gsc_oci_venue" data-kind="([a-z]+)">([^<]+)</div>`)
)

const publicationMetadataPhase = 0

// PublicationSource implements the publication index adapter (§4.G.1):
// phase 0 fetches a publication's metadata and citation count.
type PublicationSource struct {
	fetcher PageFetcher
	baseURL string
}

// NewPublicationSource wires the publication adapter to fetcher.
func NewPublicationSource(fetcher PageFetcher) *PublicationSource {
	return &PublicationSource{fetcher: fetcher, baseURL: "https://scholar.example/citations/view_citation"}
}

func (p *PublicationSource) IfaceRef() string { return domain.IfacePublication }
func (p *PublicationSource) VariantType() int { return domain.ClassPub }

func (p *PublicationSource) GenerateFetchAdapter(phaseRef int) (FetchFunc, AdditionalFunc, bool, error) {
	if phaseRef != publicationMetadataPhase {
		return nil, nil, false, fmt.Errorf("adapter: publication - unknown phase %d", phaseRef)
	}
	return p.fetchMetadata, nil, false, nil
}

func (p *PublicationSource) fetchMetadata(ctx context.Context, params map[string]any) (any, error) {
	pubURL, _ := params["url"].(string)
	if pubURL == "" {
		return nil, domain.ErrEntityNotFound
	}
	if _, err := url.Parse(pubURL); err != nil {
		return nil, fmt.Errorf("adapter: publication - invalid url %q: %w", pubURL, err)
	}

	html, err := p.fetcher.FetchHTML(ctx, pubURL)
	if err != nil {
		return nil, err
	}

	title, _ := extractField(html, pubTitlePattern)
	citedByStr, _ := extractField(html, pubCitedByPattern)
	coauthors := extractAll(html, pubCoauthorPattern)

	venueKind, venueName := "", ""
	if m := pubVenuePattern.FindStringSubmatch(html); len(m) == 3 {
		venueKind, venueName = m[1], m[2]
	}

	return map[string]any{
		"title":         title,
		"cited_by":      citedByStr,
		"coauthors":     coauthors,
		"venue_kind":    venueKind,
		"venue_name":    venueName,
		"publication_url": pubURL,
	}, nil
}

// PrepareNextPhase emits one author-adapter fetch per coauthor not already
// seen, rolled over (coauthor expansion is lateral, not a cost-bearing
// descent), and one venue-rank fetch (conference or journal, per the
// scraped venue kind).
func (p *PublicationSource) PrepareNextPhase(fw *Framework, phaseRef int, doc *domain.EntityDocument, depth int, prevParams map[string]any) ([]Adapter, map[string]int) {
	if doc == nil || phaseRef != publicationMetadataPhase {
		return nil, nil
	}

	var out []Adapter
	for _, coauthor := range stringSliceField(doc.Fields["coauthors"]) {
		next, ok := fw.GenerateAdapterWithPrio(domain.IfaceAuthor, authorProfilePhase,
			domain.PriorityAuthorReq, map[string]any{"name": coauthor}, coauthor, coauthor, true)
		if ok {
			out = append(out, next)
		}
	}

	venueKind, _ := doc.Fields["venue_kind"].(string)
	venueName, _ := doc.Fields["venue_name"].(string)
	if venueName != "" {
		switch venueKind {
		case "conference":
			if next, ok := fw.GenerateAdapterWithPrio(domain.IfaceConference, conferenceRankPhase,
				domain.PriorityConferenceReq, map[string]any{"name": venueName}, venueName, venueName, false); ok {
				out = append(out, next)
			}
		default:
			if next, ok := fw.GenerateAdapterWithPrio(domain.IfaceJournal, journalRankPhase,
				domain.PriorityJournalReq, map[string]any{"name": venueName}, venueName, venueName, false); ok {
				out = append(out, next)
			}
		}
	}

	return out, nil
}

// StartInterfaceCollectors is a no-op: publications are only ever
// discovered as a next-phase expansion of an author profile, never seeded
// directly (matching the original's lack of a standalone publication
// seed list).
func (p *PublicationSource) StartInterfaceCollectors(ctx context.Context, fw *Framework, seeds []string) {
}

// stringSliceField tolerates both a freshly-mutated []string and a
// JSON-round-tripped []any. AuthorSource.PrepareNextPhase uses it as well.
func stringSliceField(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
