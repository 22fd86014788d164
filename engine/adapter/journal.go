package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/Gawain27/PubScraper/engine/domain"
)

var (
	journalTierPattern   = regexp.MustCompile(`<span class="sjr-quartile">([Q][1-4])</span>`)
	journalImpactPattern = regexp.MustCompile(`<span class="sjr-impact">([0-9.]+)</span>`)
)

const journalRankPhase = 0

// JournalSource implements the journal-rank adapter (§4.G.1): phase 0
// looks up a journal's ranking tier, and impact factor when available, by
// name. Terminal — it never schedules further work.
type JournalSource struct {
	fetcher PageFetcher
	baseURL string
}

// NewJournalSource wires the journal-rank adapter to fetcher.
func NewJournalSource(fetcher PageFetcher) *JournalSource {
	return &JournalSource{fetcher: fetcher, baseURL: "https://scimago.example/journal-rank"}
}

func (j *JournalSource) IfaceRef() string { return domain.IfaceJournal }
func (j *JournalSource) VariantType() int { return domain.ClassJournal }

func (j *JournalSource) GenerateFetchAdapter(phaseRef int) (FetchFunc, AdditionalFunc, bool, error) {
	if phaseRef != journalRankPhase {
		return nil, nil, false, fmt.Errorf("adapter: journal - unknown phase %d", phaseRef)
	}
	return j.fetchRank, nil, false, nil
}

func (j *JournalSource) fetchRank(ctx context.Context, params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, domain.ErrEntityNotFound
	}

	pageURL := j.baseURL + "?name=" + url.QueryEscape(name)
	html, err := j.fetcher.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	tier, _ := extractField(html, journalTierPattern)
	impact, hasImpact := extractField(html, journalImpactPattern)

	fields := map[string]any{
		"name": name,
		"tier": tier,
	}
	if hasImpact {
		fields["impact_factor"] = impact
	}
	return fields, nil
}

// PrepareNextPhase returns no further work; the journal-rank adapter is
// terminal per §4.G.1.
func (j *JournalSource) PrepareNextPhase(fw *Framework, phaseRef int, doc *domain.EntityDocument, depth int, prevParams map[string]any) ([]Adapter, map[string]int) {
	return nil, nil
}

// StartInterfaceCollectors is a no-op: journals are only ever reached as a
// next-phase expansion of a publication's venue, never seeded directly.
func (j *JournalSource) StartInterfaceCollectors(ctx context.Context, fw *Framework, seeds []string) {
}
