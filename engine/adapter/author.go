package adapter

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/Gawain27/PubScraper/engine/domain"
)

var (
	authorNamePattern     = regexp.MustCompile(`<div class="gsc_authname">([^<]+)</div>`)
	authorOrgPattern      = regexp.MustCompile(`<div class="gsc_authorg">([^<]+)</div>`)
	authorPubPattern      = regexp.MustCompile(`<a class="gsc_pub_link" href="([^"]+)"`)
	authorCoauthorPattern = regexp.MustCompile(`<a class="gsc_rsb_coauthor_link"[^>]*>([^<]+)</a>`)
)

const authorProfilePhase = 0

// AuthorSource implements the author index adapter (§4.G.1): phase 0
// fetches an author profile by name, breaking ties among same-name matches
// with the configured favored organization.
type AuthorSource struct {
	fetcher    PageFetcher
	favoredOrg string
	baseURL    string
}

// NewAuthorSource wires the author adapter to fetcher. baseURL defaults to
// a citations-index search endpoint if empty.
func NewAuthorSource(fetcher PageFetcher, favoredOrg string) *AuthorSource {
	return &AuthorSource{fetcher: fetcher, favoredOrg: favoredOrg, baseURL: "https://scholar.example/citations"}
}

func (a *AuthorSource) IfaceRef() string  { return domain.IfaceAuthor }
func (a *AuthorSource) VariantType() int  { return domain.ClassAuthor }

func (a *AuthorSource) GenerateFetchAdapter(phaseRef int) (FetchFunc, AdditionalFunc, bool, error) {
	if phaseRef != authorProfilePhase {
		return nil, nil, false, fmt.Errorf("adapter: author - unknown phase %d", phaseRef)
	}
	return a.fetchProfile, nil, false, nil
}

func (a *AuthorSource) fetchProfile(ctx context.Context, params map[string]any) (any, error) {
	name, _ := params["name"].(string)
	if name == "" {
		return nil, domain.ErrEntityNotFound
	}

	pageURL := a.baseURL + "?user=" + url.QueryEscape(name)
	if a.favoredOrg != "" {
		pageURL += "&org=" + url.QueryEscape(a.favoredOrg)
	}

	html, err := a.fetcher.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	displayName, _ := extractField(html, authorNamePattern)
	if displayName == "" {
		displayName = name
	}
	org, _ := extractField(html, authorOrgPattern)
	publications := extractAll(html, authorPubPattern)
	coauthors := extractAll(html, authorCoauthorPattern)

	return map[string]any{
		"name":         displayName,
		"organization": org,
		"publications": publications,
		"coauthors":    coauthors,
	}, nil
}

// PrepareNextPhase emits one publication-adapter fetch per listed
// publication, incrementing depth and never rolling it back (publications
// are a genuine descent from the author), plus one author-adapter fetch
// per listed coauthor, rolled over since a coauthor expansion is lateral
// rather than a cost-bearing descent (mirrors PublicationSource's own
// coauthor fan-out and the original ScholarDataFetcher AUTHOR branch,
// which fans out to both publications and coauthors from one profile).
func (a *AuthorSource) PrepareNextPhase(fw *Framework, phaseRef int, doc *domain.EntityDocument, depth int, prevParams map[string]any) ([]Adapter, map[string]int) {
	if doc == nil || phaseRef != authorProfilePhase {
		return nil, nil
	}

	var out []Adapter
	for _, pubURL := range stringSliceField(doc.Fields["publications"]) {
		next, ok := fw.GenerateAdapterWithPrio(domain.IfacePublication, publicationMetadataPhase,
			domain.PriorityPubReq, map[string]any{"url": pubURL}, pubURL, pubURL, false)
		if ok {
			out = append(out, next)
		}
	}

	for _, coauthor := range stringSliceField(doc.Fields["coauthors"]) {
		next, ok := fw.GenerateAdapterWithPrio(domain.IfaceAuthor, authorProfilePhase,
			domain.PriorityAuthorReq, map[string]any{"name": coauthor}, coauthor, coauthor, true)
		if ok {
			out = append(out, next)
		}
	}

	return out, nil
}

// StartInterfaceCollectors spawns one initial author-profile fetch per
// seed name at AUTHOR_REQ priority.
func (a *AuthorSource) StartInterfaceCollectors(ctx context.Context, fw *Framework, seeds []string) {
	for _, name := range seeds {
		adapter, ok := fw.GenerateAdapterWithPrio(domain.IfaceAuthor, authorProfilePhase,
			domain.PriorityAuthorReq, map[string]any{"name": name}, name, name, false)
		if !ok {
			continue
		}
		fw.router.SendLater(domain.Message{
			Type:             domain.IfaceAuthor,
			Content:          name,
			DestinationQueue: domain.QueueScraper,
		}, FetchPayload{Adapter: adapter}, domain.PriorityAuthorReq, 0, 0)
	}
}
