// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/sourcing-engine/internal/httputil"
	"github.com/pdiddy/sourcing-engine/internal/urlnorm"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// googleCSEAPIBase is the Custom Search endpoint. Declared as a var so tests
// can substitute an httptest server.
var googleCSEAPIBase = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE queries Google Custom Search for shopping pages across the open
// web. The API has no price filter and exposes no structured price, so
// results always carry a nil price and price bounds are folded into the query
// text as a hint.
type GoogleCSE struct {
	apiKey string
	cx     string
	client *http.Client
	cfg    types.SearchConfig
}

// NewGoogleCSE builds the Google Custom Search provider.
func NewGoogleCSE(apiKey, cx string, client *http.Client, cfg types.SearchConfig) *GoogleCSE {
	return &GoogleCSE{apiKey: apiKey, cx: cx, client: client, cfg: cfg}
}

// ID returns the provider identifier.
func (p *GoogleCSE) ID() string { return "google_cse" }

// SupportsNativePriceFilter reports native price-bound support.
func (p *GoogleCSE) SupportsNativePriceFilter() bool { return false }

// BuildQuery appends "buy price" and a textual price hint to steer results
// toward purchase pages.
func (p *GoogleCSE) BuildQuery(in types.SearchIntent) types.ProviderQuery {
	hint := ""
	switch {
	case in.MinPrice != nil && in.MaxPrice != nil:
		hint = fmt.Sprintf(" $%d-$%d", int(*in.MinPrice), int(*in.MaxPrice))
	case in.MinPrice != nil:
		hint = fmt.Sprintf(" over $%d", int(*in.MinPrice))
	case in.MaxPrice != nil:
		hint = fmt.Sprintf(" under $%d", int(*in.MaxPrice))
	}

	meta := baseMetadata(in)
	meta["category_path"] = BuildCategoryPath(in)

	return types.ProviderQuery{
		ProviderID: p.ID(),
		Query:      BuildQueryString(in) + " buy price" + hint,
		Metadata:   meta,
	}
}

type googleCSEResponse struct {
	Items []json.RawMessage `json:"items"`
}

// Execute runs the Custom Search query.
func (p *GoogleCSE) Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.cx)
	params.Set("q", query.Query)
	params.Set("num", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleCSEAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("google cse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewFailure(ClassifyHTTPStatus(resp.StatusCode), "google cse returned HTTP %d", resp.StatusCode)
	}

	var payload googleCSEResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing google cse response: %w", err)
	}
	return payload.Items, nil
}

type googleCSEItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`

	Pagemap struct {
		CSEImage []struct {
			Src string `json:"src"`
		} `json:"cse_image"`
		CSEThumbnail []struct {
			Src string `json:"src"`
		} `json:"cse_thumbnail"`
	} `json:"pagemap"`
}

// Normalize converts one Custom Search item into the canonical offer shape.
// The price stays nil; web search results expose no structured price.
func (p *GoogleCSE) Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error) {
	var item googleCSEItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("parsing google cse item: %w", err)
	}
	if item.Title == "" || item.Link == "" {
		return nil, nil
	}

	link := urlnorm.EnsureAbsolute(item.Link)
	domain := urlnorm.MerchantDomain(link)
	merchant := domain
	if merchant == "" || merchant == "unknown" {
		merchant = "Web"
	}

	imageURL := ""
	if len(item.Pagemap.CSEImage) > 0 {
		imageURL = item.Pagemap.CSEImage[0].Src
	} else if len(item.Pagemap.CSEThumbnail) > 0 {
		imageURL = item.Pagemap.CSEThumbnail[0].Src
	}

	return &types.NormalizedResult{
		Title:          item.Title,
		URL:            link,
		CanonicalURL:   urlnorm.Canonicalize(link),
		Source:         p.ID(),
		MerchantName:   merchant,
		MerchantDomain: domain,
		Description:    item.Snippet,
		ImageURL:       imageURL,
		Raw:            raw,
	}, nil
}
