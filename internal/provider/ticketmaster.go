// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/sourcing-engine/internal/fx"
	"github.com/pdiddy/sourcing-engine/internal/httputil"
	"github.com/pdiddy/sourcing-engine/internal/urlnorm"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// ticketmasterAPIBase is the Discovery events endpoint. Declared as a var so
// tests can substitute an httptest server.
var ticketmasterAPIBase = "https://app.ticketmaster.com/discovery/v2/events.json"

// eventKeywords gates Ticketmaster calls: queries with none of these words
// are almost never about event tickets, and each call costs quota.
var eventKeywords = map[string]bool{
	"ticket": true, "tickets": true, "concert": true, "concerts": true,
	"show": true, "shows": true, "game": true, "games": true,
	"match": true, "event": true, "events": true, "tour": true,
	"festival": true, "stadium": true, "arena": true, "theater": true,
	"theatre": true, "live": true, "performance": true, "nba": true,
	"nfl": true, "mlb": true, "nhl": true, "mls": true, "ncaa": true,
	"ufc": true, "wwe": true, "broadway": true,
}

// Ticketmaster queries the Discovery API for event tickets. Non-event
// queries return no records without calling upstream.
type Ticketmaster struct {
	apiKey string
	client *http.Client
	rates  *fx.Table
	cfg    types.SearchConfig
}

// NewTicketmaster builds the Ticketmaster provider.
func NewTicketmaster(apiKey string, client *http.Client, rates *fx.Table, cfg types.SearchConfig) *Ticketmaster {
	return &Ticketmaster{apiKey: apiKey, client: client, rates: rates, cfg: cfg}
}

// ID returns the provider identifier.
func (p *Ticketmaster) ID() string { return "ticketmaster" }

// SupportsNativePriceFilter reports native price-bound support.
func (p *Ticketmaster) SupportsNativePriceFilter() bool { return false }

// BuildQuery maps the intent onto a Discovery keyword query.
func (p *Ticketmaster) BuildQuery(in types.SearchIntent) types.ProviderQuery {
	return types.ProviderQuery{
		ProviderID: p.ID(),
		Query:      BuildQueryString(in),
		Metadata:   baseMetadata(in),
	}
}

// IsEventQuery reports whether the query looks like an event-ticket request.
func IsEventQuery(query string) bool {
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if eventKeywords[word] {
			return true
		}
	}
	return false
}

type ticketmasterResponse struct {
	Embedded struct {
		Events []json.RawMessage `json:"events"`
	} `json:"_embedded"`
}

// Execute runs the Discovery search. Queries that do not look event-related
// are skipped entirely.
func (p *Ticketmaster) Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	if !IsEventQuery(query.Query) {
		return nil, nil
	}

	params := url.Values{}
	params.Set("apikey", p.apiKey)
	params.Set("keyword", query.Query)
	params.Set("size", "20")
	params.Set("countryCode", "US")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ticketmasterAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("ticketmaster request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewFailure(ClassifyHTTPStatus(resp.StatusCode), "ticketmaster returned HTTP %d", resp.StatusCode)
	}

	var payload ticketmasterResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing ticketmaster response: %w", err)
	}
	return payload.Embedded.Events, nil
}

type ticketmasterEvent struct {
	Name string `json:"name"`
	URL  string `json:"url"`

	PriceRanges []struct {
		Min      *float64 `json:"min"`
		Currency string   `json:"currency"`
	} `json:"priceRanges"`

	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`

	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`

	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// Normalize converts one Discovery event into the canonical offer shape. The
// title combines event name, venue, and date; the price is the minimum of
// the first price range when present.
func (p *Ticketmaster) Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error) {
	var event ticketmasterEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("parsing ticketmaster event: %w", err)
	}
	if event.Name == "" || event.URL == "" {
		return nil, nil
	}

	venue := "Venue TBA"
	if len(event.Embedded.Venues) > 0 && event.Embedded.Venues[0].Name != "" {
		venue = event.Embedded.Venues[0].Name
	}

	dateStr := strings.TrimSpace(event.Dates.Start.LocalDate + " " + event.Dates.Start.LocalTime)

	title := event.Name + " - " + venue
	shipping := ""
	if dateStr != "" {
		title += " (" + dateStr + ")"
		shipping = "Event: " + dateStr
	}

	// Highest-resolution image wins.
	imageURL := ""
	bestArea := -1
	for _, img := range event.Images {
		if area := img.Width * img.Height; area > bestArea {
			bestArea = area
			imageURL = img.URL
		}
	}

	eventURL := urlnorm.EnsureAbsolute(event.URL)
	r := &types.NormalizedResult{
		Title:          title,
		URL:            eventURL,
		CanonicalURL:   urlnorm.Canonicalize(eventURL),
		Source:         p.ID(),
		MerchantName:   "Ticketmaster",
		MerchantDomain: "ticketmaster.com",
		ImageURL:       imageURL,
		ShippingInfo:   shipping,
		Raw:            raw,
	}

	if len(event.PriceRanges) > 0 && event.PriceRanges[0].Min != nil && *event.PriceRanges[0].Min > 0 {
		applyPrice(r, event.PriceRanges[0].Min, event.PriceRanges[0].Currency, p.rates)
	}
	return r, nil
}
