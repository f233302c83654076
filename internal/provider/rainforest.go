// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/sourcing-engine/internal/fx"
	"github.com/pdiddy/sourcing-engine/internal/httputil"
	"github.com/pdiddy/sourcing-engine/internal/urlnorm"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// rainforestAPIBase is the Rainforest request endpoint. Declared as a var so
// tests can substitute an httptest server.
var rainforestAPIBase = "https://api.rainforestapi.com/request"

// Rainforest queries the Rainforest API for Amazon product offers. The
// upstream applies min_price/max_price natively, so the aggregator never
// post-filters its results by price.
type Rainforest struct {
	apiKey string
	client *http.Client
	rates  *fx.Table
	cfg    types.SearchConfig
}

// NewRainforest builds the Rainforest provider.
func NewRainforest(apiKey string, client *http.Client, rates *fx.Table, cfg types.SearchConfig) *Rainforest {
	return &Rainforest{apiKey: apiKey, client: client, rates: rates, cfg: cfg}
}

// ID returns the provider identifier.
func (p *Rainforest) ID() string { return "rainforest" }

// SupportsNativePriceFilter reports native price-bound support.
func (p *Rainforest) SupportsNativePriceFilter() bool { return true }

// BuildQuery maps the intent onto Rainforest search parameters. Price bounds
// and a non-"any" condition become native filters.
func (p *Rainforest) BuildQuery(in types.SearchIntent) types.ProviderQuery {
	filters := map[string]string{}
	if in.MinPrice != nil {
		filters["min_price"] = strconv.FormatFloat(*in.MinPrice, 'f', -1, 64)
	}
	if in.MaxPrice != nil {
		filters["max_price"] = strconv.FormatFloat(*in.MaxPrice, 'f', -1, 64)
	}
	if in.Condition != "" && in.Condition != types.ConditionAny {
		filters["condition"] = string(in.Condition)
	}

	return types.ProviderQuery{
		ProviderID: p.ID(),
		Query:      BuildQueryString(in),
		Filters:    filters,
		Metadata:   baseMetadata(in),
	}
}

type rainforestResponse struct {
	SearchResults []json.RawMessage `json:"search_results"`
}

// Execute runs the search against the Rainforest API.
func (p *Rainforest) Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("api_key", p.apiKey)
	params.Set("type", "search")
	params.Set("amazon_domain", "amazon.com")
	params.Set("search_term", query.Query)
	for k, v := range query.Filters {
		if k == "min_price" || k == "max_price" {
			params.Set(k, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rainforestAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("rainforest request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewFailure(ClassifyHTTPStatus(resp.StatusCode), "rainforest returned HTTP %d", resp.StatusCode)
	}

	var payload rainforestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing rainforest response: %w", err)
	}

	records := payload.SearchResults
	if max := p.cfg.MaxResults; max > 0 && len(records) > max {
		records = records[:max]
	}
	return records, nil
}

type rainforestItem struct {
	Title  string          `json:"title"`
	Link   string          `json:"link"`
	Image  string          `json:"image"`
	Rating *float64        `json:"rating"`
	Total  *int            `json:"ratings_total"`
	Price  json.RawMessage `json:"price"`
	Prices json.RawMessage `json:"prices"`

	Delivery struct {
		Tagline string `json:"tagline"`
	} `json:"delivery"`
}

// Normalize converts one Rainforest search result into the canonical offer
// shape. Records without a title are skipped.
func (p *Rainforest) Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error) {
	var item rainforestItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("parsing rainforest item: %w", err)
	}
	if item.Title == "" {
		return nil, nil
	}

	priceInfo := item.Price
	if len(priceInfo) == 0 || string(priceInfo) == "null" {
		priceInfo = fallbackPrice(item.Prices)
	}
	price, currency := parsePriceValue(priceInfo)

	r := &types.NormalizedResult{
		Title:          item.Title,
		URL:            urlnorm.EnsureAbsolute(item.Link),
		Source:         p.ID(),
		MerchantName:   "Amazon",
		MerchantDomain: urlnorm.MerchantDomain(item.Link),
		ImageURL:       item.Image,
		Rating:         item.Rating,
		ReviewsCount:   item.Total,
		ShippingInfo:   item.Delivery.Tagline,
		Raw:            raw,
	}
	r.CanonicalURL = urlnorm.Canonicalize(r.URL)
	applyPrice(r, price, currency, p.rates)
	return r, nil
}

// fallbackPrice walks the secondary "prices" object for the first usable
// price field when the primary one is absent.
func fallbackPrice(prices json.RawMessage) json.RawMessage {
	if len(prices) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(prices, &obj); err != nil {
		return nil
	}
	for _, key := range []string{"current_price", "buybox_price", "price", "current", "main_price", "list_price"} {
		if v, ok := obj[key]; ok {
			return v
		}
	}
	return nil
}

var priceNumberRe = regexp.MustCompile(`(\d[\d,]*\.?\d*)`)

// parsePriceValue extracts a numeric price and currency from a price field
// that may be a number, a string ("$1,299.99", "USD 1299"), or an object with
// value/raw/currency members. Returns nil when no unambiguous number exists.
func parsePriceValue(raw json.RawMessage) (*float64, string) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ""
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num > 0 {
			return &num, ""
		}
		return nil, ""
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return parsePriceString(str), ""
	}

	var obj struct {
		Value    json.RawMessage `json:"value"`
		Raw      string          `json:"raw"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if p, _ := parsePriceValue(obj.Value); p != nil {
			return p, obj.Currency
		}
		if p := parsePriceString(obj.Raw); p != nil {
			return p, obj.Currency
		}
	}
	return nil, ""
}

func parsePriceString(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	m := priceNumberRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || num <= 0 {
		return nil
	}
	return &num
}

// applyPrice sets the result's USD price from a provider price and currency.
// Unknown currencies and failed conversions leave the price unset.
func applyPrice(r *types.NormalizedResult, price *float64, currency string, rates *fx.Table) {
	if price == nil {
		return
	}
	code, ok := fx.NormalizeCode(currency)
	if !ok {
		code = "USD"
	}
	r.PriceOriginal = price
	r.CurrencyOriginal = code

	usd, ok := rates.ToUSD(*price, code)
	if !ok {
		return
	}
	r.Price = &usd
	r.Currency = "USD"
}
