// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/sourcing-engine/internal/fx"
	"github.com/pdiddy/sourcing-engine/internal/httputil"
	"github.com/pdiddy/sourcing-engine/internal/urlnorm"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// eBay endpoints. Declared as vars so tests can substitute httptest servers.
var (
	ebayAuthBase = "https://api.ebay.com/identity/v1/oauth2/token"
	ebayAPIBase  = "https://api.ebay.com/buy/browse/v1/item_summary/search"
)

// tokenSlack renews the OAuth token this long before its reported expiry.
const tokenSlack = 60 * time.Second

// Ebay queries the eBay Browse API using client-credentials OAuth. Tokens
// are cached until shortly before expiry.
type Ebay struct {
	clientID     string
	clientSecret string
	marketplace  string
	client       *http.Client
	rates        *fx.Table
	cfg          types.SearchConfig

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewEbay builds the eBay Browse provider. An empty marketplace defaults to
// EBAY-US.
func NewEbay(clientID, clientSecret, marketplace string, client *http.Client, rates *fx.Table, cfg types.SearchConfig) *Ebay {
	if marketplace == "" {
		marketplace = "EBAY-US"
	}
	return &Ebay{
		clientID:     clientID,
		clientSecret: clientSecret,
		marketplace:  marketplace,
		client:       client,
		rates:        rates,
		cfg:          cfg,
	}
}

// ID returns the provider identifier.
func (p *Ebay) ID() string { return "ebay_browse" }

// SupportsNativePriceFilter reports native price-bound support. The Browse
// API query here carries no price filter, so the aggregator post-filters.
func (p *Ebay) SupportsNativePriceFilter() bool { return false }

// BuildQuery maps the intent onto a Browse API keyword query.
func (p *Ebay) BuildQuery(in types.SearchIntent) types.ProviderQuery {
	return types.ProviderQuery{
		ProviderID: p.ID(),
		Query:      BuildQueryString(in),
		Metadata:   baseMetadata(in),
	}
}

func (p *Ebay) accessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && time.Now().Before(p.tokenExpiry.Add(-tokenSlack)) {
		return p.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "https://api.ebay.com/oauth/api_scope")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ebayAuthBase, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(p.clientID + ":" + p.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ebay token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewFailure(ClassifyHTTPStatus(resp.StatusCode), "ebay token endpoint returned HTTP %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("parsing ebay token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("ebay token response missing access_token")
	}

	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 7200
	}
	p.token = payload.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return p.token, nil
}

type ebayResponse struct {
	ItemSummaries []json.RawMessage `json:"itemSummaries"`
}

// Execute obtains an access token and runs the Browse API search.
func (p *Ebay) Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	limit := p.cfg.MaxResults
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("q", query.Query)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ebayAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", p.marketplace)
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("ebay browse request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewFailure(ClassifyHTTPStatus(resp.StatusCode), "ebay browse returned HTTP %d", resp.StatusCode)
	}

	var payload ebayResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parsing ebay response: %w", err)
	}
	return payload.ItemSummaries, nil
}

type ebayMoney struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type ebayShippingOption struct {
	Type             string    `json:"type"`
	ShippingCostType string    `json:"shippingCostType"`
	ShippingCost     ebayMoney `json:"shippingCost"`
}

type ebayItem struct {
	ItemID     string    `json:"itemId"`
	Title      string    `json:"title"`
	ItemWebURL string    `json:"itemWebUrl"`
	ItemHref   string    `json:"itemHref"`
	Price      ebayMoney `json:"price"`

	Image struct {
		ImageURL string `json:"imageUrl"`
	} `json:"image"`

	Seller struct {
		Username string `json:"username"`
	} `json:"seller"`

	ShippingOptions []ebayShippingOption `json:"shippingOptions"`
}

// Normalize converts one Browse API item summary into the canonical offer
// shape. Items without a title are skipped. The canonical URL is the stable
// item page, https://www.ebay.com/itm/{itemId}, when an item ID is present.
func (p *Ebay) Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error) {
	var item ebayItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("parsing ebay item: %w", err)
	}
	if item.Title == "" {
		return nil, nil
	}

	itemURL := item.ItemWebURL
	if itemURL == "" {
		itemURL = item.ItemHref
	}
	itemURL = urlnorm.EnsureAbsolute(itemURL)

	merchant := item.Seller.Username
	if merchant == "" {
		merchant = "eBay Seller"
	}

	r := &types.NormalizedResult{
		Title:          item.Title,
		URL:            itemURL,
		Source:         p.ID(),
		MerchantName:   merchant,
		MerchantDomain: "ebay.com",
		ImageURL:       item.Image.ImageURL,
		ShippingInfo:   ebayShippingInfo(item),
		Raw:            raw,
	}
	if item.ItemID != "" {
		r.CanonicalURL = "https://www.ebay.com/itm/" + item.ItemID
	} else {
		r.CanonicalURL = urlnorm.Canonicalize(itemURL)
	}

	price := parsePriceString(item.Price.Value)
	applyPrice(r, price, item.Price.Currency, p.rates)
	return r, nil
}

func ebayShippingInfo(item ebayItem) string {
	if len(item.ShippingOptions) == 0 {
		return ""
	}
	first := item.ShippingOptions[0]
	if strings.EqualFold(first.ShippingCostType, "FREE") || first.ShippingCost.Value == "0.00" {
		return "Free shipping"
	}
	if first.ShippingCost.Value != "" {
		cur := first.ShippingCost.Currency
		if cur == "" {
			cur = "USD"
		}
		return fmt.Sprintf("Shipping %s %s", cur, first.ShippingCost.Value)
	}
	if first.Type != "" {
		return first.Type
	}
	return "Standard"
}
