// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/pdiddy/sourcing-engine/internal/urlnorm"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

var mockMerchants = []string{
	"Amazon", "Walmart", "Target", "eBay", "Best Buy", "Costco", "Kohl's", "Macy's",
}

// Mock is a deterministic offline provider. Results are generated from a
// query-seeded PRNG, so the same query always yields the same offers. Used
// when no real provider is configured and in development.
type Mock struct{}

// NewMock builds the mock provider.
func NewMock() *Mock { return &Mock{} }

// ID returns the provider identifier.
func (p *Mock) ID() string { return "mock_provider" }

// SupportsNativePriceFilter reports native price-bound support.
func (p *Mock) SupportsNativePriceFilter() bool { return false }

// BuildQuery maps the intent onto a plain keyword query.
func (p *Mock) BuildQuery(in types.SearchIntent) types.ProviderQuery {
	return types.ProviderQuery{
		ProviderID: p.ID(),
		Query:      BuildQueryString(in),
		Metadata:   baseMetadata(in),
	}
}

type mockItem struct {
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	Merchant     string  `json:"merchant"`
	URL          string  `json:"url"`
	ImageURL     string  `json:"image_url"`
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
	ShippingInfo string  `json:"shipping_info"`
}

// Execute generates 8-15 deterministic offers seeded by the query hash.
func (p *Mock) Execute(_ context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	sum := md5.Sum([]byte(query.Query))
	seed := int64(binary.BigEndian.Uint32(sum[:4]))
	rng := rand.New(rand.NewSource(seed))

	n := 8 + rng.Intn(8)
	records := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		edition := "Standard"
		if i%3 == 0 {
			edition = "Premium"
		}
		shipping := "Ships in 2-3 days"
		if rng.Float64() > 0.3 {
			shipping = "Free shipping"
		}

		item := mockItem{
			Title:        fmt.Sprintf("%s - Style %c %s Edition", query.Query, 'A'+i, edition),
			Price:        float64(int((15+rng.Float64()*135)*100)) / 100,
			Merchant:     mockMerchants[rng.Intn(len(mockMerchants))],
			URL:          fmt.Sprintf("https://example.com/product/%d", seed+int64(i)),
			ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%d/300/300", seed+int64(i)),
			Rating:       float64(int((3.5+rng.Float64()*1.5)*10)) / 10,
			ReviewsCount: 10 + rng.Intn(4991),
			ShippingInfo: shipping,
		}
		rec, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encoding mock item: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize converts one mock item into the canonical offer shape.
func (p *Mock) Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error) {
	var item mockItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("parsing mock item: %w", err)
	}

	price := item.Price
	rating := item.Rating
	reviews := item.ReviewsCount
	return &types.NormalizedResult{
		Title:            item.Title,
		URL:              item.URL,
		CanonicalURL:     urlnorm.Canonicalize(item.URL),
		Source:           p.ID(),
		Price:            &price,
		Currency:         "USD",
		PriceOriginal:    &price,
		CurrencyOriginal: "USD",
		MerchantName:     item.Merchant,
		MerchantDomain:   urlnorm.MerchantDomain(item.URL),
		ImageURL:         item.ImageURL,
		Rating:           &rating,
		ReviewsCount:     &reviews,
		ShippingInfo:     item.ShippingInfo,
		Raw:              raw,
	}, nil
}
