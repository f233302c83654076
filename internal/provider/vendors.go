// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/sourcing-engine/internal/urlnorm"
	"github.com/pdiddy/sourcing-engine/internal/vendordir"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// aggregatorDomains are platform hosts that never identify the vendor itself.
var aggregatorDomains = map[string]bool{
	"google.com": true, "maps.google.com": true, "yelp.com": true,
	"facebook.com": true, "linkedin.com": true, "instagram.com": true,
	"twitter.com": true, "x.com": true, "youtube.com": true,
}

// Vendors searches the local vendor directory. Unlike marketplace providers
// its relevance signal is embedding similarity, which it surfaces through
// VectorSimilarity for the scorer's tier-fit gate.
type Vendors struct {
	dir *vendordir.Directory
}

// NewVendors builds the vendor directory provider.
func NewVendors(dir *vendordir.Directory) *Vendors {
	return &Vendors{dir: dir}
}

// ID returns the provider identifier.
func (p *Vendors) ID() string { return "vendor_directory" }

// SupportsNativePriceFilter reports native price-bound support. Vendor
// entries carry no prices at all.
func (p *Vendors) SupportsNativePriceFilter() bool { return false }

// BuildQuery uses the focused intent text as the query and carries the raw
// input as context so the directory can blend both embeddings.
func (p *Vendors) BuildQuery(in types.SearchIntent) types.ProviderQuery {
	query := in.ProductName
	if query == "" {
		query = BuildQueryString(in)
	}
	meta := baseMetadata(in)
	meta["context_query"] = in.RawInput

	return types.ProviderQuery{
		ProviderID: p.ID(),
		Query:      query,
		Metadata:   meta,
	}
}

// vendorRecord is the raw record shape Execute hands to Normalize.
type vendorRecord struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Website     string   `json:"website,omitempty"`
	Email       string   `json:"email,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Category    string   `json:"category,omitempty"`
	ServiceArea string   `json:"service_area,omitempty"`
	Routes      []string `json:"routes,omitempty"`
	Capacity    int      `json:"capacity,omitempty"`
	Similarity  float64  `json:"similarity"`
}

// Execute searches the directory and encodes matches as raw records.
func (p *Vendors) Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error) {
	matches, err := p.dir.Search(ctx, query.Query, query.Metadata["context_query"], 15)
	if err != nil {
		return nil, fmt.Errorf("vendor directory search: %w", err)
	}

	records := make([]json.RawMessage, 0, len(matches))
	for _, m := range matches {
		rec, err := json.Marshal(vendorRecord{
			Name:        m.Name,
			Description: m.Description,
			Website:     m.Website,
			Email:       m.Email,
			ImageURL:    m.ImageURL,
			Category:    m.Category,
			ServiceArea: m.ServiceArea,
			Routes:      m.Routes,
			Capacity:    m.Capacity,
			Similarity:  m.Similarity,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding vendor record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize converts one vendor record into the canonical offer shape.
// Vendors have no prices; the similarity becomes VectorSimilarity.
func (p *Vendors) Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error) {
	var rec vendorRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("parsing vendor record: %w", err)
	}
	if rec.Name == "" {
		return nil, nil
	}

	vendorURL := rec.Website
	if vendorURL == "" && rec.Email != "" {
		vendorURL = "mailto:" + rec.Email
	}

	domain := ""
	if rec.Website != "" {
		if d := urlnorm.MerchantDomain(rec.Website); d != "unknown" && !aggregatorDomains[d] {
			domain = d
		}
	}

	imageURL := rec.ImageURL
	if imageURL == "" && domain != "" {
		imageURL = "https://www.google.com/s2/favicons?domain=" + domain + "&sz=128"
	}

	shipping := ""
	if rec.Category != "" {
		shipping = "Category: " + rec.Category
	}

	canonical := ""
	if rec.Website != "" {
		canonical = urlnorm.Canonicalize(rec.Website)
	} else {
		canonical = strings.ToLower(vendorURL)
	}

	sim := rec.Similarity
	return &types.NormalizedResult{
		Title:            rec.Name,
		URL:              vendorURL,
		CanonicalURL:     canonical,
		Source:           p.ID(),
		MerchantName:     rec.Name,
		MerchantDomain:   domain,
		Description:      rec.Description,
		ImageURL:         imageURL,
		ShippingInfo:     shipping,
		VectorSimilarity: &sim,
		Raw:              raw,
	}, nil
}
