// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pdiddy/sourcing-engine/internal/fx"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

func f64(v float64) *float64 { return &v }

func testSearchConfig() types.SearchConfig {
	cfg := types.SearchConfig{MaxResults: 20}
	cfg.UserAgent = "sourcing-engine-test/0.1"
	return cfg
}

func TestRainforestBuildQuery(t *testing.T) {
	p := NewRainforest("key", http.DefaultClient, fx.Default(), testSearchConfig())
	in := types.SearchIntent{
		Brand:     "Bianchi",
		Category:  "road_bike",
		MinPrice:  f64(200),
		MaxPrice:  f64(5000),
		Condition: types.ConditionNew,
	}

	q := p.BuildQuery(in)
	if q.ProviderID != "rainforest" {
		t.Errorf("provider id = %q", q.ProviderID)
	}
	if q.Filters["min_price"] != "200" || q.Filters["max_price"] != "5000" {
		t.Errorf("price filters = %v", q.Filters)
	}
	if q.Filters["condition"] != "new" {
		t.Errorf("condition filter = %q", q.Filters["condition"])
	}
	if q.Metadata["taxonomy_version"] != "shopping_v2" {
		t.Errorf("taxonomy version = %q", q.Metadata["taxonomy_version"])
	}
}

func TestRainforestBuildQueryConditionAny(t *testing.T) {
	p := NewRainforest("key", http.DefaultClient, fx.Default(), testSearchConfig())
	q := p.BuildQuery(types.SearchIntent{Category: "laptop", Condition: types.ConditionAny})
	if _, ok := q.Filters["condition"]; ok {
		t.Error("condition 'any' must not become a filter")
	}
}

func TestRainforestExecuteAndNormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_term"); got == "" {
			t.Errorf("missing search_term")
		}
		if got := r.URL.Query().Get("max_price"); got != "5000" {
			t.Errorf("max_price = %q, want 5000", got)
		}
		w.Write([]byte(`{"search_results": [
			{"title": "Bianchi Oltre XR4", "link": "https://www.amazon.com/dp/B0TEST?tag=x",
			 "image": "https://img.example.com/1.jpg", "rating": 4.6, "ratings_total": 321,
			 "price": {"value": 4899.99, "currency": "USD", "raw": "$4,899.99"},
			 "delivery": {"tagline": "FREE delivery"}},
			{"title": "No Price Bike", "link": "https://www.amazon.com/dp/B0NOPRICE"},
			{"link": "https://www.amazon.com/dp/B0NOTITLE"}
		]}`))
	}))
	defer srv.Close()
	orig := rainforestAPIBase
	rainforestAPIBase = srv.URL
	defer func() { rainforestAPIBase = orig }()

	p := NewRainforest("key", srv.Client(), fx.Default(), testSearchConfig())
	query := p.BuildQuery(types.SearchIntent{Category: "road_bike", MaxPrice: f64(5000)})

	records, err := p.Execute(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	first, err := p.Normalize(query, records[0])
	if err != nil {
		t.Fatal(err)
	}
	if first.Title != "Bianchi Oltre XR4" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Price == nil || *first.Price != 4899.99 {
		t.Errorf("price = %v, want 4899.99", first.Price)
	}
	if first.Currency != "USD" {
		t.Errorf("currency = %q", first.Currency)
	}
	if first.MerchantName != "Amazon" || first.MerchantDomain != "amazon.com" {
		t.Errorf("merchant = %q / %q", first.MerchantName, first.MerchantDomain)
	}
	if first.CanonicalURL != "https://amazon.com/dp/B0TEST" {
		t.Errorf("canonical url = %q", first.CanonicalURL)
	}
	if first.ReviewsCount == nil || *first.ReviewsCount != 321 {
		t.Errorf("reviews = %v", first.ReviewsCount)
	}

	second, err := p.Normalize(query, records[1])
	if err != nil {
		t.Fatal(err)
	}
	if second.Price != nil {
		t.Errorf("missing price must stay nil, got %v", *second.Price)
	}

	third, err := p.Normalize(query, records[2])
	if err != nil {
		t.Fatal(err)
	}
	if third != nil {
		t.Error("untitled record should be skipped")
	}
}

func TestRainforestQuotaExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()
	orig := rainforestAPIBase
	rainforestAPIBase = srv.URL
	defer func() { rainforestAPIBase = orig }()

	p := NewRainforest("key", srv.Client(), fx.Default(), testSearchConfig())
	_, err := p.Execute(context.Background(), p.BuildQuery(types.SearchIntent{Category: "laptop"}))

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if failure.Status != types.StatusExhausted {
		t.Errorf("status = %q, want exhausted", failure.Status)
	}
}

func TestParsePriceValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *float64
	}{
		{"number", `129.5`, f64(129.5)},
		{"zero", `0`, nil},
		{"string with symbol", `"$1,299.99"`, f64(1299.99)},
		{"string with code", `"USD 1299"`, f64(1299)},
		{"range takes first", `"$500 - $800"`, f64(500)},
		{"object value", `{"value": 49.99, "currency": "USD"}`, f64(49.99)},
		{"object raw fallback", `{"raw": "$89.00"}`, f64(89)},
		{"null", `null`, nil},
		{"empty string", `""`, nil},
		{"no number", `"call for price"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := parsePriceValue([]byte(tt.raw))
			switch {
			case got == nil && tt.want != nil:
				t.Errorf("got nil, want %v", *tt.want)
			case got != nil && tt.want == nil:
				t.Errorf("got %v, want nil", *got)
			case got != nil && *got != *tt.want:
				t.Errorf("got %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestFallbackPrice(t *testing.T) {
	raw := []byte(`{"buybox_price": {"value": 42.5}, "list_price": {"value": 50}}`)
	got, _ := parsePriceValue(fallbackPrice(raw))
	if got == nil || *got != 42.5 {
		t.Errorf("fallback price = %v, want 42.5", got)
	}
	if fallbackPrice(nil) != nil {
		t.Error("nil prices object should yield nil")
	}
}

func TestApplyPriceConversion(t *testing.T) {
	r := &types.NormalizedResult{}
	applyPrice(r, f64(100), "EUR", fx.Default())
	if r.Price == nil || *r.Price != 108 {
		t.Errorf("converted price = %v, want 108", r.Price)
	}
	if r.Currency != "USD" || r.CurrencyOriginal != "EUR" {
		t.Errorf("currencies = %q / %q", r.Currency, r.CurrencyOriginal)
	}

	r = &types.NormalizedResult{}
	applyPrice(r, f64(100), "XXX", fx.Default())
	if r.Price != nil {
		t.Errorf("unknown currency must leave price nil, got %v", *r.Price)
	}
	if r.PriceOriginal == nil || *r.PriceOriginal != 100 {
		t.Errorf("original price must be preserved, got %v", r.PriceOriginal)
	}
}
