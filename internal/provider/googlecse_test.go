// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

func TestGoogleCSEBuildQueryPriceHints(t *testing.T) {
	p := NewGoogleCSE("key", "cx", http.DefaultClient, testSearchConfig())

	tests := []struct {
		name string
		in   types.SearchIntent
		want string
	}{
		{"both bounds", types.SearchIntent{Category: "laptop", MinPrice: f64(500), MaxPrice: f64(900)}, "laptop buy price $500-$900"},
		{"min only", types.SearchIntent{Category: "laptop", MinPrice: f64(500)}, "laptop buy price over $500"},
		{"max only", types.SearchIntent{Category: "laptop", MaxPrice: f64(900)}, "laptop buy price under $900"},
		{"no bounds", types.SearchIntent{Category: "laptop"}, "laptop buy price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := p.BuildQuery(tt.in)
			if q.Query != tt.want {
				t.Errorf("query = %q, want %q", q.Query, tt.want)
			}
		})
	}
}

func TestGoogleCSEBuildQueryCategoryPath(t *testing.T) {
	p := NewGoogleCSE("key", "cx", http.DefaultClient, testSearchConfig())
	q := p.BuildQuery(types.SearchIntent{Category: "laptop"})
	if got := q.Metadata["category_path"]; got != "electronics > computers > laptop" {
		t.Errorf("category_path = %q", got)
	}
}

func TestGoogleCSEExecuteAndNormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cx"); got != "cx-1" {
			t.Errorf("cx = %q", got)
		}
		if q := r.URL.Query().Get("q"); !strings.Contains(q, "buy price") {
			t.Errorf("query missing buy-price hint: %q", q)
		}
		w.Write([]byte(`{"items": [
			{"title": "Bianchi Oltre | Euro Cycles", "link": "https://www.eurocycles.example.com/bianchi-oltre?utm_source=g",
			 "snippet": "Shop the Bianchi Oltre range.",
			 "pagemap": {"cse_image": [{"src": "https://img.example.com/bike.jpg"}]}},
			{"title": "", "link": "https://skip.example.com"}
		]}`))
	}))
	defer srv.Close()
	orig := googleCSEAPIBase
	googleCSEAPIBase = srv.URL
	defer func() { googleCSEAPIBase = orig }()

	p := NewGoogleCSE("key", "cx-1", srv.Client(), testSearchConfig())
	query := p.BuildQuery(types.SearchIntent{Brand: "Bianchi", Category: "road_bike"})

	records, err := p.Execute(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	r, err := p.Normalize(query, records[0])
	if err != nil {
		t.Fatal(err)
	}
	if r.Price != nil {
		t.Errorf("web results must carry nil price, got %v", *r.Price)
	}
	if r.MerchantDomain != "eurocycles.example.com" {
		t.Errorf("merchant domain = %q", r.MerchantDomain)
	}
	if strings.Contains(r.CanonicalURL, "utm_source") {
		t.Errorf("canonical url kept tracking params: %q", r.CanonicalURL)
	}
	if r.ImageURL != "https://img.example.com/bike.jpg" {
		t.Errorf("image = %q", r.ImageURL)
	}
	if r.Description == "" {
		t.Error("snippet should populate description")
	}

	skipped, err := p.Normalize(query, records[1])
	if err != nil {
		t.Fatal(err)
	}
	if skipped != nil {
		t.Error("untitled record should be skipped")
	}
}
