// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"reflect"
	"testing"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

func TestMockDeterministic(t *testing.T) {
	p := NewMock()
	query := p.BuildQuery(types.SearchIntent{Category: "road_bike"})

	a, err := p.Execute(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Execute(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("same query must yield identical records")
	}
	if len(a) < 8 || len(a) > 15 {
		t.Errorf("record count = %d, want 8-15", len(a))
	}
}

func TestMockDifferentQueriesDiffer(t *testing.T) {
	p := NewMock()
	a, err := p.Execute(context.Background(), p.BuildQuery(types.SearchIntent{Category: "road_bike"}))
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Execute(context.Background(), p.BuildQuery(types.SearchIntent{Category: "laptop"}))
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a, b) {
		t.Error("different queries should yield different records")
	}
}

func TestMockNormalize(t *testing.T) {
	p := NewMock()
	query := p.BuildQuery(types.SearchIntent{Category: "headphones"})
	records, err := p.Execute(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}

	for _, rec := range records {
		r, err := p.Normalize(query, rec)
		if err != nil {
			t.Fatal(err)
		}
		if r.Title == "" || r.URL == "" || r.CanonicalURL == "" {
			t.Fatalf("incomplete result: %+v", r)
		}
		if r.Price == nil || *r.Price < 15 || *r.Price > 150 {
			t.Fatalf("price out of range: %v", r.Price)
		}
		if r.Rating == nil || *r.Rating < 3.5 || *r.Rating > 5.0 {
			t.Fatalf("rating out of range: %v", r.Rating)
		}
		if r.Source != "mock_provider" {
			t.Fatalf("source = %q", r.Source)
		}
	}
}
