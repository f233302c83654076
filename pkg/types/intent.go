// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the sourcing-engine pipeline.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Condition is the requested product condition.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
	ConditionAny         Condition = "any"
)

// PriceFlexibility controls how hard the scorer treats the price range.
type PriceFlexibility string

const (
	// PriceStrict zeroes the price score for results outside the range.
	PriceStrict PriceFlexibility = "strict"

	// PriceFlexible penalizes results outside the range without excluding them.
	PriceFlexible PriceFlexibility = "flexible"
)

// FeatureValue holds a single feature value or a list of alternatives.
type FeatureValue struct {
	Value  string   `json:"value,omitempty" yaml:"value,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// All returns every value carried by the feature.
func (f FeatureValue) All() []string {
	if len(f.Values) > 0 {
		return f.Values
	}
	if f.Value != "" {
		return []string{f.Value}
	}
	return nil
}

// SearchIntent is the structured representation of an end-user purchase
// request, produced once per search by an external intent source. It is
// immutable for the duration of a search.
type SearchIntent struct {
	// Category is the normalized category identifier (e.g. "road_bike").
	Category string `json:"category" yaml:"category"`

	// CategoryPath is the taxonomy path for the category, root first.
	CategoryPath []string `json:"category_path,omitempty" yaml:"category_path,omitempty"`

	// ProductName is a specific product name, when the user named one.
	ProductName string `json:"product_name,omitempty" yaml:"product_name,omitempty"`

	// Brand and Model narrow the request to a specific manufacturer line.
	Brand string `json:"brand,omitempty" yaml:"brand,omitempty"`
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// MinPrice and MaxPrice bound the budget. Nil means unbounded.
	MinPrice *float64 `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty" yaml:"max_price,omitempty"`

	// Flexibility selects strict or flexible price-range treatment.
	Flexibility PriceFlexibility `json:"price_flexibility,omitempty" yaml:"price_flexibility,omitempty"`

	// Condition is the requested product condition.
	Condition Condition `json:"condition,omitempty" yaml:"condition,omitempty"`

	// Features maps attribute names to requested values (e.g. "color" -> "red").
	Features map[string]FeatureValue `json:"features,omitempty" yaml:"features,omitempty"`

	// Keywords are the core "what" words of the request.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// ExcludeKeywords and ExcludeMerchants are negative signals ("no digital",
	// "NOT Amazon"). Marketplace APIs have no negative keywords, so these are
	// applied as post-filters by the aggregator.
	ExcludeKeywords  []string `json:"exclude_keywords,omitempty" yaml:"exclude_keywords,omitempty"`
	ExcludeMerchants []string `json:"exclude_merchants,omitempty" yaml:"exclude_merchants,omitempty"`

	// Confidence is the intent source's confidence in the extraction, 0-1.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// RawInput is the original free-form request text.
	RawInput string `json:"raw_input" yaml:"raw_input"`
}

// Normalize validates the intent and canonicalizes its list fields: keywords
// are deduplicated case-insensitively and sorted, an inverted price range is
// swapped, and the confidence is checked against [0,1].
func (in *SearchIntent) Normalize() error {
	if in.Confidence < 0 || in.Confidence > 1 {
		return fmt.Errorf("intent confidence %v outside [0,1]", in.Confidence)
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return fmt.Errorf("negative min_price %v", *in.MinPrice)
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return fmt.Errorf("negative max_price %v", *in.MaxPrice)
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		in.MinPrice, in.MaxPrice = in.MaxPrice, in.MinPrice
	}
	in.Keywords = dedupeFold(in.Keywords)
	in.ExcludeKeywords = dedupeFold(in.ExcludeKeywords)
	in.ExcludeMerchants = dedupeFold(in.ExcludeMerchants)
	return nil
}

// LowConfidence reports whether the intent extraction is too uncertain to
// trust beyond keyword matching. The aggregator flags such result sets.
func (in SearchIntent) LowConfidence() bool { return in.Confidence < 0.6 }

// dedupeFold removes empty and case-insensitively duplicated entries,
// keeping the first spelling seen, and returns the list sorted by fold key.
func dedupeFold(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]string, len(values))
	keys := make([]string, 0, len(values))
	for _, v := range values {
		cleaned := strings.TrimSpace(v)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; !ok {
			seen[key] = cleaned
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}
