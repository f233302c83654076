// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"sort"
	"strings"

	"github.com/pdiddy/sourcing-engine/internal/intent"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// BuildQueryTerms assembles the ordered search terms for an intent: brand,
// model, product name, category label, keywords, feature values, then the raw
// input, deduplicated case-insensitively with the first spelling kept.
// Feature keys are visited in sorted order so the result is deterministic.
func BuildQueryTerms(in types.SearchIntent) []string {
	var terms []string
	if in.Brand != "" {
		terms = append(terms, in.Brand)
	}
	if in.Model != "" {
		terms = append(terms, in.Model)
	}
	if in.ProductName != "" {
		terms = append(terms, in.ProductName)
	}
	if in.Category != "" {
		terms = append(terms, intent.CategoryLabel(in.Category))
	}
	terms = append(terms, in.Keywords...)

	featureKeys := make([]string, 0, len(in.Features))
	for k := range in.Features {
		featureKeys = append(featureKeys, k)
	}
	sort.Strings(featureKeys)
	for _, k := range featureKeys {
		terms = append(terms, in.Features[k].All()...)
	}

	if in.RawInput != "" {
		terms = append(terms, in.RawInput)
	}
	return dedupeTerms(terms)
}

// BuildQueryString joins the intent's query terms into a single search
// string. Falls back to the raw input, then the category label.
func BuildQueryString(in types.SearchIntent) string {
	terms := BuildQueryTerms(in)
	if len(terms) == 0 {
		if in.RawInput != "" {
			return in.RawInput
		}
		return intent.CategoryLabel(in.Category)
	}
	return strings.Join(terms, " ")
}

// BuildCategoryPath renders the intent's taxonomy path as "a > b > c".
func BuildCategoryPath(in types.SearchIntent) string {
	if len(in.CategoryPath) > 0 {
		return strings.Join(in.CategoryPath, " > ")
	}
	return strings.Join(intent.CategoryPath(in.Category), " > ")
}

func dedupeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		cleaned := strings.TrimSpace(t)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if !seen[key] {
			seen[key] = true
			out = append(out, cleaned)
		}
	}
	return out
}

// baseMetadata builds the metadata every provider query carries.
func baseMetadata(in types.SearchIntent) map[string]string {
	return map[string]string{
		"taxonomy_version": intent.TaxonomyVersion,
		"category":         in.Category,
	}
}
