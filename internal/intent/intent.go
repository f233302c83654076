// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intent builds fallback search intents and extracts structured
// constraints. The primary intent source is an external extraction service;
// when it is unavailable this package derives a keyword-only intent from the
// raw request text so the pipeline never aborts on extraction failure.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

var (
	priceNumber  = regexp.MustCompile(`\$?\s*(\d+(?:\.\d+)?)`)
	rangeMarker  = regexp.MustCompile(`\b(to)\b|-`)
	lowerBound   = regexp.MustCompile(`\b(over|above|more|minimum|at\s*least)\b`)
	upperBound   = regexp.MustCompile(`\b(under|below|less|maximum|at\s*most)\b`)
	priceLiteral = regexp.MustCompile(`\$\s*\d+(?:\.\d+)?`)
	boundWords   = regexp.MustCompile(`\b(over|under|below|above|more|less|at\s+least|at\s+most|to)\b`)
	tokenSplit   = regexp.MustCompile(`[^a-z0-9]+`)
)

// Fallback builds a keyword-only intent from raw request text with
// confidence 0. It parses price bounds ("under $500", "$200 to $400") out of
// the text and tokenizes the remainder into keywords.
func Fallback(rawInput string) types.SearchIntent {
	minPrice, maxPrice, remaining := parsePriceConstraint(rawInput)

	cleaned := remaining
	if cleaned == "" {
		cleaned = strings.TrimSpace(rawInput)
	}

	in := types.SearchIntent{
		Category:     NormalizeCategory(cleaned),
		ProductName:  cleaned,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		Keywords:     extractKeywords(cleaned),
		Confidence:   0,
		RawInput:     rawInput,
		Flexibility:  types.PriceFlexible,
		CategoryPath: nil,
	}
	if in.Category != "" {
		in.CategoryPath = []string{in.Category}
	}
	// Normalize never fails here: confidence is 0 and bounds are ordered.
	_ = in.Normalize()
	return in
}

// parsePriceConstraint pulls price bounds out of free text and returns the
// text with price phrases removed.
func parsePriceConstraint(text string) (minPrice, maxPrice *float64, remaining string) {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)

	var nums []float64
	for _, m := range priceNumber.FindAllStringSubmatch(raw, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			nums = append(nums, v)
		}
	}

	switch {
	case len(nums) >= 2 && rangeMarker.MatchString(lower):
		lo, hi := nums[0], nums[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		minPrice, maxPrice = &lo, &hi
	case len(nums) >= 1 && lowerBound.MatchString(lower):
		minPrice = &nums[0]
	case len(nums) >= 1:
		// "laptop $800" and "laptop under $800" both read as a budget cap.
		maxPrice = &nums[0]
	}

	remaining = priceLiteral.ReplaceAllString(raw, "")
	remaining = boundWords.ReplaceAllString(remaining, "")
	remaining = strings.NewReplacer("-", " ", "–", " ", "—", " ").Replace(remaining)
	remaining = strings.Join(strings.Fields(remaining), " ")
	return minPrice, maxPrice, remaining
}

// extractKeywords tokenizes text into lowercase keywords of length > 1.
func extractKeywords(text string) []string {
	tokens := tokenSplit.Split(strings.ToLower(text), -1)
	var keywords []string
	for _, tok := range tokens {
		if len(strings.TrimSpace(tok)) > 1 {
			keywords = append(keywords, strings.TrimSpace(tok))
		}
	}
	return keywords
}
