// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score implements the classical first-stage scorer and the
// constraint satisfaction bonus. Scores rank results; they never exclude
// them.
package score

import (
	"math"
	"strings"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// Classical scores every result on relevance, price fit, quality, and
// provider diversity, then combines them through the tier-fit gate:
//
//	base     = relevance*0.45 + price*0.20 + quality*0.20 + diversity*0.15
//	combined = base * (0.3 + 0.7*tierFit)
//
// Vendor directory results derive relevance and tier fit from embedding
// similarity; every other provider gets a neutral tier fit so keyword
// relevance does the work.
func Classical(intent types.SearchIntent, results []types.NormalizedResult) []types.ClassicalScores {
	counts := make(map[string]int, 4)
	for _, r := range results {
		counts[r.Source]++
	}

	scores := make([]types.ClassicalScores, len(results))
	for i, r := range results {
		s := types.ClassicalScores{
			Relevance: relevanceScore(intent, r),
			Price:     priceScore(intent, r),
			Quality:   qualityScore(r),
			Diversity: diversityBonus(r.Source, counts, len(results)),
			TierFit:   tierFit(r),
		}
		base := s.Relevance*0.45 + s.Price*0.20 + s.Quality*0.20 + s.Diversity*0.15
		s.Combined = base * (0.3 + 0.7*s.TierFit)
		scores[i] = s
	}
	return scores
}

// relevanceScore measures how well the result matches the intent. For vendor
// results the embedding similarity is the signal, rescaled so matches just
// above the directory threshold score near zero and tight matches near one.
func relevanceScore(intent types.SearchIntent, r types.NormalizedResult) float64 {
	if r.Source == "vendor_directory" && r.VectorSimilarity != nil {
		return clamp01((*r.VectorSimilarity - 0.40) / 0.25)
	}

	title := strings.ToLower(r.Title)
	searchable := title + " " + strings.ToLower(r.MerchantName) + " " + strings.ToLower(r.Description)

	score := 0.0

	if intent.Brand != "" {
		brand := strings.ToLower(intent.Brand)
		switch {
		case strings.Contains(title, brand):
			score += 0.25
		case strings.Contains(searchable, brand):
			score += 0.15
		default:
			for _, word := range strings.Fields(brand) {
				if strings.Contains(searchable, word) {
					score += 0.08
					break
				}
			}
		}
	}

	if len(intent.Keywords) > 0 {
		titleMatched, fullMatched := 0, 0
		for _, kw := range intent.Keywords {
			lower := strings.ToLower(kw)
			if strings.Contains(title, lower) {
				titleMatched++
			}
			if strings.Contains(searchable, lower) {
				fullMatched++
			}
		}
		n := float64(len(intent.Keywords))
		titleRatio := float64(titleMatched) / n
		fullRatio := float64(fullMatched) / n
		score += titleRatio*0.35 + (fullRatio-titleRatio)*0.10
	}

	if intent.ProductName != "" {
		var nameWords []string
		for _, w := range strings.Fields(strings.ToLower(intent.ProductName)) {
			if len(w) > 2 {
				nameWords = append(nameWords, w)
			}
		}
		if len(nameWords) > 0 {
			matched := 0
			for _, w := range nameWords {
				if strings.Contains(title, w) {
					matched++
				}
			}
			score += float64(matched) / float64(len(nameWords)) * 0.15
		}
	}

	if intent.Category != "" {
		catWords := strings.Fields(strings.ReplaceAll(strings.ToLower(intent.Category), "_", " "))
		if len(catWords) > 0 {
			matched := 0
			for _, w := range catWords {
				if strings.Contains(searchable, w) {
					matched++
				}
			}
			score += float64(matched) / float64(len(catWords)) * 0.10
		}
	}

	score += 0.05
	return math.Min(score, 1.0)
}

// priceScore measures budget fit. Nil prices are neutral: quote-based offers
// must not be buried for lacking a figure. With strict flexibility a priced
// result outside the range scores zero.
func priceScore(intent types.SearchIntent, r types.NormalizedResult) float64 {
	minPrice, maxPrice := intent.MinPrice, intent.MaxPrice

	if r.Price == nil {
		return 0.5
	}
	price := *r.Price
	if price <= 0 {
		return 0.3
	}
	if minPrice == nil && maxPrice == nil {
		return 0.5
	}

	if intent.Flexibility == types.PriceStrict {
		if minPrice != nil && price < *minPrice {
			return 0
		}
		if maxPrice != nil && price > *maxPrice {
			return 0
		}
	}

	if minPrice != nil && maxPrice != nil {
		mid := (*minPrice + *maxPrice) / 2
		span := *maxPrice - *minPrice
		if span <= 0 {
			if math.Abs(price-mid) < 1 {
				return 1.0
			}
			return 0.2
		}
		distance := math.Abs(price-mid) / (span / 2)
		if distance <= 1.0 {
			return 1.0 - distance*0.3
		}
		return math.Max(0, 0.7-(distance-1.0)*0.5)
	}

	if maxPrice != nil {
		if price <= *maxPrice {
			return 0.8 + 0.2*(1-price / *maxPrice)
		}
		return math.Max(0, 0.5-(price-*maxPrice) / *maxPrice)
	}

	if price >= *minPrice {
		return 0.8
	}
	return math.Max(0, 0.5-(*minPrice-price) / *minPrice)
}

// qualityScore aggregates rating, review volume (log scale, saturating near
// a thousand reviews), and presence of image and shipping info.
func qualityScore(r types.NormalizedResult) float64 {
	score := 0.3

	if r.Rating != nil && *r.Rating > 0 {
		score += *r.Rating / 5.0 * 0.35
	}
	if r.ReviewsCount != nil && *r.ReviewsCount > 0 {
		signal := math.Min(math.Log10(float64(*r.ReviewsCount)+1)/3.0, 1.0)
		score += signal * 0.2
	}
	if r.ImageURL != "" {
		score += 0.05
	}
	if r.ShippingInfo != "" {
		score += 0.1
	}
	return math.Min(score, 1.0)
}

// diversityBonus rewards results from underrepresented providers so one
// provider cannot monopolize the ranked list.
func diversityBonus(source string, counts map[string]int, total int) float64 {
	if total <= 1 {
		return 0.5
	}
	share := float64(counts[source]) / float64(total)
	switch {
	case share < 0.2:
		return 1.0
	case share < 0.4:
		return 0.7
	case share < 0.6:
		return 0.4
	default:
		return 0.2
	}
}

// tierFit gates the combined score. Vendor results scale with embedding
// similarity, floored so a weak vendor match is dampened, not erased. All
// other providers are neutral.
func tierFit(r types.NormalizedResult) float64 {
	if r.Source == "vendor_directory" {
		if r.VectorSimilarity != nil {
			return math.Max(0.3, math.Min(1.0, *r.VectorSimilarity*1.5))
		}
		return 0.5
	}
	return 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
