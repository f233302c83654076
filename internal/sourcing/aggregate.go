// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sourcing

import (
	"sort"
	"strings"

	"github.com/pdiddy/sourcing-engine/internal/intent"
	"github.com/pdiddy/sourcing-engine/internal/score"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// Final score stage weights.
const (
	weightClassical  = 0.60
	weightSimilarity = 0.25
	weightConstraint = 0.15
)

// postFilter applies the negative signals marketplace APIs cannot express
// natively: price bounds for providers without a native price filter, and
// exclusion keywords and merchants. Unpriced results always survive the price
// filter; nil means unknown, not zero.
func postFilter(in types.SearchIntent, results []types.NormalizedResult, nativePrice map[string]bool) []types.NormalizedResult {
	out := results[:0]
	for _, r := range results {
		if !priceInRange(in, r, nativePrice) {
			continue
		}
		if matchesExclusion(in, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func priceInRange(in types.SearchIntent, r types.NormalizedResult, nativePrice map[string]bool) bool {
	if nativePrice[r.Source] || r.Price == nil {
		return true
	}
	if in.MinPrice != nil && *r.Price < *in.MinPrice {
		return false
	}
	if in.MaxPrice != nil && *r.Price > *in.MaxPrice {
		return false
	}
	return true
}

func matchesExclusion(in types.SearchIntent, r types.NormalizedResult) bool {
	searchable := strings.ToLower(r.Title + " " + r.Description)
	for _, kw := range in.ExcludeKeywords {
		if strings.Contains(searchable, strings.ToLower(kw)) {
			return true
		}
	}
	merchant := strings.ToLower(r.MerchantName + " " + r.MerchantDomain)
	for _, m := range in.ExcludeMerchants {
		if strings.Contains(merchant, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// rank runs the three scoring stages and returns results sorted by final
// score, descending. sims must be index-aligned with results; zero-valued
// similarity scores contribute nothing, so a disabled re-ranker degrades the
// ordering to classical plus constraints.
func rank(in types.SearchIntent, cons intent.Constraints, results []types.NormalizedResult, sims []types.SimilarityScores) []types.ScoredResult {
	classical := score.Classical(in, results)

	ranked := make([]types.ScoredResult, len(results))
	for i, r := range results {
		bonus := score.ConstraintBonus(cons, r)
		ranked[i] = types.ScoredResult{
			NormalizedResult: r,
			Scores:           classical[i],
			Similarity:       sims[i],
			ConstraintBonus:  bonus,
			FinalScore: weightClassical*classical[i].Combined +
				weightSimilarity*sims[i].Blended +
				weightConstraint*bonus,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

// userMessage synthesizes the caller-facing hint for an empty result set.
// Empty string means no hint; some providers succeeded and there simply were
// no matches.
func userMessage(statuses []types.ProviderStatusSnapshot) string {
	if len(statuses) == 0 {
		return "Unable to search at this time. Please try again later."
	}

	exhausted, rateLimited, failed := 0, 0, 0
	for _, s := range statuses {
		switch s.Status {
		case types.StatusOK:
		case types.StatusExhausted:
			exhausted++
			failed++
		case types.StatusRateLimited:
			rateLimited++
			failed++
		default:
			failed++
		}
	}

	switch {
	case exhausted == len(statuses):
		return "Search providers have exhausted their quota. Please try again later or contact support."
	case rateLimited > 0:
		return "Search is temporarily rate-limited. Please wait a moment and try again."
	case failed == len(statuses):
		return "Unable to search at this time. Please try again later."
	default:
		return ""
	}
}
