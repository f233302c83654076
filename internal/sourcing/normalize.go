// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sourcing

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/sourcing-engine/internal/provider"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// normalizeBatch converts one provider's raw records into canonical results.
// Each record is isolated: a record that fails to normalize is dropped and
// counted, never the batch. Records the provider marks as skippable (nil, nil)
// are dropped silently.
func normalizeBatch(p provider.Provider, query types.ProviderQuery, exec types.ProviderExecutionResult, log *logrus.Entry) ([]types.NormalizedResult, int) {
	results := make([]types.NormalizedResult, 0, len(exec.Records))
	dropped := 0

	for _, raw := range exec.Records {
		r, err := p.Normalize(query, raw)
		if err != nil {
			dropped++
			log.WithFields(logrus.Fields{
				"provider": p.ID(),
				"dropped":  dropped,
			}).Warn(err.Error())
			continue
		}
		if r == nil {
			continue
		}
		if !allowURL(r.URL) {
			dropped++
			continue
		}
		results = append(results, *r)
	}
	return collapseByCanonical(results), dropped
}

// collapseByCanonical collapses offers from the same provider that share a
// canonical URL: the last record wins, keeping the first record's position.
// Cross-provider duplicates are preserved; different providers quoting the
// same listing are distinct offers.
func collapseByCanonical(results []types.NormalizedResult) []types.NormalizedResult {
	index := make(map[string]int, len(results))
	out := results[:0]
	for _, r := range results {
		key := r.CanonicalURL
		if key == "" {
			out = append(out, r)
			continue
		}
		if at, seen := index[key]; seen {
			out[at] = r
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// allowURL accepts only offers a user can actually open.
func allowURL(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "mailto:")
}
