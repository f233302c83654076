// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// ProviderStatus classifies the outcome of one provider call.
type ProviderStatus string

const (
	StatusOK          ProviderStatus = "ok"
	StatusTimeout     ProviderStatus = "timeout"
	StatusRateLimited ProviderStatus = "rate_limited"
	StatusExhausted   ProviderStatus = "exhausted"
	StatusError       ProviderStatus = "error"
)

// ProviderQuery is the provider-specific query built by a query adapter.
// It is owned exclusively by its provider and never shared across providers.
type ProviderQuery struct {
	// ProviderID identifies the provider the query was built for.
	ProviderID string `json:"provider_id" yaml:"provider_id"`

	// Query is the search string in the provider's grammar.
	Query string `json:"query" yaml:"query"`

	// Filters carries native filter parameters (price bounds, condition)
	// translated into the provider's vocabulary.
	Filters map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`

	// Metadata carries non-filter context (taxonomy version, category path).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ProviderExecutionResult is the finalized outcome of one provider call:
// raw opaque payload records plus status instrumentation. Created by the
// orchestrator when dispatching, finalized by the executor, immutable after.
type ProviderExecutionResult struct {
	ProviderID string            `json:"provider_id"`
	Status     ProviderStatus    `json:"status"`
	Records    []json.RawMessage `json:"-"`
	Message    string            `json:"message,omitempty"`
	LatencyMS  int64             `json:"latency_ms"`
}

// ProviderStatusSnapshot is the per-provider diagnostics entry attached to
// every search response.
type ProviderStatusSnapshot struct {
	ProviderID  string         `json:"provider_id" yaml:"provider_id"`
	Status      ProviderStatus `json:"status" yaml:"status"`
	ResultCount int            `json:"result_count" yaml:"result_count"`
	LatencyMS   int64          `json:"latency_ms" yaml:"latency_ms"`
	Message     string         `json:"message,omitempty" yaml:"message,omitempty"`
}

// NormalizedResult is the canonical offer representation every provider
// payload is normalized into.
type NormalizedResult struct {
	// Title is the offer title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// URL is the offer URL as returned; CanonicalURL is its normalized form,
	// used as the same-provider identity key.
	URL          string `json:"url" yaml:"url"`
	CanonicalURL string `json:"canonical_url" yaml:"canonical_url"`

	// Source identifies the provider that produced the result.
	Source string `json:"source" yaml:"source"`

	// Price is the offer price in USD. Nil means the provider payload did not
	// unambiguously expose a numeric price, or FX conversion was unavailable.
	// Never coerced to zero.
	Price    *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	Currency string   `json:"currency,omitempty" yaml:"currency,omitempty"`

	// PriceOriginal and CurrencyOriginal preserve the provider's figures
	// verbatim, before any FX conversion.
	PriceOriginal    *float64 `json:"price_original,omitempty" yaml:"price_original,omitempty"`
	CurrencyOriginal string   `json:"currency_original,omitempty" yaml:"currency_original,omitempty"`

	MerchantName   string `json:"merchant_name" yaml:"merchant_name"`
	MerchantDomain string `json:"merchant_domain" yaml:"merchant_domain"`

	// Description is secondary match text (snippet, abstract), when available.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	ImageURL     string   `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Rating       *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewsCount *int     `json:"reviews_count,omitempty" yaml:"reviews_count,omitempty"`
	ShippingInfo string   `json:"shipping_info,omitempty" yaml:"shipping_info,omitempty"`

	// VectorSimilarity is set only by the vendor directory provider, where
	// embedding similarity is the relevance signal.
	VectorSimilarity *float64 `json:"vector_similarity,omitempty" yaml:"vector_similarity,omitempty"`

	// Raw keeps the provider payload record for debugging and audit.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

// ClassicalScores holds the first-stage score breakdown.
type ClassicalScores struct {
	Relevance float64 `json:"relevance" yaml:"relevance"`
	Price     float64 `json:"price" yaml:"price"`
	Quality   float64 `json:"quality" yaml:"quality"`
	Diversity float64 `json:"diversity" yaml:"diversity"`
	TierFit   float64 `json:"tier_fit" yaml:"tier_fit"`
	Combined  float64 `json:"combined" yaml:"combined"`
}

// SimilarityScores holds the re-ranker stage breakdown. Zero-valued when the
// re-ranker is disabled or no embedding was available for the candidate.
type SimilarityScores struct {
	Quantum   float64 `json:"quantum" yaml:"quantum"`
	Classical float64 `json:"classical" yaml:"classical"`
	Novelty   float64 `json:"novelty" yaml:"novelty"`
	Coherence float64 `json:"coherence" yaml:"coherence"`
	Blended   float64 `json:"blended" yaml:"blended"`
}

// ScoredResult is a NormalizedResult with all three scoring stages applied.
// Created once per result per search and never mutated afterwards.
type ScoredResult struct {
	NormalizedResult `yaml:",inline"`

	Scores          ClassicalScores  `json:"scores" yaml:"scores"`
	Similarity      SimilarityScores `json:"similarity" yaml:"similarity"`
	ConstraintBonus float64          `json:"constraint_bonus" yaml:"constraint_bonus"`
	FinalScore      float64          `json:"final_score" yaml:"final_score"`
}

// SearchResponse is the full output of one search: the ranked results,
// per-provider diagnostics, and the queries that produced them.
type SearchResponse struct {
	Intent        SearchIntent             `json:"intent" yaml:"intent"`
	Queries       map[string]ProviderQuery `json:"queries" yaml:"queries"`
	Results       []ScoredResult           `json:"results" yaml:"results"`
	Statuses      []ProviderStatusSnapshot `json:"provider_statuses" yaml:"provider_statuses"`
	LowConfidence bool                     `json:"low_confidence" yaml:"low_confidence"`

	// ViewMoreCount is the number of ranked results beyond the output cap.
	ViewMoreCount int `json:"view_more_count" yaml:"view_more_count"`

	// UserMessage is a caller-facing hint set only when every provider failed.
	UserMessage string `json:"user_message,omitempty" yaml:"user_message,omitempty"`

	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// AllProvidersFailed reports whether no provider returned ok.
func (r SearchResponse) AllProvidersFailed() bool {
	if len(r.Statuses) == 0 {
		return true
	}
	for _, s := range r.Statuses {
		if s.Status == StatusOK {
			return false
		}
	}
	return true
}
