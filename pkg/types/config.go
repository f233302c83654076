// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by provider executors.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "sourcing-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search pipeline.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// ProviderTimeout bounds each provider call (default 7s). Must be below
	// OverallDeadline; a provider can time out while the search still
	// succeeds with the rest.
	ProviderTimeout time.Duration `json:"provider_timeout" yaml:"provider_timeout"`

	// OverallDeadline bounds the whole fan-out (default 11s). Providers that
	// have not answered by then are recorded as timed out and excluded.
	OverallDeadline time.Duration `json:"overall_deadline" yaml:"overall_deadline"`

	// MaxResults caps how many records each provider contributes (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// OutputCap is the ranked-list size handed to consumers (default 5);
	// the remainder is reported as a view-more count.
	OutputCap int `json:"output_cap" yaml:"output_cap"`

	// CacheTTL is how long provider responses are served from the in-process
	// cache. Zero disables caching.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// RatePerSecond throttles calls per provider. Zero disables throttling.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	// PoolSize bounds the orchestrator worker pool. Values below the provider
	// count are raised to it so fan-out never queues.
	PoolSize int `json:"pool_size" yaml:"pool_size"`
}

// RerankConfig holds settings for the similarity re-ranker.
type RerankConfig struct {
	// Enabled feature-flags the re-ranker. When false its contribution to the
	// final score is exactly zero.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Modes is the number of kernel modes embeddings are reduced to (default 8).
	Modes int `json:"modes" yaml:"modes"`

	// BlendFactor weighs the kernel score against plain cosine similarity
	// (default 0.7).
	BlendFactor float64 `json:"blend_factor" yaml:"blend_factor"`
}

// EmbeddingConfig holds settings for the optional embedding source.
type EmbeddingConfig struct {
	// Host is the base URL of an OpenAI-compatible embedding API. Empty
	// disables embeddings (and with them the re-ranker).
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// Model is the embedding model identifier.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
}

// FXConfig holds settings for the read-only FX rate table.
type FXConfig struct {
	// RatesFile is a YAML file mapping currency code to USD rate.
	// Empty falls back to the built-in reference table.
	RatesFile string `json:"rates_file,omitempty" yaml:"rates_file,omitempty"`

	// MaxAge rejects rates older than this (default 24h). Conversions with a
	// stale table leave prices unset rather than using outdated rates.
	MaxAge time.Duration `json:"max_age" yaml:"max_age"`
}

// ProviderConfig holds per-provider credentials and switches.
type ProviderConfig struct {
	// RainforestAPIKey enables the Rainforest (Amazon) provider.
	RainforestAPIKey string `json:"rainforest_api_key,omitempty" yaml:"rainforest_api_key,omitempty"`

	// EbayClientID and EbayClientSecret enable the eBay Browse provider.
	EbayClientID     string `json:"ebay_client_id,omitempty" yaml:"ebay_client_id,omitempty"`
	EbayClientSecret string `json:"ebay_client_secret,omitempty" yaml:"ebay_client_secret,omitempty"`
	EbayMarketplace  string `json:"ebay_marketplace,omitempty" yaml:"ebay_marketplace,omitempty"`

	// GoogleCSEKey and GoogleCSECX enable the Google Custom Search provider.
	GoogleCSEKey string `json:"google_cse_key,omitempty" yaml:"google_cse_key,omitempty"`
	GoogleCSECX  string `json:"google_cse_cx,omitempty" yaml:"google_cse_cx,omitempty"`

	// TicketmasterAPIKey enables the Ticketmaster event provider.
	TicketmasterAPIKey string `json:"ticketmaster_api_key,omitempty" yaml:"ticketmaster_api_key,omitempty"`

	// VendorDBPath enables the vendor directory provider.
	VendorDBPath string `json:"vendor_db_path,omitempty" yaml:"vendor_db_path,omitempty"`

	// UseMock registers the deterministic mock provider: "always" forces it,
	// "auto" (default) registers it only when no other provider is configured,
	// "never" disables it.
	UseMock string `json:"use_mock,omitempty" yaml:"use_mock,omitempty"`
}

// StoreConfig holds settings for the results persistence layer.
type StoreConfig struct {
	// DBPath is the SQLite database file for persisted search responses.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search    SearchConfig    `json:"search" yaml:"search"`
	Rerank    RerankConfig    `json:"rerank" yaml:"rerank"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	FX        FXConfig        `json:"fx" yaml:"fx"`
	Providers ProviderConfig  `json:"providers" yaml:"providers"`
	Store     StoreConfig     `json:"store" yaml:"store"`
}
