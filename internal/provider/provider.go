// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements the purchase-offer providers the orchestrator
// fans out to. Each provider owns the full round trip for its upstream API:
// translating a search intent into a provider-specific query, executing it,
// and normalizing raw payload records into the canonical offer shape.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/sourcing-engine/internal/embed"
	"github.com/pdiddy/sourcing-engine/internal/fx"
	"github.com/pdiddy/sourcing-engine/internal/vendordir"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// Provider is one upstream offer source. Implementations must be safe for
// concurrent use; the orchestrator calls Execute from its worker pool.
type Provider interface {
	// ID returns the stable provider identifier used in queries, statuses,
	// and result sources.
	ID() string

	// SupportsNativePriceFilter reports whether the upstream API applies
	// price bounds itself. The aggregator post-filters results only for
	// providers that return false.
	SupportsNativePriceFilter() bool

	// BuildQuery translates the intent into this provider's query grammar.
	BuildQuery(intent types.SearchIntent) types.ProviderQuery

	// Execute runs the query against the upstream API and returns raw
	// payload records. Failures should be reported as *Failure so the
	// orchestrator can classify them.
	Execute(ctx context.Context, query types.ProviderQuery) ([]json.RawMessage, error)

	// Normalize converts one raw record into the canonical offer shape.
	// A nil result with nil error means the record should be skipped.
	Normalize(query types.ProviderQuery, raw json.RawMessage) (*types.NormalizedResult, error)
}

// Failure is a classified provider error. Executors wrap upstream failures in
// a Failure so the orchestrator can map them to a provider status without
// string matching.
type Failure struct {
	Status types.ProviderStatus
	Msg    string
}

// Error implements the error interface.
func (f *Failure) Error() string { return f.Msg }

// NewFailure builds a classified provider error.
func NewFailure(status types.ProviderStatus, format string, args ...interface{}) *Failure {
	return &Failure{Status: status, Msg: fmt.Sprintf(format, args...)}
}

// ClassifyHTTPStatus maps an upstream HTTP status code to a provider status.
// 402 means the provider's quota or budget ran out; 429 means rate limiting.
func ClassifyHTTPStatus(code int) types.ProviderStatus {
	switch code {
	case http.StatusPaymentRequired:
		return types.StatusExhausted
	case http.StatusTooManyRequests:
		return types.StatusRateLimited
	default:
		return types.StatusError
	}
}

// StatusOf derives the provider status for an executor error.
func StatusOf(err error) types.ProviderStatus {
	if err == nil {
		return types.StatusOK
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.StatusTimeout
	}
	return types.StatusError
}

// BuildAll constructs every provider the configuration enables, each wrapped
// with the shared rate limiter and response cache. The mock provider is
// registered per cfg.Providers.UseMock: "always" forces it, "never" disables
// it, and the default ("auto") registers it only when nothing else is.
func BuildAll(cfg types.PipelineConfig, rates *fx.Table, embedder embed.Embedder) ([]Provider, error) {
	client := &http.Client{Timeout: cfg.Search.Timeout}
	pc := cfg.Providers

	var providers []Provider
	if pc.RainforestAPIKey != "" {
		providers = append(providers, NewRainforest(pc.RainforestAPIKey, client, rates, cfg.Search))
	}
	if pc.EbayClientID != "" && pc.EbayClientSecret != "" {
		providers = append(providers, NewEbay(pc.EbayClientID, pc.EbayClientSecret, pc.EbayMarketplace, client, rates, cfg.Search))
	}
	if pc.GoogleCSEKey != "" && pc.GoogleCSECX != "" {
		providers = append(providers, NewGoogleCSE(pc.GoogleCSEKey, pc.GoogleCSECX, client, cfg.Search))
	}
	if pc.TicketmasterAPIKey != "" {
		providers = append(providers, NewTicketmaster(pc.TicketmasterAPIKey, client, rates, cfg.Search))
	}
	if pc.VendorDBPath != "" {
		dir, err := vendordir.Open(pc.VendorDBPath, embedder)
		if err != nil {
			return nil, fmt.Errorf("opening vendor directory: %w", err)
		}
		providers = append(providers, NewVendors(dir))
	}

	switch pc.UseMock {
	case "never":
	case "always":
		providers = append(providers, NewMock())
	default:
		if len(providers) == 0 {
			logrus.Info("no providers configured, registering mock provider")
			providers = append(providers, NewMock())
		}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers enabled")
	}

	guarded := make([]Provider, len(providers))
	for i, p := range providers {
		guarded[i] = Guarded(p, cfg.Search)
	}
	return guarded, nil
}
