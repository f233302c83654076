// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sourcing runs the purchase-offer pipeline: fan the intent out to
// every registered provider, normalize what comes back, score and rank it,
// and assemble one response with per-provider diagnostics. A search returns
// an error only for configuration problems; upstream failures degrade the
// result set instead.
package sourcing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/sourcing-engine/internal/intent"
	"github.com/pdiddy/sourcing-engine/internal/provider"
	"github.com/pdiddy/sourcing-engine/internal/rerank"
	"github.com/pdiddy/sourcing-engine/internal/secrets"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// Default pipeline bounds. The per-provider timeout stays below the overall
// deadline so one slow upstream cannot consume the whole budget.
const (
	defaultProviderTimeout = 7 * time.Second
	defaultOverallDeadline = 11 * time.Second
	defaultOutputCap       = 5
)

// SearchContext identifies one search run across log lines and audit files.
type SearchContext struct {
	ID      string
	Started time.Time
}

func newSearchContext() SearchContext {
	return SearchContext{ID: uuid.NewString(), Started: time.Now()}
}

// Engine is the pipeline entry point. Safe for concurrent searches; all
// per-search state lives on the stack of Search.
type Engine struct {
	providers []provider.Provider
	reranker  *rerank.Reranker
	cfg       types.SearchConfig
	redactor  *secrets.Redactor
	log       *logrus.Entry
}

// New builds an Engine over the given providers. The reranker may be nil.
func New(providers []provider.Provider, reranker *rerank.Reranker, cfg types.SearchConfig, redactor *secrets.Redactor) (*Engine, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers registered")
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.OverallDeadline <= 0 {
		cfg.OverallDeadline = defaultOverallDeadline
	}
	if cfg.OutputCap <= 0 {
		cfg.OutputCap = defaultOutputCap
	}
	if cfg.ProviderTimeout >= cfg.OverallDeadline {
		return nil, fmt.Errorf("provider timeout %v must be below overall deadline %v", cfg.ProviderTimeout, cfg.OverallDeadline)
	}
	if reranker == nil {
		reranker = rerank.New(types.RerankConfig{}, nil)
	}
	if redactor == nil {
		redactor = secrets.NewRedactor()
	}
	return &Engine{
		providers: providers,
		reranker:  reranker,
		cfg:       cfg,
		redactor:  redactor,
		log:       logrus.WithField("component", "sourcing"),
	}, nil
}

// Search runs the full pipeline for one intent. providerIDs narrows the
// fan-out to the named providers; empty means all. A zero deadline uses the
// configured overall deadline. Partial upstream failures are reported through
// the response's status snapshots, never as an error.
func (e *Engine) Search(ctx context.Context, in types.SearchIntent, providerIDs []string, deadline time.Duration) (*types.SearchResponse, error) {
	if err := in.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid intent: %w", err)
	}

	selected, err := e.selectProviders(providerIDs)
	if err != nil {
		return nil, err
	}

	sctx := newSearchContext()
	log := e.log.WithField("search_id", sctx.ID)
	log.WithFields(logrus.Fields{
		"providers": len(selected),
		"category":  in.Category,
	}).Info("starting search")

	if deadline <= 0 {
		deadline = e.cfg.OverallDeadline
	}
	octx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	queries, execs := fanOut(octx, selected, in, e.cfg, e.redactor, log)

	var all []types.NormalizedResult
	statuses := make([]types.ProviderStatusSnapshot, len(execs))
	totalDropped := 0
	for i, exec := range execs {
		var normalized []types.NormalizedResult
		if exec.Status == types.StatusOK {
			var dropped int
			normalized, dropped = normalizeBatch(selected[i], queries[exec.ProviderID], exec, log)
			totalDropped += dropped
			all = append(all, normalized...)
		}
		statuses[i] = types.ProviderStatusSnapshot{
			ProviderID:  exec.ProviderID,
			Status:      exec.Status,
			ResultCount: len(normalized),
			LatencyMS:   exec.LatencyMS,
			Message:     exec.Message,
		}
	}

	nativePrice := make(map[string]bool, len(selected))
	for _, p := range selected {
		nativePrice[p.ID()] = p.SupportsNativePriceFilter()
	}
	filtered := postFilter(in, all, nativePrice)

	cons := intent.Extract(in)
	sims := e.reranker.Score(octx, queryText(in), filtered)
	ranked := rank(in, cons, filtered, sims)

	resp := &types.SearchResponse{
		Intent:        in,
		Queries:       queries,
		Statuses:      statuses,
		LowConfidence: in.LowConfidence(),
		GeneratedAt:   time.Now(),
	}
	if len(ranked) > e.cfg.OutputCap {
		resp.ViewMoreCount = len(ranked) - e.cfg.OutputCap
		ranked = ranked[:e.cfg.OutputCap]
	}
	resp.Results = ranked
	if len(ranked) == 0 {
		resp.UserMessage = userMessage(statuses)
	}

	log.WithFields(logrus.Fields{
		"results":   len(resp.Results),
		"view_more": resp.ViewMoreCount,
		"dropped":   totalDropped,
		"elapsed":   time.Since(sctx.Started).Milliseconds(),
	}).Info("search complete")
	return resp, nil
}

// selectProviders narrows the registered providers to the requested IDs.
func (e *Engine) selectProviders(providerIDs []string) ([]provider.Provider, error) {
	if len(providerIDs) == 0 {
		return e.providers, nil
	}
	allow := make(map[string]bool, len(providerIDs))
	for _, id := range providerIDs {
		allow[id] = true
	}
	var selected []provider.Provider
	for _, p := range e.providers {
		if allow[p.ID()] {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no registered provider matches %v", providerIDs)
	}
	return selected, nil
}

// queryText is the free-text form of the intent handed to the re-ranker.
func queryText(in types.SearchIntent) string {
	if in.RawInput != "" {
		return in.RawInput
	}
	return provider.BuildQueryString(in)
}
