// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/sourcing-engine/internal/embed"
	"github.com/pdiddy/sourcing-engine/pkg/types"
)

const (
	defaultModes       = 8
	defaultBlendFactor = 0.7
)

// Reranker computes second-stage similarity scores between the search query
// and each candidate result. It is feature-flagged: when disabled, or when no
// embedder is available, every score is exactly zero so the final ranking
// falls back to the classical and constraint stages alone.
type Reranker struct {
	cfg      types.RerankConfig
	embedder embed.Embedder
	log      *logrus.Entry
}

// New builds a Reranker. A nil embedder disables it regardless of cfg.
func New(cfg types.RerankConfig, embedder embed.Embedder) *Reranker {
	if cfg.Modes <= 0 {
		cfg.Modes = defaultModes
	}
	if cfg.BlendFactor <= 0 || cfg.BlendFactor > 1 {
		cfg.BlendFactor = defaultBlendFactor
	}
	return &Reranker{
		cfg:      cfg,
		embedder: embedder,
		log:      logrus.WithField("component", "reranker"),
	}
}

// Enabled reports whether the re-ranker will contribute to scoring.
func (r *Reranker) Enabled() bool {
	return r.cfg.Enabled && r.embedder != nil
}

// Score computes similarity scores for every candidate against the query.
// The returned slice is index-aligned with candidates. When the re-ranker is
// disabled, or embedding fails, all scores are zero; scoring errors degrade
// the ranking rather than failing the search.
func (r *Reranker) Score(ctx context.Context, query string, candidates []types.NormalizedResult) []types.SimilarityScores {
	scores := make([]types.SimilarityScores, len(candidates))
	if !r.Enabled() || len(candidates) == 0 {
		return scores
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	for _, c := range candidates {
		texts = append(texts, candidateText(c))
	}

	vecs, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		r.log.WithError(err).Warn("embedding failed, skipping similarity stage")
		return scores
	}

	queryVec := toFloat64(vecs[0])
	queryParams := reduceEmbedding(queryVec, r.cfg.Modes)

	for i := range candidates {
		candVec := toFloat64(vecs[i+1])
		if allZero(candVec) {
			continue
		}
		scores[i] = r.similarity(queryVec, queryParams, candVec)
	}
	return scores
}

func (r *Reranker) similarity(queryVec, queryParams, candVec []float64) types.SimilarityScores {
	candParams := reduceEmbedding(candVec, r.cfg.Modes)

	quantum := clamp01(simulateKernel(queryParams, candParams))
	classical := cosineSimilarity(queryVec, candVec)
	novelty := quantum - classical
	if novelty < 0 {
		novelty = 0
	}
	coherence := coherenceScore(quantum, classical)

	bf := r.cfg.BlendFactor
	blended := bf*quantum + (1-bf)*classical + 0.1*novelty + 0.1*coherence

	return types.SimilarityScores{
		Quantum:   quantum,
		Classical: classical,
		Novelty:   novelty,
		Coherence: coherence,
		Blended:   blended,
	}
}

// coherenceScore measures match robustness: a kernel score that agrees with
// cosine is trustworthy, a large disagreement dampens it. Below the cosine
// noise floor the kernel score stands alone.
func coherenceScore(quantum, classical float64) float64 {
	if classical < 0.1 {
		return quantum
	}
	return clamp01(quantum * (1 - abs(quantum-classical)))
}

func candidateText(r types.NormalizedResult) string {
	if r.Description == "" {
		return r.Title
	}
	return strings.TrimSpace(r.Title + " " + r.Description)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
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

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
