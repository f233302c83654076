// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEmbedder is a deterministic, dependency-free embedder. Each token is
// hashed into a fixed-size bag-of-words vector which is then L2-normalized.
// It is used when no embedding service is configured and by the mock
// provider, so the similarity pipeline stays exercisable offline. The vectors
// carry no semantic meaning beyond shared-token overlap.
type HashEmbedder struct {
	// Dim is the vector dimensionality. Zero means the default of 64.
	Dim int
}

const defaultHashDim = 64

func (h *HashEmbedder) dim() int {
	if h.Dim > 0 {
		return h.Dim
	}
	return defaultHashDim
}

// EmbedText generates a deterministic embedding for text.
func (h *HashEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim())
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		hash := fnv.New32a()
		hash.Write([]byte(tok))
		sum := hash.Sum32()
		idx := int(sum) % len(vec)
		if idx < 0 {
			idx += len(vec)
		}
		// Alternate sign by a second hash bit so unrelated texts are not
		// all positively correlated.
		sign := float32(1)
		if sum&0x10000 != 0 {
			sign = -1
		}
		vec[idx] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (h *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := h.EmbedText(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
