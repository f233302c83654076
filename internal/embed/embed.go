// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed produces vector embeddings for query and result text. The
// vectors feed the similarity reranker and the vendor directory search.
package embed

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedText generates an embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedTexts generates embeddings for multiple texts in a batch.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
