// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pdiddy/sourcing-engine/pkg/types"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint, typically a
// local service such as Ollama or LM Studio.
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	log      *logrus.Entry
}

// NewOpenAI builds an embedder against cfg.Host using cfg.Model. The token is
// fixed to "none" for local services that do not require authentication.
func NewOpenAI(cfg types.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("embedding host is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("wrapping embedding client: %w", err)
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		log:      logrus.WithField("component", "embedder"),
	}, nil
}

// EmbedText generates an embedding for a single text string.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.log.WithError(err).Debug("embedding request failed")
		return nil, err
	}
	if len(vecs) == 0 {
		return []float32{}, nil
	}
	return vecs[0], nil
}

// EmbedTexts generates embeddings for multiple texts in a batch.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.log.WithError(err).WithField("count", len(texts)).Debug("batch embedding request failed")
		return nil, err
	}
	return vecs, nil
}
