// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retrieval

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ollama"
)

// Embedder maps text to a vector. All vectors from one embedder have the
// same length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Model names the embedding model; it is stored with the index.
	Model() string
}

// OllamaEmbedder embeds through the Ollama /api/embeddings endpoint.
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
}

// NewOllamaEmbedder returns an embedder for model (empty = the client's
// embedding model).
func NewOllamaEmbedder(client *ollama.Client, model string) *OllamaEmbedder {
	if model == "" {
		model = client.Config().EmbedModel
	}
	return &OllamaEmbedder{client: client, model: model}
}

// Embed returns the embedding of text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return e.client.Embed(ctx, e.model, text)
}

// Model returns the embedding model name.
func (e *OllamaEmbedder) Model() string {
	return e.model
}

// embedAll embeds texts with at most concurrency requests in flight. The
// result is in input order. The first failure cancels the rest. progress,
// when set, is called after each chunk with the number finished so far.
func embedAll(ctx context.Context, e Embedder, texts []string, concurrency int, progress func(done, total int)) ([][]float32, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	vectors := make([][]float32, len(texts))

	var (
		mu       sync.Mutex
		finished int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", i, err)
			}
			vectors[i] = normalize(vec)
			if progress != nil {
				mu.Lock()
				finished++
				progress(finished, len(texts))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, v := range vectors {
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(v), len(vectors[0]))
		}
	}
	return vectors, nil
}
