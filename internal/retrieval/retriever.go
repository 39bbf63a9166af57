// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
)

// DefaultK is the number of chunks joined into a RAG prompt.
const DefaultK = 3

// Retriever answers queries against a loaded index.
type Retriever struct {
	index    *Index
	embedder Embedder
	k        int
}

// NewRetriever returns a retriever over idx. k <= 0 selects DefaultK.
func NewRetriever(idx *Index, embedder Embedder, k int) *Retriever {
	if k <= 0 {
		k = DefaultK
	}
	return &Retriever{index: idx, embedder: embedder, k: k}
}

// Index returns the underlying index.
func (r *Retriever) Index() *Index {
	return r.index
}

// Search embeds query and returns the top-k chunks.
func (r *Retriever) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if r.index.Len() == 0 {
		return []Result{}, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return r.index.Search(vec, r.k)
}

// Retrieve returns the top-k chunk texts joined by newlines, or "" for an
// empty index.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, error) {
	results, err := r.Search(ctx, query)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = res.Content
	}
	return strings.Join(parts, "\n"), nil
}

// Options controls LoadOrBuild.
type Options struct {
	DocsDir  string
	IndexDir string
	// Rebuild discards any persisted index.
	Rebuild  bool
	Embedder Embedder
	K        int
	Build    BuildOptions
	Logger   *zap.Logger
}

// LoadOrBuild opens the persisted index in opts.IndexDir, or builds and
// saves one from opts.DocsDir when none exists (or Rebuild is set).
// An existing index built with another embedding model is rejected.
func LoadOrBuild(ctx context.Context, opts Options) (*Retriever, error) {
	log := logging.OrNop(opts.Logger)
	if opts.Build.Logger == nil {
		opts.Build.Logger = log
	}

	if Exists(opts.IndexDir) && !opts.Rebuild {
		idx, err := Open(ctx, opts.IndexDir)
		if err != nil {
			return nil, err
		}
		if idx.Len() > 0 && idx.Model != opts.Embedder.Model() {
			return nil, fmt.Errorf("%w: index uses %q, configured %q (rebuild the index)",
				ErrModelMismatch, idx.Model, opts.Embedder.Model())
		}
		log.Info("index loaded", zap.String("dir", opts.IndexDir), zap.Int("chunks", idx.Len()))
		return NewRetriever(idx, opts.Embedder, opts.K), nil
	}

	idx, err := Build(ctx, opts.DocsDir, opts.IndexDir, opts.Embedder, opts.Build)
	if err != nil {
		return nil, err
	}
	return NewRetriever(idx, opts.Embedder, opts.K), nil
}
