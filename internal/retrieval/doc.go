// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retrieval builds and queries the similarity index behind RAG chat.
//
// Documents (PDF pages, text and markdown files) are split into overlapping
// chunks, embedded, and persisted to <dir>/index.db (SQLite). At query time
// the whole index is held in memory and searched exactly by cosine
// similarity.
//
// # Usage
//
//	r, err := retrieval.LoadOrBuild(ctx, retrieval.Options{
//	    DocsDir:  "docs",
//	    IndexDir: "vectorstore",
//	    Embedder: retrieval.NewOllamaEmbedder(client, "all-minilm"),
//	})
//	context, err := r.Retrieve(ctx, "what does chapter 2 say?")
package retrieval
