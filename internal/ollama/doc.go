// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama is the HTTP client for a local Ollama server.
//
// It covers the endpoints llmrag needs:
//
//   - GET  /            health check
//   - GET  /api/tags    installed models
//   - POST /api/generate  raw prompt completion, streaming or not
//   - POST /api/embeddings  embedding vectors for retrieval
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    BaseURL:      "http://127.0.0.1:11434",
//	    DefaultModel: "llama3.1:8b",
//	})
//	resp, err := client.Generate(ctx, &ollama.GenerateRequest{
//	    Prompt:  "Hello",
//	    Options: &ollama.Options{NumPredict: 400, Stop: []string{"###"}},
//	})
//
// Errors are *ClientError values; use IsNotRunning, IsTimeout and
// IsModelNotFound to classify them.
package ollama
