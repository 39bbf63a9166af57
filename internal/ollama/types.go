// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"fmt"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Options contains model parameters for inference.
type Options struct {
	// Sampling parameters
	Temperature   *float64 `json:"temperature,omitempty"`   // nil = server default, 0 = greedy
	TopK          int      `json:"top_k,omitempty"`          // Default 40
	TopP          float64  `json:"top_p,omitempty"`          // 0.0-1.0
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"` // Default 1.1

	// NumPredict is the max tokens to generate, -1 for unlimited
	NumPredict int `json:"num_predict,omitempty"`

	// NumCtx is the context window size
	NumCtx int `json:"num_ctx,omitempty"`

	// Stop sequences end generation and are not included in the output
	Stop []string `json:"stop,omitempty"`

	Seed int `json:"seed,omitempty"`
}

// GenerateRequest is the request body for /api/generate.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	System  string   `json:"system,omitempty"`
	Options *Options `json:"options,omitempty"`
	// Raw skips the model's prompt template; prompts are sent verbatim.
	Raw bool `json:"raw,omitempty"`
}

// EmbeddingRequest is the request body for /api/embeddings.
type EmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is one /api/generate object. Non-streaming calls return a
// single one with Done set; streaming calls return one per line.
type GenerateResponse struct {
	Model              string    `json:"model"`
	CreatedAt          time.Time `json:"created_at"`
	Response           string    `json:"response"`
	Done               bool      `json:"done"`
	DoneReason         string    `json:"done_reason,omitempty"`
	TotalDuration      int64     `json:"total_duration,omitempty"`       // nanoseconds
	LoadDuration       int64     `json:"load_duration,omitempty"`        // nanoseconds
	PromptEvalCount    int       `json:"prompt_eval_count,omitempty"`    // tokens in prompt
	PromptEvalDuration int64     `json:"prompt_eval_duration,omitempty"` // nanoseconds
	EvalCount          int       `json:"eval_count,omitempty"`           // tokens generated
	EvalDuration       int64     `json:"eval_duration,omitempty"`        // nanoseconds
	Error              string    `json:"error,omitempty"`
}

// TokensPerSecond returns the generation speed.
func (r *GenerateResponse) TokensPerSecond() float64 {
	if r.EvalDuration == 0 {
		return 0
	}
	return float64(r.EvalCount) / (float64(r.EvalDuration) / 1e9)
}

// TotalTime returns the server-side wall time of the request.
func (r *GenerateResponse) TotalTime() time.Duration {
	return time.Duration(r.TotalDuration)
}

// EmbeddingResponse is the response from /api/embeddings.
type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// =============================================================================
// MODEL TYPES
// =============================================================================

// ModelInfo describes an installed model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string `json:"format"`
	Family            string `json:"family"`
	ParameterSize     string `json:"parameter_size"`
	QuantizationLevel string `json:"quantization_level"`
}

// ListModelsResponse is the response from /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// FormatSize returns the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case m.Size >= gb:
		return fmt.Sprintf("%.1f GB", float64(m.Size)/gb)
	case m.Size >= mb:
		return fmt.Sprintf("%.1f MB", float64(m.Size)/mb)
	case m.Size >= kb:
		return fmt.Sprintf("%.1f KB", float64(m.Size)/kb)
	default:
		return fmt.Sprintf("%d B", m.Size)
	}
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk is a single piece of a streaming generation.
type StreamChunk struct {
	Content string
	Done    bool

	// Populated on the final chunk only
	DoneReason       string
	TotalDuration    time.Duration
	PromptTokens     int
	CompletionTokens int

	Model string
}

// apiError is the {"error": "..."} body Ollama returns on failure.
type apiError struct {
	Error string `json:"error"`
}
