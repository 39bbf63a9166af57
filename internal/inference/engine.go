// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/config"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ollama"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options controls one generation.
type Options struct {
	// MaxTokens caps generated tokens (0 = engine default).
	MaxTokens int
	// Sample enables stochastic decoding. When false decoding is greedy.
	Sample bool
	// Temperature applies when Sample is set; 0 keeps the engine default.
	Temperature float64
	TopK        int
	TopP        float64
	// RepeatPenalty discourages repetition; 0 keeps the engine default.
	RepeatPenalty float64
	// Stop sequences end generation and are excluded from the result.
	Stop []string
}

// ChatOptions is the plain chat preset.
func ChatOptions() Options {
	return Options{MaxTokens: 400, Sample: true, Stop: []string{"</s>", "###"}}
}

// IDEOptions is the code assistance preset.
func IDEOptions() Options {
	return Options{MaxTokens: 256, Sample: true, Stop: []string{"\n\n"}}
}

// RAGOptions is the retrieval-augmented chat preset.
func RAGOptions() Options {
	return Options{MaxTokens: 300, Sample: true, TopK: 50, TopP: 0.7, RepeatPenalty: 1.1}
}

// FromPreset converts a config preset.
func FromPreset(p config.GenerationPreset) Options {
	return Options{
		MaxTokens:     p.MaxTokens,
		Sample:        p.Sample,
		Temperature:   p.Temperature,
		TopK:          p.TopK,
		TopP:          p.TopP,
		RepeatPenalty: p.RepeatPenalty,
		Stop:          append([]string(nil), p.Stop...),
	}
}

// toOllama maps Options onto the Ollama request options.
func (o Options) toOllama() *ollama.Options {
	opts := &ollama.Options{
		NumPredict:    o.MaxTokens,
		RepeatPenalty: o.RepeatPenalty,
		Stop:          o.Stop,
	}
	if o.Sample {
		if o.Temperature > 0 {
			t := o.Temperature
			opts.Temperature = &t
		}
		opts.TopK = o.TopK
		opts.TopP = o.TopP
	} else {
		greedy := 0.0
		opts.Temperature = &greedy
	}
	return opts
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine generates text from a prompt. Implementations block until the
// text is complete and do not retry.
type Engine interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate calls f.
func (f EngineFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// Streamer is an engine that can deliver text as it is generated.
type Streamer interface {
	GenerateStream(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error)
}

// Stream generates through e, streaming when e supports it. Otherwise the
// whole reply is passed to onToken once.
func Stream(ctx context.Context, e Engine, prompt string, opts Options, onToken func(string)) (string, error) {
	if s, ok := e.(Streamer); ok {
		return s.GenerateStream(ctx, prompt, opts, onToken)
	}
	text, err := e.Generate(ctx, prompt, opts)
	if err == nil && onToken != nil && text != "" {
		onToken(text)
	}
	return text, err
}

// ErrEmptyPrompt is returned for a prompt with no content.
var ErrEmptyPrompt = errors.New("empty prompt")

// OllamaEngine generates through a local Ollama server.
type OllamaEngine struct {
	client *ollama.Client
	model  string
	logger *zap.Logger
	// raw sends prompts without the model's chat template.
	raw bool
}

// NewOllamaEngine returns an engine for model (empty = the client default).
// Prompts are sent raw: they already carry their own framing.
func NewOllamaEngine(client *ollama.Client, model string, logger *zap.Logger) *OllamaEngine {
	if model == "" {
		model = client.Model()
	}
	return &OllamaEngine{client: client, model: model, logger: logging.OrNop(logger), raw: true}
}

// Model returns the model name.
func (e *OllamaEngine) Model() string {
	return e.model
}

// Generate runs one non-streaming completion.
func (e *OllamaEngine) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return e.run(ctx, prompt, opts, nil)
}

// GenerateStream runs one completion, calling onToken with each piece of
// text as it arrives, and returns the whole text.
func (e *OllamaEngine) GenerateStream(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error) {
	if onToken == nil {
		onToken = func(string) {}
	}
	return e.run(ctx, prompt, opts, onToken)
}

func (e *OllamaEngine) run(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	id := uuid.NewString()
	log := e.logger.With(
		zap.String("request_id", id),
		zap.String("model", e.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("max_tokens", opts.MaxTokens),
	)
	log.Debug("generation started")
	start := time.Now()

	req := &ollama.GenerateRequest{
		Model:   e.model,
		Prompt:  prompt,
		Options: opts.toOllama(),
		Raw:     e.raw,
	}

	var (
		text string
		err  error
	)
	if onToken != nil {
		text, err = e.client.GenerateStream(ctx, req, func(chunk ollama.StreamChunk) {
			if chunk.Content != "" {
				onToken(chunk.Content)
			}
		})
	} else {
		var resp *ollama.GenerateResponse
		resp, err = e.client.Generate(ctx, req)
		if resp != nil {
			text = resp.Response
		}
	}

	elapsed := time.Since(start)
	if err != nil {
		log.Warn("generation failed", zap.Duration("duration", elapsed), zap.Error(err))
		return "", err
	}
	log.Info("generation finished", zap.Duration("duration", elapsed), zap.Int("output_len", len(text)))
	return text, nil
}

// =============================================================================
// SERIALIZATION
// =============================================================================

// Serialized wraps an engine so that at most one generation runs at a time.
// Waiting callers give up when their context ends.
type Serialized struct {
	engine Engine
	// sem is a one-slot semaphore; a channel lets waiters honor ctx.
	sem chan struct{}
}

// NewSerialized wraps engine.
func NewSerialized(engine Engine) *Serialized {
	return &Serialized{engine: engine, sem: make(chan struct{}, 1)}
}

// Generate waits for the engine to be free, then generates.
func (s *Serialized) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.sem }()
	return s.engine.Generate(ctx, prompt, opts)
}

// GenerateStream is Generate with streaming when the wrapped engine
// supports it.
func (s *Serialized) GenerateStream(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-s.sem }()
	return Stream(ctx, s.engine, prompt, opts, onToken)
}

// Busy reports whether a generation is in progress.
func (s *Serialized) Busy() bool {
	return len(s.sem) > 0
}
