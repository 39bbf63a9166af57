// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"fmt"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
)

// Appender is the part of the transcript store a Recorder writes to.
type Appender interface {
	Append(name, user, ai string) (transcript.Turn, error)
}

// Recorder runs a generation and appends the exchange to a transcript.
// Nothing is written when generation fails.
type Recorder struct {
	Engine Engine
	Store  Appender
}

// NewRecorder returns a recorder over engine and store.
func NewRecorder(engine Engine, store Appender) *Recorder {
	return &Recorder{Engine: engine, Store: store}
}

// Generate sends prompt to the engine and records (prompt, reply) under
// session.
func (r *Recorder) Generate(ctx context.Context, session, prompt string, opts Options) (string, error) {
	return r.GenerateAs(ctx, session, prompt, prompt, opts)
}

// GenerateAs sends prompt to the engine but records userText as the user's
// side of the turn. RAG chat records the question, not the assembled
// prompt.
func (r *Recorder) GenerateAs(ctx context.Context, session, userText, prompt string, opts Options) (string, error) {
	reply, err := r.Engine.Generate(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if _, err := r.Store.Append(session, userText, reply); err != nil {
		return reply, fmt.Errorf("failed to record turn: %w", err)
	}
	return reply, nil
}

// Record appends an already generated exchange.
func (r *Recorder) Record(session, userText, reply string) error {
	if _, err := r.Store.Append(session, userText, reply); err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}
