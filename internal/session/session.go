// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/inference"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/prompt"
)

// ErrEmptyInput is returned by Send for blank input.
var ErrEmptyInput = errors.New("empty input")

// Retriever supplies document context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// Stats describes activity within one process.
type Stats struct {
	Turns        int
	Failures     int
	StartTime    time.Time
	LastActivity time.Time
	LastLatency  time.Duration
}

// Session is one named conversation.
type Session struct {
	name      string
	recorder  *inference.Recorder
	opts      inference.Options
	retriever Retriever
	logger    *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// New returns a plain chat session recording under name.
func New(name string, rec *inference.Recorder, opts inference.Options, logger *zap.Logger) *Session {
	now := time.Now()
	return &Session{
		name:     name,
		recorder: rec,
		opts:     opts,
		logger:   logging.OrNop(logger).With(zap.String("session", name)),
		stats:    Stats{StartTime: now, LastActivity: now},
	}
}

// WithRetriever makes s a retrieval-augmented session.
func (s *Session) WithRetriever(r Retriever) *Session {
	s.retriever = r
	return s
}

// Name returns the transcript name.
func (s *Session) Name() string {
	return s.name
}

// Retrieval reports whether prompts carry retrieved context.
func (s *Session) Retrieval() bool {
	return s.retriever != nil
}

// Stats returns a snapshot of the session's activity.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Send generates the reply to input and records the turn.
func (s *Session) Send(ctx context.Context, input string) (string, error) {
	return s.SendStream(ctx, input, nil)
}

// SendStream is Send with onToken called for each piece of text as it
// is generated. Retrieval sessions deliver the extracted answer once.
func (s *Session) SendStream(ctx context.Context, input string, onToken func(string)) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}

	start := time.Now()
	reply, err := s.generate(ctx, input, onToken)
	s.track(start, err)
	if err != nil {
		s.logger.Warn("turn failed", zap.Error(err))
		return reply, err
	}
	return reply, nil
}

func (s *Session) generate(ctx context.Context, input string, onToken func(string)) (string, error) {
	if s.retriever == nil {
		reply, err := inference.Stream(ctx, s.recorder.Engine, prompt.Chat(input), s.opts, onToken)
		if err != nil {
			return "", err
		}
		return reply, s.recorder.Record(s.name, input, reply)
	}

	docs, err := s.retriever.Retrieve(ctx, input)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}
	s.logger.Debug("context retrieved", zap.Int("context_len", len(docs)))

	raw, err := s.recorder.Engine.Generate(ctx, prompt.RAG(docs, input), s.opts)
	if err != nil {
		return "", err
	}
	answer := prompt.ExtractAnswer(raw)
	if onToken != nil && answer != "" {
		onToken(answer)
	}
	return answer, s.recorder.Record(s.name, input, answer)
}

func (s *Session) track(start time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.stats.LastActivity = now
	s.stats.LastLatency = now.Sub(start)
	if err != nil {
		s.stats.Failures++
		return
	}
	s.stats.Turns++
}
