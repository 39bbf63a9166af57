// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/inference"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/prompt"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
)

type staticRetriever struct {
	text  string
	err   error
	calls int
}

func (r *staticRetriever) Retrieve(ctx context.Context, query string) (string, error) {
	r.calls++
	return r.text, r.err
}

func newSession(t *testing.T, engine inference.Engine) (*Session, *transcript.Store) {
	t.Helper()
	store := transcript.NewStore(t.TempDir())
	rec := inference.NewRecorder(engine, store)
	return New("notes", rec, inference.ChatOptions(), nil), store
}

func TestSend_RecordsTurn(t *testing.T) {
	var prompts []string
	engine := inference.EngineFunc(func(ctx context.Context, p string, opts inference.Options) (string, error) {
		prompts = append(prompts, p)
		return "hi there", nil
	})
	s, store := newSession(t, engine)

	reply, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
	assert.Equal(t, []string{"hello"}, prompts)

	tr, err := store.Load("notes")
	require.NoError(t, err)
	require.Len(t, tr.History, 1)
	assert.Equal(t, "hello", tr.History[0].User)
	assert.Equal(t, "hi there", tr.History[0].AI)
	assert.Equal(t, 1, s.Stats().Turns)
}

func TestSend_EmptyInputSkipsInference(t *testing.T) {
	called := false
	engine := inference.EngineFunc(func(ctx context.Context, p string, opts inference.Options) (string, error) {
		called = true
		return "x", nil
	})
	s, store := newSession(t, engine)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := s.Send(context.Background(), input)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.False(t, called)

	tr, err := store.Load("notes")
	require.NoError(t, err)
	assert.Empty(t, tr.History)
}

func TestSend_EngineFailureKeepsTranscript(t *testing.T) {
	fail := false
	engine := inference.EngineFunc(func(ctx context.Context, p string, opts inference.Options) (string, error) {
		if fail {
			return "", errors.New("model crashed")
		}
		return "ok", nil
	})
	s, store := newSession(t, engine)

	_, err := s.Send(context.Background(), "first")
	require.NoError(t, err)

	fail = true
	_, err = s.Send(context.Background(), "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")

	tr, err := store.Load("notes")
	require.NoError(t, err)
	require.Len(t, tr.History, 1)
	assert.Equal(t, "first", tr.History[0].User)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Turns)
	assert.Equal(t, 1, stats.Failures)
}

func TestSendStream_DeliversTokens(t *testing.T) {
	engine := inference.EngineFunc(func(ctx context.Context, p string, opts inference.Options) (string, error) {
		return "streamed", nil
	})
	s, _ := newSession(t, engine)

	var got strings.Builder
	reply, err := s.SendStream(context.Background(), "go", func(tok string) { got.WriteString(tok) })
	require.NoError(t, err)
	assert.Equal(t, "streamed", reply)
	assert.Equal(t, "streamed", got.String())
}

func TestSend_WithRetriever(t *testing.T) {
	var sent string
	engine := inference.EngineFunc(func(ctx context.Context, p string, opts inference.Options) (string, error) {
		sent = p
		return p + " Apples are red.", nil
	})
	s, store := newSession(t, engine)
	r := &staticRetriever{text: "apples are red fruit"}
	s.WithRetriever(r)
	require.True(t, s.Retrieval())

	reply, err := s.Send(context.Background(), "what colour are apples?")
	require.NoError(t, err)
	assert.Equal(t, "Apples are red.", reply)
	assert.Equal(t, prompt.RAG("apples are red fruit", "what colour are apples?"), sent)
	assert.Equal(t, 1, r.calls)

	tr, err := store.Load("notes")
	require.NoError(t, err)
	require.Len(t, tr.History, 1)
	assert.Equal(t, "what colour are apples?", tr.History[0].User)
	assert.Equal(t, "Apples are red.", tr.History[0].AI)
}

func TestSend_RetrievalFailure(t *testing.T) {
	called := false
	engine := inference.EngineFunc(func(ctx context.Context, p string, opts inference.Options) (string, error) {
		called = true
		return "", nil
	})
	s, _ := newSession(t, engine)
	s.WithRetriever(&staticRetriever{err: errors.New("index closed")})

	_, err := s.Send(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval failed")
	assert.False(t, called)
}
