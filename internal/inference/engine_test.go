// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/config"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ollama"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
)

func TestPresets(t *testing.T) {
	chat := ChatOptions()
	assert.Equal(t, 400, chat.MaxTokens)
	assert.Equal(t, []string{"</s>", "###"}, chat.Stop)

	ide := IDEOptions()
	assert.Equal(t, 256, ide.MaxTokens)
	assert.Equal(t, []string{"\n\n"}, ide.Stop)

	rag := RAGOptions()
	assert.Equal(t, 300, rag.MaxTokens)
	assert.True(t, rag.Sample)
	assert.Equal(t, 50, rag.TopK)
	assert.InDelta(t, 0.7, rag.TopP, 1e-9)
	assert.InDelta(t, 1.1, rag.RepeatPenalty, 1e-9)
}

func TestFromPreset_MatchesDefaults(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, ChatOptions(), FromPreset(cfg.Generation.Chat))
	assert.Equal(t, IDEOptions(), FromPreset(cfg.Generation.IDE))
	assert.Equal(t, RAGOptions(), FromPreset(cfg.Generation.RAG))
}

func TestOptions_ToOllama(t *testing.T) {
	greedy := Options{MaxTokens: 10, TopK: 5}.toOllama()
	require.NotNil(t, greedy.Temperature)
	assert.Equal(t, 0.0, *greedy.Temperature)
	assert.Zero(t, greedy.TopK, "top_k is ignored for greedy decoding")

	sampled := Options{Sample: true, TopK: 50, TopP: 0.7}.toOllama()
	assert.Nil(t, sampled.Temperature, "unset temperature keeps the server default")
	assert.Equal(t, 50, sampled.TopK)

	hot := Options{Sample: true, Temperature: 0.9}.toOllama()
	require.NotNil(t, hot.Temperature)
	assert.Equal(t, 0.9, *hot.Temperature)
}

func TestOllamaEngine_Generate(t *testing.T) {
	var req ollama.GenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&req)
		fmt.Fprint(w, `{"response":"four","done":true}`)
	}))
	defer srv.Close()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL, DefaultModel: "llama-test"})
	engine := NewOllamaEngine(client, "", zap.NewNop())

	out, err := engine.Generate(context.Background(), "2+2?", ChatOptions())
	require.NoError(t, err)
	assert.Equal(t, "four", out)
	assert.Equal(t, "llama-test", req.Model)
	assert.True(t, req.Raw)
	require.NotNil(t, req.Options)
	assert.Equal(t, 400, req.Options.NumPredict)

	_, err = engine.Generate(context.Background(), "", ChatOptions())
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestOllamaEngine_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"a","done":false}`)
		fmt.Fprintln(w, `{"response":"b","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer srv.Close()

	engine := NewOllamaEngine(ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL}), "m", nil)

	var pieces []string
	out, err := engine.GenerateStream(context.Background(), "x", ChatOptions(), func(s string) {
		pieces = append(pieces, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "ab", out)
	assert.Equal(t, []string{"a", "b"}, pieces)
}

func TestStream_FallsBackToGenerate(t *testing.T) {
	plain := EngineFunc(func(ctx context.Context, prompt string, opts Options) (string, error) {
		return "whole reply", nil
	})

	var pieces []string
	out, err := Stream(context.Background(), NewSerialized(plain), "x", Options{}, func(s string) {
		pieces = append(pieces, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "whole reply", out)
	assert.Equal(t, []string{"whole reply"}, pieces)
}

func TestSerialized_OneAtATime(t *testing.T) {
	var inFlight, maxInFlight int32
	slow := EngineFunc(func(ctx context.Context, prompt string, opts Options) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return prompt, nil
	})

	s := NewSerialized(slow)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := s.Generate(context.Background(), fmt.Sprint(i), Options{})
			assert.NoError(t, err)
			assert.Equal(t, fmt.Sprint(i), out)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.False(t, s.Busy())
}

func TestSerialized_WaiterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	blocking := EngineFunc(func(ctx context.Context, prompt string, opts Options) (string, error) {
		close(started)
		<-release
		return "done", nil
	})
	s := NewSerialized(blocking)

	go func() { _, _ = s.Generate(context.Background(), "first", Options{}) }()
	<-started
	assert.True(t, s.Busy())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Generate(ctx, "second", Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestRecorder_RecordsOnSuccess(t *testing.T) {
	store := transcript.NewStore(t.TempDir())
	echo := EngineFunc(func(ctx context.Context, prompt string, opts Options) (string, error) {
		return "reply to " + prompt, nil
	})
	rec := NewRecorder(echo, store)

	out, err := rec.Generate(context.Background(), "chat", "hello", ChatOptions())
	require.NoError(t, err)
	assert.Equal(t, "reply to hello", out)

	_, err = rec.GenerateAs(context.Background(), "chat", "question", "PROMPT question", RAGOptions())
	require.NoError(t, err)

	tr, err := store.Load("chat")
	require.NoError(t, err)
	require.Len(t, tr.History, 2)
	assert.Equal(t, "hello", tr.History[0].User)
	assert.Equal(t, "question", tr.History[1].User)
	assert.Equal(t, "reply to PROMPT question", tr.History[1].AI)
}

func TestRecorder_FailureLeavesTranscriptIntact(t *testing.T) {
	store := transcript.NewStore(t.TempDir())
	_, err := store.Append("chat", "before", "ok")
	require.NoError(t, err)

	boom := errors.New("engine exploded")
	failing := EngineFunc(func(ctx context.Context, prompt string, opts Options) (string, error) {
		return "", boom
	})

	_, err = NewRecorder(failing, store).Generate(context.Background(), "chat", "hello", ChatOptions())
	assert.ErrorIs(t, err, boom)

	tr, err := store.Load("chat")
	require.NoError(t, err)
	require.Len(t, tr.History, 1)
	assert.Equal(t, "before", tr.History[0].User)
}
