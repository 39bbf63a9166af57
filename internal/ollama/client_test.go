// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// TEST SERVER
// =============================================================================

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{
		BaseURL:      srv.URL + "/",
		Timeout:      5 * time.Second,
		DefaultModel: "llama-test",
	})
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClientWithConfig_FillsDefaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{BaseURL: "http://example:11434/"})
	cfg := c.Config()

	if cfg.BaseURL != "http://example:11434" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", cfg.Timeout)
	}
	if cfg.EmbedModel != "all-minilm" {
		t.Errorf("EmbedModel = %q, want all-minilm", cfg.EmbedModel)
	}
	if NewClientWithConfig(nil).Model() != "llama3.1:8b" {
		t.Error("nil config should use defaults")
	}
}

// =============================================================================
// HEALTH AND MODELS
// =============================================================================

func TestCheckRunning(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Ollama is running")
	})
	if err := c.CheckRunning(context.Background()); err != nil {
		t.Fatalf("CheckRunning() error = %v", err)
	}
}

func TestCheckRunning_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url, Timeout: time.Second})
	err := c.CheckRunning(context.Background())
	if !IsNotRunning(err) {
		t.Fatalf("CheckRunning() error = %v, want not running", err)
	}
}

func TestListModels(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		fmt.Fprint(w, `{"models":[{"name":"llama3.1:8b","size":4920000000},{"name":"all-minilm:latest","size":45000000}]}`)
	})

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "llama3.1:8b" {
		t.Fatalf("ListModels() = %+v", models)
	}
	if got := models[0].FormatSize(); got != "4.6 GB" {
		t.Errorf("FormatSize() = %q, want 4.6 GB", got)
	}

	ok, err := c.ModelExists(context.Background(), "all-minilm")
	if err != nil || !ok {
		t.Errorf("ModelExists(all-minilm) = %v, %v; want true", ok, err)
	}
	ok, _ = c.ModelExists(context.Background(), "mistral")
	if ok {
		t.Error("ModelExists(mistral) = true, want false")
	}
}

// =============================================================================
// GENERATE
// =============================================================================

func TestGenerate_SendsOptions(t *testing.T) {
	var got GenerateRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"model":"llama-test","response":"Hello there","done":true,"eval_count":10,"eval_duration":2000000000}`)
	})

	temp := 0.0
	resp, err := c.Generate(context.Background(), &GenerateRequest{
		Prompt:  "Hi",
		Stream:  true,
		Options: &Options{NumPredict: 400, Stop: []string{"</s>", "###"}, Temperature: &temp},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Response != "Hello there" {
		t.Errorf("Response = %q", resp.Response)
	}
	if resp.TokensPerSecond() != 5 {
		t.Errorf("TokensPerSecond() = %v, want 5", resp.TokensPerSecond())
	}
	if got.Model != "llama-test" {
		t.Errorf("Model = %q, want default model", got.Model)
	}
	if got.Stream {
		t.Error("Generate must send stream=false")
	}
	if got.Options == nil || got.Options.NumPredict != 400 || len(got.Options.Stop) != 2 {
		t.Errorf("Options = %+v", got.Options)
	}
	if got.Options.Temperature == nil || *got.Options.Temperature != 0 {
		t.Error("explicit zero temperature must be sent")
	}
}

func TestGenerate_ModelNotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'nope' not found, try pulling it first"}`)
	})

	_, err := c.Generate(context.Background(), &GenerateRequest{Model: "nope", Prompt: "x"})
	if !IsModelNotFound(err) {
		t.Fatalf("error = %v, want model not found", err)
	}
	if !strings.Contains(err.Error(), "try pulling") {
		t.Errorf("error should carry server message, got %q", err.Error())
	}
}

func TestGenerate_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Generate(context.Background(), &GenerateRequest{Prompt: "x"})
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Type != ErrTypeInvalidResponse {
		t.Fatalf("error = %v, want invalid response ClientError", err)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Generate(ctx, &GenerateRequest{Prompt: "x"})
	if !IsTimeout(err) {
		t.Fatalf("error = %v, want timeout", err)
	}
}

func TestGenerateStream(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("GenerateStream must send stream=true")
		}
		fmt.Fprintln(w, `{"model":"llama-test","response":"Hel","done":false}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `not json`)
		fmt.Fprintln(w, `{"model":"llama-test","response":"lo","done":false}`)
		fmt.Fprint(w, `{"model":"llama-test","response":"","done":true,"eval_count":2}`)
	})

	var chunks []StreamChunk
	text, err := c.GenerateStream(context.Background(), &GenerateRequest{Prompt: "x"}, func(ch StreamChunk) {
		chunks = append(chunks, ch)
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if text != "Hello" {
		t.Errorf("text = %q, want Hello", text)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if !last.Done || last.CompletionTokens != 2 {
		t.Errorf("final chunk = %+v", last)
	}
}

func TestGenerateStream_ErrorLine(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"par","done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	})

	text, err := c.GenerateStream(context.Background(), &GenerateRequest{Prompt: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "out of memory") {
		t.Fatalf("error = %v, want out of memory", err)
	}
	if text != "par" {
		t.Errorf("partial text = %q, want par", text)
	}
}

// =============================================================================
// EMBEDDINGS
// =============================================================================

func TestEmbed(t *testing.T) {
	var got EmbeddingRequest
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"embedding":[0.1,0.2,0.3]}`)
	})

	vec, err := c.Embed(context.Background(), "", "some text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("len(vec) = %d, want 3", len(vec))
	}
	if got.Model != "all-minilm" || got.Prompt != "some text" {
		t.Errorf("request = %+v", got)
	}
}

func TestEmbed_Empty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"embedding":[]}`)
	})
	if _, err := c.Embed(context.Background(), "m", "x"); err == nil {
		t.Fatal("expected error for empty embedding")
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClientError_Is(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("generate: %w", &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: cause})

	if !IsNotRunning(err) {
		t.Error("IsNotRunning should match wrapped error of the same type")
	}
	if IsTimeout(err) {
		t.Error("IsTimeout should not match a not-running error")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if got := err.Error(); got != "generate: Ollama is not running: dial tcp: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}
