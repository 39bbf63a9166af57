// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader parses the newline-delimited JSON of a streaming
// /api/generate response.
type StreamReader struct {
	reader      *bufio.Reader
	accumulator strings.Builder
	chunks      int
	model       string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{reader: bufio.NewReader(r)}
}

// Process reads the stream and calls callback for each chunk. It returns
// when the final chunk arrives, the body ends, or ctx is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		if err := ctx.Err(); err != nil {
			return transportError(err)
		}

		chunk, err := s.readChunk()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if chunk == nil {
			continue
		}
		if callback != nil {
			callback(*chunk)
		}
		if chunk.Done {
			return nil
		}
	}
}

// readChunk reads and parses one line. Blank and malformed lines yield a
// nil chunk.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if len(line) == 0 {
			return nil, err
		}
		// Last line without a trailing newline.
	}

	line = []byte(strings.TrimSpace(string(line)))
	if len(line) == 0 {
		return nil, nil
	}

	var response GenerateResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, nil
	}
	if response.Error != "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: response.Error}
	}

	if response.Model != "" {
		s.model = response.Model
	}
	if response.Response != "" {
		s.accumulator.WriteString(response.Response)
		s.chunks++
	}

	chunk := &StreamChunk{
		Content: response.Response,
		Done:    response.Done,
		Model:   s.model,
	}
	if response.Done {
		chunk.DoneReason = response.DoneReason
		chunk.TotalDuration = time.Duration(response.TotalDuration)
		chunk.PromptTokens = response.PromptEvalCount
		chunk.CompletionTokens = response.EvalCount
	}
	return chunk, nil
}

// Accumulated returns all content received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// Chunks returns the number of non-empty chunks received.
func (s *StreamReader) Chunks() int {
	return s.chunks
}

// Model returns the model name reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}
