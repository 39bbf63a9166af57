// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
)

// scriptedReader returns its lines in order, then end.
type scriptedReader struct {
	lines []string
	end   error
}

func (r *scriptedReader) Prompt(string) (string, error) {
	if len(r.lines) == 0 {
		if r.end != nil {
			return "", r.end
		}
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

// fakeSender replies through fn and records every input.
type fakeSender struct {
	inputs []string
	fn     func(input string, onToken func(string)) (string, error)
}

func (s *fakeSender) SendStream(ctx context.Context, input string, onToken func(string)) (string, error) {
	s.inputs = append(s.inputs, input)
	return s.fn(input, onToken)
}

func echoSender() *fakeSender {
	return &fakeSender{fn: func(input string, onToken func(string)) (string, error) {
		onToken("echo: ")
		onToken(input)
		return "echo: " + input, nil
	}}
}

func newTestREPL(in lineReader, sender streamSender) (*repl, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &repl{in: in, sender: sender, out: &out, errOut: &errOut, assistant: "Llama3"}, &out, &errOut
}

func TestREPL_SkipsBlankAndStopsOnExit(t *testing.T) {
	sender := echoSender()
	r, out, _ := newTestREPL(&scriptedReader{lines: []string{"  hi  ", "", "\t", "QUIT", "after"}}, sender)

	require.NoError(t, r.run(context.Background()))
	assert.Equal(t, []string{"hi"}, sender.inputs)
	assert.Contains(t, out.String(), "Llama3: echo: hi\n")
}

func TestREPL_EndsOnAbortAndEOF(t *testing.T) {
	for _, end := range []error{liner.ErrPromptAborted, io.EOF} {
		sender := echoSender()
		r, _, _ := newTestREPL(&scriptedReader{lines: []string{"one"}, end: end}, sender)
		require.NoError(t, r.run(context.Background()))
		assert.Equal(t, []string{"one"}, sender.inputs)
	}

	boom := errors.New("terminal gone")
	r, _, _ := newTestREPL(&scriptedReader{end: boom}, echoSender())
	assert.ErrorIs(t, r.run(context.Background()), boom)
}

func TestREPL_ReportsFailuresAndContinues(t *testing.T) {
	calls := 0
	sender := &fakeSender{fn: func(input string, onToken func(string)) (string, error) {
		calls++
		switch calls {
		case 1:
			return "", context.Canceled
		case 2:
			return "", errors.New("engine exploded")
		default:
			return "", nil
		}
	}}
	r, out, errOut := newTestREPL(&scriptedReader{lines: []string{"a", "b", "c"}}, sender)

	require.NoError(t, r.run(context.Background()))
	assert.Len(t, sender.inputs, 3)
	assert.Contains(t, errOut.String(), "[Cancelled]")
	assert.Contains(t, errOut.String(), "engine exploded")
	assert.Contains(t, out.String(), "(empty reply)")
}

func TestREPL_PrintHistory(t *testing.T) {
	r, out, _ := newTestREPL(&scriptedReader{}, echoSender())

	r.printHistory(&transcript.Transcript{Name: "chat", History: []transcript.Turn{}})
	assert.Empty(t, out.String())

	r.printHistory(&transcript.Transcript{Name: "chat", History: []transcript.Turn{{User: "q", AI: "a"}}})
	assert.Contains(t, out.String(), `Resuming "chat" (1 turns)`)
	assert.Contains(t, out.String(), "You: q\nLlama3: a")
}

func TestScanReader(t *testing.T) {
	r := newScanReader(strings.NewReader("first\nsecond"))
	for _, want := range []string{"first", "second"} {
		got, err := r.Prompt("> ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := r.Prompt("> ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestDisplayResponse_PlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	displayResponse(&buf, "# Title\n\n**bold**\n", true, "dark")
	assert.Equal(t, "# Title\n\n**bold**\n", buf.String())
}

func TestExplain(t *testing.T) {
	assert.NoError(t, explain(nil))
	plain := errors.New("plain")
	assert.Same(t, plain, explain(plain))
}
