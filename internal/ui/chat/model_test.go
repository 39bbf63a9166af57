// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ui/styles"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []string
	reply string
	err   error
}

func (f *fakeSender) Send(ctx context.Context, input string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, input)
	return f.reply, f.err
}

func newTestModel(t *testing.T, s Sender, opts Options) Model {
	t.Helper()
	if opts.AssistantName == "" {
		opts.AssistantName = "Llama3"
	}
	m := New(s, styles.NewTheme("dark"), opts)
	m.clipboard = func(string) error { return nil }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func enter(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// collect runs cmd, expanding batches, and returns the messages produced.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findReply(t *testing.T, msgs []tea.Msg) replyMsg {
	t.Helper()
	for _, msg := range msgs {
		if r, ok := msg.(replyMsg); ok {
			return r
		}
	}
	t.Fatalf("no replyMsg among %d messages", len(msgs))
	return replyMsg{}
}

func TestSubmit_BlankInputIgnored(t *testing.T) {
	sender := &fakeSender{reply: "never"}
	m := newTestModel(t, sender, Options{})

	for _, text := range []string{"", "   ", "\n"} {
		var cmd tea.Cmd
		m, cmd = enter(t, m, text)
		assert.Nil(t, cmd)
	}

	assert.Empty(t, sender.calls)
	assert.Empty(t, m.entries)
	assert.False(t, m.Waiting())
	assert.Contains(t, m.View(), "Nothing to send")
}

func TestSubmit_SendsAndShowsReply(t *testing.T) {
	sender := &fakeSender{reply: "Hello from the model"}
	m := newTestModel(t, sender, Options{})

	m, cmd := enter(t, m, "  hello  ")
	require.NotNil(t, cmd)
	assert.True(t, m.Waiting())
	assert.Empty(t, m.input.Value())

	reply := findReply(t, collect(cmd))
	assert.Equal(t, []string{"hello"}, sender.calls)
	assert.Equal(t, "hello", reply.Input)

	m, _ = update(t, m, reply)
	assert.False(t, m.Waiting())

	view := m.View()
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "Hello from the model")
	assert.Contains(t, view, "Llama3")
}

func TestSubmit_RejectedWhileInFlight(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	m := newTestModel(t, sender, Options{})

	m, first := enter(t, m, "first")
	require.NotNil(t, first)

	m, second := enter(t, m, "second")
	assert.Nil(t, second)
	assert.Equal(t, "second", m.input.Value())
	assert.Contains(t, m.View(), "Still waiting")

	collect(first)
	assert.Equal(t, []string{"first"}, sender.calls)
}

func TestReply_ErrorShownInline(t *testing.T) {
	m := newTestModel(t, &fakeSender{}, Options{})
	m, _ = enter(t, m, "question")

	m, _ = update(t, m, replyMsg{Input: "question", Err: errors.New("connection refused")})

	assert.False(t, m.Waiting())
	assert.Contains(t, m.View(), "connection refused")
	for _, e := range m.entries {
		assert.NotEqual(t, roleAssistant, e.role)
	}
}

func TestReply_CancelledIsNotAnError(t *testing.T) {
	m := newTestModel(t, &fakeSender{}, Options{})
	m, _ = enter(t, m, "question")

	m, _ = update(t, m, replyMsg{Input: "question", Err: context.Canceled})

	assert.Contains(t, m.View(), "Cancelled")
	for _, e := range m.entries {
		assert.NotEqual(t, roleError, e.role)
	}
}

func TestHistoryIsShown(t *testing.T) {
	history := []transcript.Turn{
		{User: "earlier question", AI: "earlier answer"},
	}
	m := newTestModel(t, &fakeSender{}, Options{History: history})

	view := m.View()
	assert.Contains(t, view, "earlier question")
	assert.Contains(t, view, "earlier answer")
}

func TestCopyLastReply(t *testing.T) {
	var copied string
	m := newTestModel(t, &fakeSender{}, Options{
		History: []transcript.Turn{{User: "q", AI: "the answer"}},
	})
	m.clipboard = func(s string) error {
		copied = s
		return nil
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])

	assert.Equal(t, "the answer", copied)
	assert.Contains(t, m.View(), "Copied reply")
}

func TestCopyWithoutReply(t *testing.T) {
	m := newTestModel(t, &fakeSender{}, Options{})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])
	assert.True(t, strings.Contains(m.View(), "no reply yet"))
}
