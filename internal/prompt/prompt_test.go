// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"reflect"
	"strings"
	"testing"
)

func TestChat(t *testing.T) {
	if got := Chat("  hi  "); got != "  hi  " {
		t.Errorf("Chat() = %q, want input unchanged", got)
	}
}

func TestRAG(t *testing.T) {
	got := RAG("chunk one\nchunk two", "what is it?")
	want := "Summarize the following content or explain it in simple terms. \n\n" +
		"chunk one\nchunk two\n\n" +
		"### Human: what is it?\n" +
		"### Assistant:"
	if got != want {
		t.Errorf("RAG() =\n%q\nwant\n%q", got, want)
	}
}

func TestRAG_NoEscaping(t *testing.T) {
	got := RAG("<b>&</b>", "x < y?")
	if !strings.Contains(got, "<b>&</b>") || !strings.Contains(got, "x < y?") {
		t.Errorf("RAG() escaped its input: %q", got)
	}
}

func TestCodePrompts_Order(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		order  []string
	}{
		{
			name:   "code assist",
			prompt: CodeAssist("demo", "CURSOR", "FULL"),
			order:  []string{"Project: demo", "CURSOR", "FULL", "Return only code."},
		},
		{
			name:   "autocomplete",
			prompt: Autocomplete("demo", "CTX"),
			order:  []string{"Project: demo", "CTX", "separate lines"},
		},
		{
			name:   "search",
			prompt: ProjectSearch("open files", "main.py", "CODE"),
			order:  []string{`"open files"`, "File: main.py", "CODE", "line numbers"},
		},
		{
			name:   "refactor",
			prompt: ProjectRefactor("demo", "main.py", "add types", "CODE"),
			order:  []string{"Project: demo", "File: main.py", "Instruction: add types", "CODE", "full code"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := 0
			for _, part := range tt.order {
				i := strings.Index(tt.prompt[pos:], part)
				if i < 0 {
					t.Fatalf("%q missing or out of order in:\n%s", part, tt.prompt)
				}
				pos += i + len(part)
			}
		})
	}
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"prompt ### Assistant: the answer ", "the answer"},
		{"a ### Assistant: first ### Assistant: second", "second"},
		{"  no marker here\n", "no marker here"},
		{"### Assistant:", ""},
	}
	for _, tt := range tests {
		if got := ExtractAnswer(tt.in); got != tt.want {
			t.Errorf("ExtractAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitSuggestions(t *testing.T) {
	got := SplitSuggestions("x = 1\n\n   \n    return x\r\n")
	want := []string{"x = 1", "    return x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSuggestions() = %q, want %q", got, want)
	}
	if got := SplitSuggestions(""); got == nil || len(got) != 0 {
		t.Errorf("SplitSuggestions(\"\") = %#v, want empty non-nil", got)
	}
}
