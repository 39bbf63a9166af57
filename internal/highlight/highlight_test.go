// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package highlight

import (
	"strings"
	"testing"
)

func spansByKind(source string, spans []Span) map[Kind][]string {
	out := make(map[Kind][]string)
	for _, s := range spans {
		out[s.Kind] = append(out[s.Kind], source[s.Start:s.End])
	}
	return out
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if strings.TrimSpace(s) == want {
			return true
		}
	}
	return false
}

func TestTokens_Python(t *testing.T) {
	src := "def greet(name):\n    # say hi\n    return 'hi ' + name * 2\n"
	got := spansByKind(src, Tokens("python", src))

	tests := []struct {
		kind Kind
		text string
	}{
		{Keyword, "def"},
		{Keyword, "return"},
		{Comment, "# say hi"},
		{String, "'hi '"},
		{Number, "2"},
		{Name, "greet"},
	}
	for _, tt := range tests {
		if !contains(got[tt.kind], tt.text) {
			t.Errorf("%s spans = %q, want %q among them", tt.kind, got[tt.kind], tt.text)
		}
	}
}

func TestTokens_SpansInBounds(t *testing.T) {
	src := "x = \"unterminated"
	for _, s := range Tokens("python", src) {
		if s.Start < 0 || s.End > len(src) || s.Start >= s.End {
			t.Errorf("span %+v out of bounds for %d bytes", s, len(src))
		}
	}
}

func TestTokens_UnknownLanguage(t *testing.T) {
	spans := Tokens("no-such-language", "def x")
	if len(spans) != 0 {
		t.Errorf("plain text should have no highlighted spans, got %+v", spans)
	}
}

func TestLanguageFor(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"main.py", "Python"},
		{"main.go", "Go"},
		{"run.sh", "Bash"},
		{"notes.unknownext", "plaintext"},
	}
	for _, tt := range tests {
		if got := LanguageFor(tt.file); got != tt.want {
			t.Errorf("LanguageFor(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	src := "print(1)\nprint(2)\n"

	colored := Render("python", src)
	if !strings.Contains(colored, "\x1b[") {
		t.Errorf("Render() has no ANSI escapes: %q", colored)
	}

	plain := Render("python", src, WithoutColor(), WithLineNumbers())
	lines := strings.Split(plain, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), plain)
	}
	if !strings.HasPrefix(lines[0], "  1") || !strings.HasSuffix(lines[0], "print(1)") {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  2") || !strings.HasSuffix(lines[1], "print(2)") {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestRender_MultiLineTokenKeepsColorAfterGutter(t *testing.T) {
	src := "x = \"\"\"first\nsecond\"\"\"\ny = 1\n"

	lines := strings.Split(Render("python", src, WithLineNumbers()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), lines)
	}
	if !strings.HasSuffix(lines[0], sgrReset) {
		t.Errorf("line 1 should close its open color before the next gutter: %q", lines[0])
	}
	at := strings.Index(lines[1], "second")
	if at < 0 {
		t.Fatalf("line 2 = %q", lines[1])
	}
	if openSGR("", lines[1][:at]) == "" {
		t.Errorf("line 2 should reopen the string color after the gutter: %q", lines[1])
	}
}

func TestOpenSGR(t *testing.T) {
	tests := []struct {
		active, line, want string
	}{
		{"", "plain", ""},
		{"", "\x1b[38;5;186m\"\"\"doc", "\x1b[38;5;186m"},
		{"\x1b[1m", "\x1b[38;5;186mtext", "\x1b[1m\x1b[38;5;186m"},
		{"\x1b[38;5;186m", "end\"\"\"\x1b[0m x", ""},
		{"", "\x1b[38;5;81mdef\x1b[0m \x1b[38;5;148mf", "\x1b[38;5;148m"},
		{"\x1b[1m", "\x1b[m", ""},
	}
	for _, tt := range tests {
		if got := openSGR(tt.active, tt.line); got != tt.want {
			t.Errorf("openSGR(%q, %q) = %q, want %q", tt.active, tt.line, got, tt.want)
		}
	}
}
