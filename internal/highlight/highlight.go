// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package highlight classifies and colors source code with chroma.
package highlight

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// TOKEN CLASSIFICATION
// =============================================================================

// Kind is a highlight class.
type Kind int

const (
	Keyword Kind = iota + 1
	String
	Comment
	Number
	Name
)

func (k Kind) String() string {
	switch k {
	case Keyword:
		return "keyword"
	case String:
		return "string"
	case Comment:
		return "comment"
	case Number:
		return "number"
	case Name:
		return "name"
	default:
		return "other"
	}
}

// Span is a highlighted byte range [Start, End) of the source.
type Span struct {
	Kind  Kind
	Start int
	End   int
}

// classify maps a chroma token type to a Kind, or 0 for unhighlighted text.
func classify(t chroma.TokenType) Kind {
	switch {
	case t.InCategory(chroma.Keyword), t == chroma.OperatorWord:
		return Keyword
	case t.InSubCategory(chroma.LiteralString):
		return String
	case t.InCategory(chroma.Comment):
		return Comment
	case t.InSubCategory(chroma.LiteralNumber):
		return Number
	case t == chroma.NameFunction, t == chroma.NameClass, t == chroma.NameBuiltin, t == chroma.NameDecorator:
		return Name
	default:
		return 0
	}
}

// lexerFor returns a coalescing lexer for lang, falling back to plain text.
func lexerFor(lang string) chroma.Lexer {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// Tokens returns the highlighted spans of source, in order. Adjacent spans
// of the same kind are merged.
func Tokens(lang, source string) []Span {
	iterator, err := lexerFor(lang).Tokenise(nil, source)
	if err != nil {
		return nil
	}

	var spans []Span
	offset := 0
	for _, tok := range iterator.Tokens() {
		start := offset
		offset += len(tok.Value)
		end := offset
		if end > len(source) {
			end = len(source)
		}
		if start >= end {
			continue
		}

		kind := classify(tok.Type)
		if kind == 0 {
			continue
		}
		if n := len(spans); n > 0 && spans[n-1].Kind == kind && spans[n-1].End == start {
			spans[n-1].End = end
			continue
		}
		spans = append(spans, Span{Kind: kind, Start: start, End: end})
	}
	return spans
}

// LanguageFor returns the chroma language name for filename, or
// "plaintext".
func LanguageFor(filename string) string {
	if lexer := lexers.Match(filepath.Base(filename)); lexer != nil {
		return lexer.Config().Name
	}
	return "plaintext"
}

// =============================================================================
// RENDERING
// =============================================================================

type renderOptions struct {
	lineNumbers bool
	style       string
	color       bool
}

// Option configures Render.
type Option func(*renderOptions)

// WithLineNumbers adds a right-aligned line number gutter.
func WithLineNumbers() Option {
	return func(o *renderOptions) { o.lineNumbers = true }
}

// WithStyle selects a chroma style by name (default "monokai").
func WithStyle(name string) Option {
	return func(o *renderOptions) { o.style = name }
}

// WithoutColor disables ANSI coloring.
func WithoutColor() Option {
	return func(o *renderOptions) { o.color = false }
}

var gutterStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}).
	Align(lipgloss.Right).
	MarginRight(1)

// Render returns source colored for a 256-color terminal. Highlighting
// failures return the source unchanged.
func Render(lang, source string, opts ...Option) string {
	o := renderOptions{style: "monokai", color: true}
	for _, opt := range opts {
		opt(&o)
	}

	out := source
	if o.color {
		out = colorize(lang, source, o.style)
	}
	if !o.lineNumbers {
		return out
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	// a colored final newline leaves a line holding only its reset
	if n := len(lines); n > 1 && lipgloss.Width(lines[n-1]) == 0 && strings.HasSuffix(source, "\n") {
		lines = lines[:n-1]
	}
	width := len(fmt.Sprint(len(lines)))
	if width < 3 {
		width = 3
	}
	gutter := gutterStyle.Width(width)

	// A token spanning lines is colored once and reset at its end, so the
	// attributes still open at a line break are closed before the next
	// gutter and reopened after it.
	var sb strings.Builder
	active := ""
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(gutter.Render(fmt.Sprint(i + 1)))
		sb.WriteString(active)
		sb.WriteString(line)
		active = openSGR(active, line)
		if active != "" {
			sb.WriteString(sgrReset)
		}
	}
	return sb.String()
}

const sgrReset = "\x1b[0m"

// openSGR returns the SGR sequences still in effect after line, given those
// in effect before it. A reset clears everything before it.
func openSGR(active, line string) string {
	for {
		start := strings.Index(line, "\x1b[")
		if start < 0 {
			return active
		}
		end := strings.IndexByte(line[start:], 'm')
		if end < 0 {
			return active
		}
		seq := line[start : start+end+1]
		if params := seq[2 : len(seq)-1]; params == "" || params == "0" {
			active = ""
		} else if strings.Trim(params, "0123456789;") == "" {
			active += seq
		}
		line = line[start+end+1:]
	}
}

func colorize(lang, source, styleName string) string {
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexerFor(lang).Tokenise(nil, source)
	if err != nil {
		return source
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source
	}
	return buf.String()
}
