// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt assembles the fixed prompt templates sent to the model.
//
// Every prompt is context first, then the instruction markers, then the
// user's input. Nothing is truncated here; callers bound the context.
package prompt

import (
	"strings"
	"text/template"
)

// AnswerMarker introduces the model's turn in RAG prompts.
const AnswerMarker = "### Assistant:"

var (
	ragTmpl = template.Must(template.New("rag").Parse(
		"Summarize the following content or explain it in simple terms. \n\n" +
			"{{.Context}}\n\n" +
			"### Human: {{.Input}}\n" +
			"### Assistant:"))

	codeAssistTmpl = template.Must(template.New("code-assist").Parse(`You are a real-time AI coding assistant.
Project: {{.Project}}

Current code around cursor:
{{.CursorContext}}

Full current code:
{{.Code}}

Provide the next lines of code or edits with correct indentation.
Return only code.
`))

	autocompleteTmpl = template.Must(template.New("autocomplete").Parse(`Project: {{.Project}}
Code context around cursor:
{{.CursorContext}}

Suggest next lines of code or completions. Return only code suggestions as separate lines.
`))

	searchTmpl = template.Must(template.New("search").Parse(`Project-wide search query: "{{.Input}}"
File: {{.Filename}}

{{.Code}}

Return the code snippet matching the query with line numbers.
`))

	refactorTmpl = template.Must(template.New("refactor").Parse(`Project: {{.Project}}
File: {{.Filename}}
Instruction: {{.Input}}

{{.Code}}

Suggest refactor or improvements for the code. Return full code with proper indentation.
`))
)

// fields is the data every template draws from.
type fields struct {
	Project       string
	Filename      string
	Input         string
	Context       string
	CursorContext string
	Code          string
}

func render(t *template.Template, f fields) string {
	var sb strings.Builder
	// Executing a parsed template over plain strings into a Builder
	// cannot fail.
	if err := t.Execute(&sb, f); err != nil {
		panic("prompt: " + t.Name() + ": " + err.Error())
	}
	return sb.String()
}

// Chat is the plain chat prompt: the user's input, unchanged.
func Chat(input string) string {
	return input
}

// RAG wraps retrieved context and the user's question in the
// Human/Assistant frame.
func RAG(context, input string) string {
	return render(ragTmpl, fields{Context: context, Input: input})
}

// CodeAssist asks for the code that should follow the cursor.
func CodeAssist(project, cursorContext, code string) string {
	return render(codeAssistTmpl, fields{Project: project, CursorContext: cursorContext, Code: code})
}

// Autocomplete asks for completion candidates, one per line.
func Autocomplete(project, cursorContext string) string {
	return render(autocompleteTmpl, fields{Project: project, CursorContext: cursorContext})
}

// ProjectSearch asks the model to locate query within one file.
func ProjectSearch(query, filename, code string) string {
	return render(searchTmpl, fields{Input: query, Filename: filename, Code: code})
}

// ProjectRefactor asks for a rewritten version of one file.
func ProjectRefactor(project, filename, instruction, code string) string {
	return render(refactorTmpl, fields{Project: project, Filename: filename, Input: instruction, Code: code})
}

// ExtractAnswer returns the text after the last AnswerMarker, trimmed.
// Without a marker the whole text is returned trimmed.
func ExtractAnswer(generated string) string {
	if i := strings.LastIndex(generated, AnswerMarker); i >= 0 {
		generated = generated[i+len(AnswerMarker):]
	}
	return strings.TrimSpace(generated)
}

// SplitSuggestions returns the non-blank lines of generated, in order.
func SplitSuggestions(generated string) []string {
	suggestions := []string{}
	for _, line := range strings.Split(generated, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			suggestions = append(suggestions, line)
		}
	}
	return suggestions
}
