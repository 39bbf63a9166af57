// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ide provides the terminal AI IDE: a project file list, an editor
// with line numbers and a highlighted preview, an output console, and
// model-backed suggestion, autocomplete, search and refactor.
package ide

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/assist"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/logging"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/project"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/runner"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ui/styles"
)

// Options configures the IDE.
type Options struct {
	// Project is opened at start; empty asks for a name.
	Project string
	// Autocomplete enables suggestions while typing, at most one request
	// per AutocompleteInterval.
	Autocomplete         bool
	AutocompleteInterval time.Duration
	// Timeout bounds each model call; zero means none.
	Timeout time.Duration
	// WatchDebounce enables refreshing the file list on outside changes.
	WatchDebounce time.Duration
	Logger        *zap.Logger
}

type focus int

const (
	focusFiles focus = iota
	focusEditor
)

type promptKind int

const (
	promptNone promptKind = iota
	promptProject
	promptNewFile
	promptCursor
	promptSearch
	promptRefactor
)

// maxPopupItems is the number of autocomplete suggestions shown.
const maxPopupItems = 6

// watchState holds the cancel function of the project watch. It is shared
// by pointer across model copies.
type watchState struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (w *watchState) set(cancel context.CancelFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cancel = cancel
}

func (w *watchState) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

// Model is the IDE screen.
type Model struct {
	ws        *project.Workspace
	runner    *runner.Runner
	assistant *assist.Assistant
	throttle  *assist.Throttle
	theme     *styles.Theme
	opts      Options
	keys      KeyMap
	logger    *zap.Logger

	project  string
	files    []string
	selected int
	current  string
	saved    string // content as last loaded or saved

	editor  textarea.Model
	console viewport.Model
	prompt  textinput.Model
	spinner spinner.Model

	focus      focus
	preview    bool
	promptKind promptKind
	pendingCtx string // cursor context entered for a suggestion

	busy        string // operation in flight, "" when idle
	autoSeq     int
	autoBusy    bool
	suggestions []string
	popupIndex  int

	status     string
	statusKind styles.StatusKind
	statusID   int

	width, height int
	ready         bool

	watch     *watchState
	clipboard func(string) error
}

// New creates the IDE over a workspace, a runner and an assistant.
func New(ws *project.Workspace, r *runner.Runner, a *assist.Assistant, theme *styles.Theme, opts Options) Model {
	if opts.AutocompleteInterval <= 0 {
		opts.AutocompleteInterval = 750 * time.Millisecond
	}

	ed := textarea.New()
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.MaxWidth = 0
	ed.Placeholder = "Open or create a file"

	pr := textinput.New()
	pr.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		ws:        ws,
		runner:    r,
		assistant: a,
		throttle:  assist.NewThrottle(opts.AutocompleteInterval),
		theme:     theme,
		opts:      opts,
		keys:      DefaultKeyMap(),
		logger:    logging.OrNop(opts.Logger),
		project:   strings.TrimSpace(opts.Project),
		editor:    ed,
		console:   viewport.New(80, 8),
		prompt:    pr,
		spinner:   sp,
		watch:     &watchState{},
		clipboard: copyToClipboard,
	}
	m.console.SetContent("# Output console")
	if m.project == "" {
		m.openPrompt(promptProject)
	}
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init loads the project given at start.
func (m Model) Init() tea.Cmd {
	if m.project == "" {
		return textinput.Blink
	}
	return tea.Batch(m.loadFiles(), m.watchProject())
}

// Close stops the project watch.
func (m Model) Close() {
	m.watch.stop()
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case filesMsg:
		return m.handleFiles(msg)

	case createdMsg:
		return m.handleCreated(msg)

	case openedMsg:
		if msg.Err != nil {
			return m.fail("Open failed", msg.Err)
		}
		m.current = msg.File
		m.saved = msg.Content
		m.editor.SetValue(msg.Content)
		m.setFocus(focusEditor)
		m.hidePopup()
		return m.notify(styles.StatusInfo, "Opened "+msg.File)

	case savedMsg:
		m.busy = ""
		if msg.Err != nil {
			return m.fail("Save failed", msg.Err)
		}
		if msg.File == m.current {
			m.saved = m.editor.Value()
		}
		return m.notify(styles.StatusSuccess, msg.File+" saved")

	case runMsg:
		m.busy = ""
		if msg.File == m.current {
			m.saved = m.editor.Value()
		}
		m.setConsole(msg.Output)
		return m.notify(styles.StatusInfo, "Ran "+msg.File)

	case suggestMsg:
		m.busy = ""
		if msg.Err != nil {
			return m.fail("Suggestion failed", msg.Err)
		}
		m.editor.SetValue(m.editor.Value() + "\n" + msg.Text)
		return m.notify(styles.StatusSuccess, "Suggestion inserted")

	case autocompleteMsg:
		return m.handleAutocomplete(msg)

	case searchMsg:
		m.busy = ""
		if msg.Err != nil {
			return m.fail("Search failed", msg.Err)
		}
		m.setConsole(assist.FormatResults(msg.Results))
		return m.notify(styles.StatusSuccess, fmt.Sprintf("Search for %q covered %d files", msg.Query, len(msg.Results)))

	case refactorMsg:
		return m.handleRefactor(msg)

	case changeMsg:
		next := waitForChange(msg.ch)
		if msg.Change.Project != m.project {
			return m, next
		}
		return m, tea.Batch(m.loadFiles(), next)

	case copiedMsg:
		if msg.Err != nil {
			return m.fail("Copy failed", msg.Err)
		}
		return m.notify(styles.StatusSuccess, fmt.Sprintf("Copied %d chars to clipboard", msg.Chars))

	case clearStatusMsg:
		if msg.ID == m.statusID {
			m.status = ""
		}
		return m, nil
	}

	return m.forward(msg)
}

// forward passes msg to the focused input widget.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.promptKind != promptNone:
		m.prompt, cmd = m.prompt.Update(msg)
	case m.focus == focusEditor && !m.preview:
		m.editor, cmd = m.editor.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.watch.stop()
		return m, tea.Quit
	}
	if m.promptKind != promptNone {
		return m.handlePromptKey(msg)
	}
	if len(m.suggestions) > 0 {
		if model, cmd, handled := m.handlePopupKey(msg); handled {
			return model, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Open):
		m.openPrompt(promptProject)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.NewFile):
		return m.requireProject(promptNewFile)
	case key.Matches(msg, m.keys.Search):
		return m.requireProject(promptSearch)
	case key.Matches(msg, m.keys.Refactor):
		return m.requireProject(promptRefactor)
	case key.Matches(msg, m.keys.Suggest):
		if m.current == "" {
			return m.notify(styles.StatusWarning, "Open a file first")
		}
		m.openPrompt(promptCursor)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Save):
		return m.startSave()
	case key.Matches(msg, m.keys.Run):
		return m.startRun()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyText(m.editor.Value())
	case key.Matches(msg, m.keys.Preview):
		m.preview = !m.preview
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusFiles {
			m.setFocus(focusEditor)
		} else {
			m.setFocus(focusFiles)
		}
		return m, nil
	}

	if m.focus == focusFiles {
		return m.handleFilesKey(msg)
	}
	if m.preview {
		return m, nil
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if m.editor.Value() != before {
		auto := m.maybeAutocomplete()
		return m, tea.Batch(auto, cmd)
	}
	return m, cmd
}

func (m Model) handleFilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.files)-1 {
			m.selected++
		}
	case msg.Type == tea.KeyEnter:
		if len(m.files) > 0 {
			return m, m.openFile(m.files[m.selected])
		}
	}
	return m, nil
}

func (m Model) handlePopupKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.popupIndex > 0 {
			m.popupIndex--
		}
		return m, nil, true
	case key.Matches(msg, m.keys.Down):
		if m.popupIndex < len(m.popupItems())-1 {
			m.popupIndex++
		}
		return m, nil, true
	case key.Matches(msg, m.keys.Accept):
		m.editor.InsertString(m.popupItems()[m.popupIndex])
		m.hidePopup()
		return m, nil, true
	case key.Matches(msg, m.keys.Dismiss):
		m.hidePopup()
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.prompt.Value())
		kind := m.promptKind
		m.closePrompt()
		return m.submitPrompt(kind, value)
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// submitPrompt validates the entered value before any work is started.
func (m Model) submitPrompt(kind promptKind, value string) (tea.Model, tea.Cmd) {
	switch kind {
	case promptProject:
		if value == "" {
			m.openPrompt(promptProject)
			return m.notify(styles.StatusWarning, "Enter a project name")
		}
		if _, err := m.ws.Path(value); err != nil {
			m.openPrompt(promptProject)
			return m.fail("Invalid project name", err)
		}
		m.project = value
		m.current, m.saved = "", ""
		m.editor.SetValue("")
		m.hidePopup()
		return m, tea.Batch(m.loadFiles(), m.watchProject())

	case promptNewFile:
		if value == "" {
			return m.notify(styles.StatusWarning, "Enter a file name")
		}
		if !m.ws.Matches(value) {
			return m.notify(styles.StatusWarning, fmt.Sprintf("%s does not have a project extension (%s)", value, strings.Join(m.ws.Extensions, ", ")))
		}
		if m.busy != "" {
			return m.notify(styles.StatusWarning, fmt.Sprintf("Still running %s", m.busy))
		}
		m.busy = "create"
		return m, m.createFile(value)

	case promptCursor:
		code := m.editor.Value()
		return m.startAI("suggest", func() tea.Cmd { return m.suggest(code, value) })

	case promptSearch:
		if value == "" {
			return m.notify(styles.StatusWarning, "Enter a search query")
		}
		return m.startAI("search", func() tea.Cmd { return m.search(value) })

	case promptRefactor:
		if value == "" {
			return m.notify(styles.StatusWarning, "Enter a refactor instruction")
		}
		return m.startAI("refactor", func() tea.Cmd { return m.refactor(value) })
	}
	return m, nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

func (m Model) requireProject(kind promptKind) (tea.Model, tea.Cmd) {
	if m.project == "" {
		m.openPrompt(promptProject)
		return m.notify(styles.StatusWarning, "Enter a project name")
	}
	m.openPrompt(kind)
	return m, textinput.Blink
}

// startAI runs the command built by build unless another operation is in
// flight.
func (m Model) startAI(op string, build func() tea.Cmd) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m.notify(styles.StatusWarning, fmt.Sprintf("Still running %s", m.busy))
	}
	m.busy = op
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, build())
}

func (m Model) startSave() (tea.Model, tea.Cmd) {
	if m.current == "" {
		return m.notify(styles.StatusWarning, "Open a file first")
	}
	if m.busy != "" {
		return m.notify(styles.StatusWarning, fmt.Sprintf("Still running %s", m.busy))
	}
	m.busy = "save"
	return m, m.saveFile(m.current, m.editor.Value())
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	if m.current == "" {
		return m.notify(styles.StatusWarning, "Open a file first")
	}
	if m.busy != "" {
		return m.notify(styles.StatusWarning, fmt.Sprintf("Still running %s", m.busy))
	}
	m.busy = "run"
	m.setConsole("Running " + m.current + "...")
	return m, tea.Batch(m.spinner.Tick, m.runFile(m.current, m.editor.Value()))
}

// maybeAutocomplete requests suggestions for the text up to the cursor
// line, dropping requests that arrive faster than the throttle allows.
func (m *Model) maybeAutocomplete() tea.Cmd {
	if !m.opts.Autocomplete || m.project == "" || m.autoBusy {
		return nil
	}
	if !m.throttle.Allow() {
		return nil
	}
	lines := strings.Split(m.editor.Value(), "\n")
	row := m.editor.Line()
	if row >= len(lines) {
		row = len(lines) - 1
	}
	codeContext := strings.Join(lines[:row+1], "\n")
	if strings.TrimSpace(codeContext) == "" {
		return nil
	}
	m.autoSeq++
	m.autoBusy = true
	return m.autocomplete(m.autoSeq, codeContext)
}

func (m Model) handleAutocomplete(msg autocompleteMsg) (tea.Model, tea.Cmd) {
	m.autoBusy = false
	if msg.Seq != m.autoSeq {
		return m, nil
	}
	if msg.Err != nil {
		m.logger.Debug("autocomplete failed", zap.Error(msg.Err))
		return m, nil
	}
	m.suggestions = msg.Suggestions
	m.popupIndex = 0
	return m, nil
}

// handleFiles shows a refreshed file list. Refreshes also arrive from the
// project watch while an operation runs, so busy is left alone.
func (m Model) handleFiles(msg filesMsg) (tea.Model, tea.Cmd) {
	if msg.Project != m.project {
		return m, nil
	}
	if msg.Err != nil {
		return m.fail("Listing files failed", msg.Err)
	}
	m.setFiles(msg.Files)
	if m.current == "" {
		m.setFocus(focusFiles)
	}
	return m, nil
}

func (m Model) handleCreated(msg createdMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if msg.Err != nil {
		return m.fail("Create failed", msg.Err)
	}
	if msg.Project != m.project {
		return m, nil
	}
	m.setFiles(msg.Files)
	m.selectFile(msg.File)
	return m, m.openFile(msg.File)
}

func (m Model) handleRefactor(msg refactorMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	if msg.Err != nil && len(msg.Results) == 0 {
		return m.fail("Refactor failed", msg.Err)
	}
	var cmd tea.Cmd
	if _, ok := msg.Results[m.current]; ok {
		cmd = m.openFile(m.current)
	}
	m.setConsole(assist.FormatResults(msg.Results))
	if msg.Err != nil {
		model, _ := m.fail(fmt.Sprintf("Refactor stopped after %d files", len(msg.Results)), msg.Err)
		return model, cmd
	}
	model, clear := m.notify(styles.StatusSuccess, fmt.Sprintf("Refactor applied to %d files", len(msg.Results)))
	return model, tea.Batch(cmd, clear)
}

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m *Model) openPrompt(kind promptKind) {
	m.promptKind = kind
	m.prompt.Reset()
	switch kind {
	case promptProject:
		m.prompt.Prompt = "Project name: "
	case promptNewFile:
		m.prompt.Prompt = "New file name: "
	case promptCursor:
		m.prompt.Prompt = "Cursor context (optional): "
	case promptSearch:
		m.prompt.Prompt = "Search query: "
	case promptRefactor:
		m.prompt.Prompt = "Refactor instruction: "
	}
	m.editor.Blur()
	m.prompt.Focus()
}

func (m *Model) closePrompt() {
	m.promptKind = promptNone
	m.prompt.Blur()
	m.setFocus(m.focus)
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusEditor && m.promptKind == promptNone {
		m.editor.Focus()
	} else {
		m.editor.Blur()
	}
}

func (m *Model) setFiles(files []string) {
	m.files = files
	if m.selected >= len(m.files) {
		m.selected = max(len(m.files)-1, 0)
	}
}

func (m *Model) selectFile(name string) {
	for i, f := range m.files {
		if f == name {
			m.selected = i
			return
		}
	}
}

func (m *Model) hidePopup() {
	m.suggestions = nil
	m.popupIndex = 0
}

func (m Model) popupItems() []string {
	if len(m.suggestions) > maxPopupItems {
		return m.suggestions[:maxPopupItems]
	}
	return m.suggestions
}

func (m *Model) setConsole(text string) {
	m.console.SetContent(text)
	m.console.GotoTop()
}

// notify shows a transient status line.
func (m Model) notify(kind styles.StatusKind, text string) (tea.Model, tea.Cmd) {
	m.statusID++
	m.statusKind = kind
	m.status = text
	return m, clearStatusAfter(5*time.Second, m.statusID)
}

// fail shows err in the error style until the next status.
func (m Model) fail(what string, err error) (tea.Model, tea.Cmd) {
	m.statusID++
	m.statusKind = styles.StatusError
	m.status = what + ": " + err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		m.status = what + ": timed out"
	}
	m.logger.Warn(strings.ToLower(what), zap.String("project", m.project), zap.Error(err))
	return m, nil
}

// Dirty reports whether the editor has unsaved changes.
func (m Model) Dirty() bool {
	return m.current != "" && m.editor.Value() != m.saved
}
