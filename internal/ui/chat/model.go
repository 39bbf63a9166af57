// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ui/styles"
)

// Sender produces the reply to one line of input and records the turn.
type Sender interface {
	Send(ctx context.Context, input string) (string, error)
}

// Options configures the chat screen.
type Options struct {
	Title         string
	Subtitle      string
	AssistantName string
	// History is shown above the first new message.
	History []transcript.Turn
	// Markdown renders replies with glamour.
	Markdown bool
	// Timeout bounds each request; zero means none.
	Timeout time.Duration
}

type role int

const (
	roleUser role = iota
	roleAssistant
	roleError
)

type entry struct {
	role role
	text string
	at   time.Time
}

// Model is the chat screen.
type Model struct {
	sender Sender
	theme  *styles.Theme
	opts   Options
	keys   KeyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	entries    []entry
	waiting    bool
	sentAt     time.Time
	status     string
	statusKind styles.StatusKind

	width, height int
	ready         bool

	cancelMgr *cancelManager
	clipboard func(string) error
}

// New creates a chat screen over sender.
func New(sender Sender, theme *styles.Theme, opts Options) Model {
	if opts.AssistantName == "" {
		opts.AssistantName = "Assistant"
	}
	if opts.Title == "" {
		opts.Title = "llmrag"
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 8192
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = DefaultKeyMap().Newline
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		sender:    sender,
		theme:     theme,
		opts:      opts,
		keys:      DefaultKeyMap(),
		viewport:  viewport.New(80, 20),
		input:     ta,
		spinner:   sp,
		cancelMgr: newCancelManager(),
		clipboard: copyToClipboard,
	}
	for _, turn := range opts.History {
		m.entries = append(m.entries,
			entry{role: roleUser, text: turn.User, at: turn.Timestamp.Time},
			entry{role: roleAssistant, text: turn.AI, at: turn.Timestamp.Time},
		)
	}
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case replyMsg:
		return m.handleReply(msg)

	case copiedMsg:
		if msg.Err != nil {
			m.setStatus(styles.StatusError, "Copy failed: "+msg.Err.Error())
		} else {
			m.setStatus(styles.StatusSuccess, fmt.Sprintf("Copied reply (%d chars)", msg.Chars))
		}
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height

	// header, status and help lines around the input
	chrome := 3 + m.input.Height()
	vpHeight := msg.Height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = vpHeight
	m.input.SetWidth(msg.Width)

	if m.opts.Markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.GlamourStyle()),
			glamour.WithWordWrap(contentWidth(msg.Width)),
		)
		if err == nil {
			m.renderer = r
		}
	}

	m.ready = true
	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.waiting {
			m.cancelMgr.cancel()
			m.setStatus(styles.StatusWarning, "Cancelling...")
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input unless it is blank or a request is in flight.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		m.input.Reset()
		m.setStatus(styles.StatusInfo, "Nothing to send")
		return m, nil
	}
	if m.waiting {
		m.setStatus(styles.StatusWarning, "Still waiting for the previous answer (Esc to cancel)")
		return m, nil
	}

	m.input.Reset()
	m.entries = append(m.entries, entry{role: roleUser, text: text, at: time.Now()})
	m.waiting = true
	m.sentAt = time.Now()
	m.status = ""
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.send(text))
}

// send returns the command that runs one request off the update loop.
func (m Model) send(text string) tea.Cmd {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	m.cancelMgr.set(cancel)

	sender := m.sender
	return func() tea.Msg {
		defer cancel()
		start := time.Now()
		reply, err := sender.Send(ctx, text)
		return replyMsg{Input: text, Reply: reply, Err: err, Duration: time.Since(start)}
	}
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	m.waiting = false
	m.cancelMgr.cancel()

	if msg.Reply != "" {
		m.entries = append(m.entries, entry{role: roleAssistant, text: msg.Reply, at: time.Now()})
	}
	switch {
	case msg.Err == nil:
		m.setStatus(styles.StatusSuccess, fmt.Sprintf("Answered in %s", msg.Duration.Round(100*time.Millisecond)))
	case errors.Is(msg.Err, context.Canceled):
		m.setStatus(styles.StatusWarning, "Cancelled")
	default:
		m.entries = append(m.entries, entry{role: roleError, text: msg.Err.Error(), at: time.Now()})
		m.setStatus(styles.StatusError, "Request failed")
	}
	m.refresh()
	return m, nil
}

func (m Model) copyLastReply() tea.Cmd {
	var last string
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].role == roleAssistant {
			last = m.entries[i].text
			break
		}
	}
	if last == "" {
		return func() tea.Msg { return copiedMsg{Err: errors.New("no reply yet")} }
	}
	write := m.clipboard
	return func() tea.Msg {
		return copiedMsg{Chars: len([]rune(last)), Err: write(last)}
	}
}

func (m *Model) setStatus(kind styles.StatusKind, text string) {
	m.statusKind = kind
	m.status = text
}

// refresh re-renders the transcript and keeps the newest entry in view.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderEntries())
	m.viewport.GotoBottom()
}

// Waiting reports whether a request is in flight.
func (m Model) Waiting() bool {
	return m.waiting
}
