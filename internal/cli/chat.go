// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/config"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/inference"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ollama"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/retrieval"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/session"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/transcript"
	"github.com/NavaneethakrishnanL/LLM-RAG/internal/ui/chat"
)

// =============================================================================
// CHAT
// =============================================================================

func newChatCmd(app *App) *cobra.Command {
	var (
		sessionName string
		plain       bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the local model",
		Long: `Chat with the local model. Every turn is appended to the session's
transcript, which is shown again when the session is resumed.

The full-screen UI is used on a terminal; --plain (or piped input) selects
a line-oriented prompt with input history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, tr, err := app.openSession(sessionName, app.cfg.Generation.Chat)
			if err != nil {
				return err
			}
			return app.converse(cmd, sess, tr, plain, "Llama3 Chat")
		},
	}
	cmd.Flags().StringVarP(&sessionName, "session", "s", defaultChatSession, "transcript name")
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-oriented prompt")
	return cmd
}

// openSession validates the session name, loads its transcript and returns
// a session generating with preset.
func (a *App) openSession(name string, preset config.GenerationPreset) (*session.Session, *transcript.Transcript, error) {
	clean, err := transcript.ValidateName(name)
	if err != nil {
		return nil, nil, fmt.Errorf("session name: %w", err)
	}
	store, err := a.store()
	if err != nil {
		return nil, nil, err
	}
	tr, err := store.Load(clean)
	if err != nil {
		return nil, nil, err
	}
	rec, err := a.recorder()
	if err != nil {
		return nil, nil, err
	}
	return session.New(clean, rec, inference.FromPreset(preset), a.logger), tr, nil
}

// converse runs the full-screen chat on a terminal, the REPL otherwise.
func (a *App) converse(cmd *cobra.Command, sess *session.Session, tr *transcript.Transcript, plain bool, title string) error {
	if plain || !isTerminalReader(cmd.InOrStdin()) || !isTerminalWriter(cmd.OutOrStdout()) {
		return a.runREPL(cmd, sess, tr)
	}

	m := chat.New(sess, a.theme(), chat.Options{
		Title:         title,
		Subtitle:      fmt.Sprintf("%s · session %s", a.cfg.Local.Model, sess.Name()),
		AssistantName: a.cfg.UI.AssistantName,
		History:       tr.History,
		Markdown:      a.cfg.UI.Markdown,
		Timeout:       a.cfg.RequestTimeout(),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI: %w", err)
	}

	stats := sess.Stats()
	a.logger.Info("chat finished",
		zap.String("session", sess.Name()),
		zap.Int("turns", stats.Turns),
		zap.Int("failures", stats.Failures))
	return nil
}

// runREPL reads from a line editor on a terminal and from plain stdin
// otherwise.
func (a *App) runREPL(cmd *cobra.Command, sess *session.Session, tr *transcript.Transcript) error {
	r := &repl{
		sender:    sess,
		out:       cmd.OutOrStdout(),
		errOut:    cmd.ErrOrStderr(),
		assistant: a.cfg.UI.AssistantName,
	}

	if isTerminalReader(cmd.InOrStdin()) {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if err := config.EnsureDir(); err != nil {
			return err
		}
		line := NewChatCLI(filepath.Join(dir, "chat_history"))
		defer line.Close()
		r.in = line
		r.prompt = "you> "
		fmt.Fprintln(r.out, TitleStyle.Render(fmt.Sprintf("llmrag %s · %s", sess.Name(), a.cfg.Local.Model)))
		fmt.Fprintln(r.out, DimStyle.Render("Type exit or press Ctrl+D to leave, Ctrl+C cancels a reply."))
	} else {
		r.in = newScanReader(cmd.InOrStdin())
	}

	r.printHistory(tr)
	return r.run(cmd.Context())
}

// scanReader reads lines from a non-interactive input.
type scanReader struct {
	sc *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{sc: sc}
}

func (s *scanReader) Prompt(string) (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// =============================================================================
// ASK
// =============================================================================

func newAskCmd(app *App) *cobra.Command {
	var sessionName string
	cmd := &cobra.Command{
		Use:   "ask [PROMPT...]",
		Short: "Ask one question and print the answer",
		Long: `Ask one question and print the answer. With no arguments the prompt is
read from stdin. The turn is recorded in the session transcript.`,
		Example: `  llmrag ask "Explain goroutines in one paragraph"
  git diff | llmrag ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read prompt: %w", err)
				}
				input = strings.TrimSpace(string(data))
			}
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("nothing to ask: %w", session.ErrEmptyInput)
			}

			sess, _, err := app.openSession(sessionName, app.cfg.Generation.Chat)
			if err != nil {
				return err
			}
			return app.answer(cmd, sess, input)
		},
	}
	cmd.Flags().StringVarP(&sessionName, "session", "s", defaultChatSession, "transcript name")
	return cmd
}

// answer sends one message. Rendered markdown needs the whole reply, so
// tokens are only streamed when the output is not rendered.
func (a *App) answer(cmd *cobra.Command, sess *session.Session, input string) error {
	out := cmd.OutOrStdout()
	render := a.cfg.UI.Markdown && isTerminalWriter(out)

	var onToken func(string)
	if !render {
		onToken = func(tok string) { fmt.Fprint(out, tok) }
	}
	reply, err := sess.SendStream(cmd.Context(), input, onToken)
	if err != nil {
		return explain(err)
	}
	if render {
		displayResponse(out, reply, true, a.glamourStyle())
		return nil
	}
	fmt.Fprintln(out)
	return nil
}

// =============================================================================
// RAG
// =============================================================================

// ragFlags are shared by rag and index.
type ragFlags struct {
	docsDir  string
	indexDir string
	rebuild  bool
	k        int
}

func (f *ragFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.docsDir, "docs", "", "folder of PDF and text documents (default storage.docs_dir)")
	cmd.Flags().StringVar(&f.indexDir, "index", "", "index directory (default storage.vectorstore_dir)")
	cmd.Flags().IntVarP(&f.k, "top-k", "k", 0, "chunks retrieved per question (default retrieval.top_k)")
}

func newRAGCmd(app *App) *cobra.Command {
	var (
		flags       ragFlags
		sessionName string
		plain       bool
		question    string
	)
	cmd := &cobra.Command{
		Use:   "rag",
		Short: "Ask questions about a folder of documents",
		Long: `Ask questions about a folder of PDF and text documents. The similarity
index is loaded from disk, or built from the documents and saved on first
use. Each question is answered from the most similar passages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			retriever, err := app.loadRetriever(cmd, flags)
			if err != nil {
				return err
			}
			sess, tr, err := app.openSession(sessionName, app.cfg.Generation.RAG)
			if err != nil {
				return err
			}
			sess.WithRetriever(retriever)

			if question != "" {
				return app.answer(cmd, sess, question)
			}
			return app.converse(cmd, sess, tr, plain, "Document Q&A")
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.rebuild, "rebuild", false, "rebuild the index from the documents")
	cmd.Flags().StringVarP(&sessionName, "session", "s", defaultRAGSession, "transcript name")
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-oriented prompt")
	cmd.Flags().StringVarP(&question, "question", "q", "", "answer one question and exit")
	return cmd
}

// indexDirs resolves the document and index folders from flags and config.
func (a *App) indexDirs(flags ragFlags) (docs, index string, err error) {
	docs, index = flags.docsDir, flags.indexDir
	if docs == "" {
		docs = a.cfg.Storage.DocsDir
	}
	if index == "" {
		index = a.cfg.Storage.VectorStoreDir
	}
	if docs, err = config.ExpandPath(docs); err != nil {
		return "", "", err
	}
	if index, err = config.ExpandPath(index); err != nil {
		return "", "", err
	}
	return docs, index, nil
}

func (a *App) retrievalOptions(cmd *cobra.Command, flags ragFlags) (retrieval.Options, error) {
	docs, index, err := a.indexDirs(flags)
	if err != nil {
		return retrieval.Options{}, err
	}
	k := flags.k
	if k <= 0 {
		k = a.cfg.Retrieval.TopK
	}
	return retrieval.Options{
		DocsDir:  docs,
		IndexDir: index,
		Rebuild:  flags.rebuild,
		Embedder: a.embedder(),
		K:        k,
		Build: retrieval.BuildOptions{
			ChunkSize:    a.cfg.Retrieval.ChunkSize,
			ChunkOverlap: a.cfg.Retrieval.ChunkOverlap,
			Concurrency:  a.cfg.Retrieval.Concurrency,
			Progress:     progressPrinter(cmd.ErrOrStderr()),
			Logger:       a.logger,
		},
		Logger: a.logger,
	}, nil
}

func (a *App) loadRetriever(cmd *cobra.Command, flags ragFlags) (*retrieval.Retriever, error) {
	opts, err := a.retrievalOptions(cmd, flags)
	if err != nil {
		return nil, err
	}
	r, err := retrieval.LoadOrBuild(cmd.Context(), opts)
	if err != nil {
		return nil, explain(err)
	}
	idx := r.Index()
	if idx.Len() == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s no documents indexed from %s; answers will have no context\n",
			WarningStyle.Render("[Warning]"), opts.DocsDir)
	}
	return r, nil
}

// progressPrinter reports embedding progress on one rewritten line.
func progressPrinter(w io.Writer) func(done, total int) {
	var mu sync.Mutex
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\rEmbedding chunks %d/%d", done, total)
		if done >= total {
			fmt.Fprintln(w)
		}
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// explain adds a remedy to the engine errors users can fix themselves.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case ollama.IsNotRunning(err):
		return fmt.Errorf("%w (start it with 'ollama serve' or 'llmrag status --start')", err)
	case ollama.IsModelNotFound(err):
		return fmt.Errorf("%w (install it with 'ollama pull <model>')", err)
	case ollama.IsTimeout(err):
		return fmt.Errorf("%w (raise local.timeout_secs for slow hardware)", err)
	}
	return err
}
