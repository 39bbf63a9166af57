// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NavaneethakrishnanL/LLM-RAG/internal/util"
)

// =============================================================================
// TYPES
// =============================================================================

// Turn is one exchange: the user's text and the model's reply.
type Turn struct {
	Timestamp Timestamp `json:"timestamp"`
	User      string    `json:"user"`
	AI        string    `json:"ai"`
}

// Transcript is the on-disk document for one session.
type Transcript struct {
	Name    string `json:"-"`
	History []Turn `json:"history"`
}

// Summary describes a stored transcript for listings.
type Summary struct {
	Name      string
	Turns     int
	LastTurn  time.Time
	Preview   string
	SizeBytes int64
}

// fileSuffix is appended to the session name to form the file name.
const fileSuffix = "_session.json"

// Sentinel errors.
var (
	// ErrCorrupt is returned when a transcript file exists but is not a
	// valid transcript document.
	ErrCorrupt = errors.New("transcript file is corrupt")

	// ErrNotFound is returned by Delete for unknown sessions.
	ErrNotFound = errors.New("transcript not found")
)

// =============================================================================
// TIMESTAMP
// =============================================================================

// Timestamp is an ISO-8601 instant. It decodes both RFC 3339 values and
// zone-less values such as "2024-05-01T10:00:00.123456", which are taken as
// local time.
type Timestamp struct {
	time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// MarshalJSON encodes the instant as RFC 3339 with nanoseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO-8601 values.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes transcripts under Dir.
type Store struct {
	// Dir holds the <name>_session.json files.
	Dir string

	// now is the clock; replaced in tests.
	now func() time.Time

	mu sync.Mutex
}

// NewStore returns a store rooted at dir. The directory is created on the
// first append.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, now: time.Now}
}

// ValidateName returns the normalized session name or an error wrapping
// util.ErrInvalidName.
func ValidateName(name string) (string, error) {
	return util.SafeName(name)
}

// Path returns the file that holds the named transcript.
func (s *Store) Path(name string) (string, error) {
	clean, err := ValidateName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, clean+fileSuffix), nil
}

// Load reads the named transcript. A missing file yields an empty
// transcript with a non-nil History.
func (s *Store) Load(name string) (*Transcript, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	t, err := readFile(path)
	if err != nil {
		return nil, err
	}
	t.Name = strings.TrimSuffix(filepath.Base(path), fileSuffix)
	return t, nil
}

func readFile(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Transcript{History: []Turn{}}, nil
		}
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, filepath.Base(path), err)
	}
	if t.History == nil {
		t.History = []Turn{}
	}
	return &t, nil
}

// Append adds one turn stamped with the current time and rewrites the file.
// The new timestamp is never earlier than the previous turn's.
func (s *Store) Append(name, user, ai string) (Turn, error) {
	path, err := s.Path(name)
	if err != nil {
		return Turn{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := readFile(path)
	if err != nil {
		return Turn{}, err
	}

	ts := s.now()
	if n := len(t.History); n > 0 {
		if last := t.History[n-1].Timestamp.Time; ts.Before(last) {
			ts = last
		}
	}

	turn := Turn{Timestamp: Timestamp{ts}, User: user, AI: ai}
	t.History = append(t.History, turn)

	if err := writeFile(path, t); err != nil {
		return Turn{}, err
	}
	return turn, nil
}

func writeFile(path string, t *Transcript) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// List returns a summary of every readable transcript, most recent first.
// Corrupt files are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, err
	}

	summaries := []Summary{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), fileSuffix)
		t, err := readFile(filepath.Join(s.Dir, entry.Name()))
		if err != nil {
			continue
		}

		sum := Summary{Name: name, Turns: len(t.History)}
		if info, err := entry.Info(); err == nil {
			sum.SizeBytes = info.Size()
			sum.LastTurn = info.ModTime()
		}
		if n := len(t.History); n > 0 {
			sum.LastTurn = t.History[n-1].Timestamp.Time
			sum.Preview = util.TruncateRunes(util.OneLine(t.History[0].User), 60)
		}
		summaries = append(summaries, sum)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastTurn.After(summaries[j].LastTurn)
	})
	return summaries, nil
}

// Delete removes the named transcript.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders the transcript as a markdown document.
func (t *Transcript) ExportMarkdown(assistant string) string {
	if assistant == "" {
		assistant = "AI"
	}
	var sb strings.Builder
	title := t.Name
	if title == "" {
		title = "Transcript"
	}
	sb.WriteString("# " + title + "\n\n")
	if len(t.History) == 0 {
		sb.WriteString("_No messages yet._\n")
		return sb.String()
	}
	for _, turn := range t.History {
		sb.WriteString("### " + turn.Timestamp.Format("2006-01-02 15:04:05") + "\n\n")
		sb.WriteString("**You:** " + turn.User + "\n\n")
		sb.WriteString("**" + assistant + ":** " + turn.AI + "\n\n")
	}
	return sb.String()
}

// ExportText renders the transcript the way the chat window shows it.
func (t *Transcript) ExportText(assistant string) string {
	if assistant == "" {
		assistant = "AI"
	}
	var sb strings.Builder
	for _, turn := range t.History {
		fmt.Fprintf(&sb, "You: %s\n%s: %s\n\n", turn.User, assistant, turn.AI)
	}
	return sb.String()
}
