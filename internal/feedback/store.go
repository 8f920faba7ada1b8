// Package feedback keeps recruiter feedback snippets that are folded into LLM prompts.
package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

const (
	// DefaultRecent is how many entries are put into a prompt.
	DefaultRecent = 5
	// GeneralFile receives entries added through Append.
	GeneralFile = "general_feedback.json"
)

const documentSchema = `{
  "type": "object",
  "required": ["feedback"],
  "properties": {
    "feedback": {"type": "array"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

type document struct {
	Feedback []any `json:"feedback"`
}

// Store is read-only once loaded.
type Store struct {
	entries []string
	recent  int
}

// Load reads every *.json file in dir in name order. A missing or unreadable
// directory yields an empty store. Files that fail schema validation are
// skipped with a warning.
func Load(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{recent: DefaultRecent}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return s
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		logger.Warn("listing feedback files", zap.String("dir", dir), zap.Error(err))
		return s
	}
	sort.Strings(files)

	for _, file := range files {
		entries, err := readFile(file)
		if err != nil {
			logger.Warn("skipping feedback file", zap.String("file", file), zap.Error(err))
			continue
		}
		s.entries = append(s.entries, entries...)
	}

	if len(s.entries) > 0 {
		logger.Info("feedback loaded", zap.Int("entries", len(s.entries)), zap.Int("files", len(files)))
	}

	return s
}

// New builds a store from in-memory entries.
func New(entries ...string) *Store {
	s := &Store{recent: DefaultRecent}
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			s.entries = append(s.entries, e)
		}
	}
	return s
}

func readFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("invalid feedback document: %s", strings.Join(msgs, "; "))
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	entries := make([]string, 0, len(doc.Feedback))
	for _, item := range doc.Feedback {
		text, ok := item.(string)
		if !ok {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			entries = append(entries, text)
		}
	}
	return entries, nil
}

// Len reports the number of loaded entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Enhanced reports whether any feedback is available for prompts.
func (s *Store) Enhanced() bool {
	return s.Len() > 0
}

// Recent returns up to n most recent entries, oldest first.
func (s *Store) Recent(n int) []string {
	if s == nil || n <= 0 || len(s.entries) == 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]string, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// PromptSection renders the recent entries for inclusion in a prompt, or ""
// when there is nothing to add.
func (s *Store) PromptSection() string {
	if s == nil {
		return ""
	}
	recent := s.Recent(s.recent)
	if len(recent) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\nPrevious Feedback and Learning Points:\n")
	for _, entry := range recent {
		b.WriteString("- ")
		b.WriteString(entry)
		b.WriteString("\n")
	}
	b.WriteString("\nPlease consider these insights when providing your assessment.\n")
	return b.String()
}

var appendMu sync.Mutex

// Append adds text to the general feedback file in dir, creating the
// directory and file when needed.
func Append(dir, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("feedback text must not be empty")
	}

	appendMu.Lock()
	defer appendMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create feedback dir: %w", err)
	}

	path := filepath.Join(dir, GeneralFile)
	var entries []string
	if _, err := os.Stat(path); err == nil {
		entries, err = readFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	entries = append(entries, text)
	data, err := json.MarshalIndent(map[string][]string{"feedback": entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write feedback: %w", err)
	}
	return os.Rename(tmp, path)
}
