package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

var promptLog = logger.For("prompts")

const promptReadme = `# docrag prompts

Edit these files to change what docrag sends to the language model.

- answer_system.txt: rules for grounded, cited answers.
- answer_user.txt: frames the sources and the question. It must keep
  exactly two %s placeholders, the numbered sources first and the
  question second.

A file that is empty or breaks the placeholder rule is ignored and the
built-in prompt is used. Edits are picked up on the next question, also
by a running "docrag serve" or "docrag watch".
`

// PromptStore reads prompt overrides from <dir>/<name>.txt.
//
// The directory is seeded with the built-in prompts on first use. Each
// Load stats the file and rereads it only when its modification time
// changed.
type PromptStore struct {
	dir  string
	seed sync.Once

	mu    sync.Mutex
	cache map[string]cachedPrompt
}

type cachedPrompt struct {
	modTime time.Time
	text    string
}

// NewPromptStore creates a store rooted at dir, or ~/.docrag/prompts when
// dir is empty. Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".docrag", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]cachedPrompt)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the override for name when it is valid, else the built-in.
func (s *PromptStore) Load(name string) (string, error) {
	builtin, ok := driven.DefaultPrompts[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}
	s.seed.Do(s.seedDir)

	path := s.path(name)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			promptLog.Warn("reading %s: %v", path, err)
		}
		return builtin, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache[name]; ok && c.modTime.Equal(info.ModTime()) {
		return c.text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		promptLog.Warn("reading %s: %v", path, err)
		return builtin, nil
	}
	text := strings.TrimSpace(string(data))
	if err := driven.CheckPrompt(name, text); err != nil {
		promptLog.Warn("%s: %v; using the built-in prompt", path, err)
		text = builtin
	}
	s.cache[name] = cachedPrompt{modTime: info.ModTime(), text: text}
	return text, nil
}

// seedDir writes the built-in prompts and a README without touching
// existing files. Failures only mean the built-ins are used.
func (s *PromptStore) seedDir() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		promptLog.Warn("creating prompt directory: %v", err)
		return
	}
	files := map[string]string{"README.md": promptReadme}
	for name, text := range driven.DefaultPrompts {
		files[name+".txt"] = text + "\n"
	}
	for file, text := range files {
		path := filepath.Join(s.dir, file)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			promptLog.Warn("writing %s: %v", path, err)
			continue
		}
		_, err = f.WriteString(text)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			promptLog.Warn("writing %s: %v", path, err)
		}
	}
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}
