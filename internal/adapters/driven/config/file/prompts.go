package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/docchat/internal/adapters/driven/llm/prompt"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk, falling
// back to built-in defaults.
//
// Initialisation is lazy: the directory and default files are created on
// the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptRAGSystem: driven.DefaultRAGSystemPrompt,
	driven.PromptSummarise: prompt.DefaultSummarise,
}

// NewPromptStore creates a file-based prompt store.
// If promptDir is empty, defaults to <DefaultDir>/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for name. A missing or unreadable file
// yields the built-in default; unknown names without a file are an error.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if p, ok := defaultPrompts[name]; ok {
			return p, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if p, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	p, err := s.loadFromFile(name)
	if err != nil {
		if def, ok := defaultPrompts[name]; ok {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		p = cached
	} else {
		s.cache[name] = p
	}
	s.mu.Unlock()

	return p, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# docchat prompts

Prompts used when docchat talks to a language model.

## Files

- ` + "`rag_system.txt`" + ` - System prompt for answering questions from retrieved context
- ` + "`summarise.txt`" + ` - Summarises document content

## Customisation

Edit a file to change its prompt. Changes apply to the next command or
after restarting the chat UI. Delete a file to restore the default.

## Placeholders

- ` + "`rag_system.txt`" + `: one ` + "`%s`" + ` for the retrieved context
- ` + "`summarise.txt`" + `: ` + "`%d`" + ` for the length limit, then ` + "`%s`" + ` for the content
`
	return os.WriteFile(path, []byte(content), 0600)
}
