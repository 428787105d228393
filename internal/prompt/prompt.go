package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager loads instruction templates from a directory of .md files and
// caches them for the process lifetime.
type Manager struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]string
}

func NewManager(dir string) *Manager {
	return &Manager{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Get returns the named prompt, loading it from disk on first use.
func (m *Manager) Get(name string) (string, error) {
	m.mu.RLock()
	if text, ok := m.cache[name]; ok {
		m.mu.RUnlock()
		return text, nil
	}
	m.mu.RUnlock()

	path := filepath.Join(m.dir, name+".md")
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompt %q not found in %s: %w", name, m.dir, err)
	}
	text := string(b)

	m.mu.Lock()
	m.cache[name] = text
	m.mu.Unlock()
	return text, nil
}

// Render returns the named prompt with {key} placeholders substituted.
func (m *Manager) Render(name string, vars map[string]string) (string, error) {
	text, err := m.Get(name)
	if err != nil {
		return "", err
	}
	for key, value := range vars {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text, nil
}

// List returns the names of all prompt files available on disk.
func (m *Manager) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.dir, "*.md"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, path := range matches {
		base := filepath.Base(path)
		names = append(names, strings.TrimSuffix(base, ".md"))
	}
	return names, nil
}
