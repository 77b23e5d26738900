// Package sink receives the files produced by the translator and the glue
// generator.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Sink stores one generated file. Names are slash separated and relative.
type Sink interface {
	Write(name string, data []byte) error
}

// Dir writes files below a root directory.
type Dir struct {
	Root string
}

func (d Dir) Write(name string, data []byte) error {
	path := filepath.Join(d.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	return nil
}

// Memory keeps files in memory. It is safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (m *Memory) Write(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the contents of a written file.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

// Names returns the written file names, sorted.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for n := range m.files {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
