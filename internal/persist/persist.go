// Package persist provides the whole-document persistence target shared by
// the calendar and logbook stores. Both sync their full YAML document on
// every mutation, so the store contract is replacement, not appending.
package persist

import (
	"os"
	"sync"
)

// Store replaces the persisted document wholesale on each sync.
type Store interface {
	Replace(data []byte) error
}

// File persists the document to a fixed path. WriteFile truncates, so stale
// tail bytes from a longer previous document cannot survive.
type File struct {
	Path string
}

func (f File) Replace(data []byte) error {
	return os.WriteFile(f.Path, data, 0o600)
}

// Memory is an in-process store used by tests to peek at synced documents.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

func (m *Memory) Replace(data []byte) error {
	m.mu.Lock()
	m.data = append(m.data[:0], data...)
	m.mu.Unlock()
	return nil
}

// Bytes returns a copy of the last synced document.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
