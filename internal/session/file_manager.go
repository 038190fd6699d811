package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alfadb/openclaw/internal/platform/jsonx"
)

// FileManager is a JSON-file-backed Manager: one file per session key under
// <stateDir>/feishu/sessions/, appended to via the same tmp+rename
// read-modify-write pattern as internal/inflight.Store.
type FileManager struct {
	path string

	mu      sync.Mutex
	entries []Entry
	loaded  bool
}

// NewFileManager creates a FileManager for sessionKey rooted at stateDir.
func NewFileManager(stateDir, sessionKey string) *FileManager {
	path := filepath.Join(stateDir, "feishu", "sessions", sessionKey+".json")
	return &FileManager{path: path}
}

func (m *FileManager) ensureLoaded() {
	if m.loaded {
		return
	}
	m.loaded = true
	data, err := os.ReadFile(m.path)
	if err != nil {
		return
	}
	var entries []Entry
	if jsonx.Unmarshal(data, &entries) == nil {
		m.entries = entries
	}
}

// AppendMessage appends entry and persists the full transcript.
func (m *FileManager) AppendMessage(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded()
	m.entries = append(m.entries, entry)
	return m.persistLocked()
}

func (m *FileManager) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("session: create session dir: %w", err)
	}
	data, err := jsonx.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode transcript: %w", err)
	}
	data = append(data, '\n')
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write temp transcript: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("session: commit transcript: %w", err)
	}
	return nil
}

// GetSessionFile returns the backing file path. ok is false until at least
// one message has been appended (no file exists yet).
func (m *FileManager) GetSessionFile() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := os.Stat(m.path); err != nil {
		return "", false
	}
	return m.path, true
}

// GetEntries returns a snapshot of the in-memory transcript, for tests.
func (m *FileManager) GetEntries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoaded()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

var _ Manager = (*FileManager)(nil)
